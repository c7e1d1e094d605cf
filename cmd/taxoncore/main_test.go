package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxoncore/internal/importer"
	"taxoncore/internal/taxonomy"
	"taxoncore/pkg/domain"
)

const (
	humanLine  = "9606|Homo sapiens|Homo sapiens|Homo|Hominidae|Primates|Mammalia|Chordata|Animalia|Eukaryota|"
	streptLine = "1902|Streptomyces coelicolor|Streptomyces coelicolor|Streptomyces|Streptomycetaceae|Streptomycetales|Actinomycetia|Actinomycetota||Bacteria|"
)

type env struct {
	dir     string
	lineage string
	merged  string
}

// setupEnv points every TAXONCORE_* setting at a temp directory.
func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:     dir,
		lineage: filepath.Join(dir, "lineage.dmp"),
		merged:  filepath.Join(dir, "merged.dmp"),
	}
	require.NoError(t, os.WriteFile(e.lineage, []byte(humanLine+"\n"+streptLine+"\n"), 0o600))
	require.NoError(t, os.WriteFile(e.merged, []byte("100|1902|\n"), 0o600))
	for _, k := range []string{"TAXONCORE_CONFIG", "TAXA_DUMP", "MERGED_DUMP", "DATABASE_URL", "TAXONCORE_METRICS_ADDR"} {
		t.Setenv(k, "")
	}
	t.Setenv("TAXONCORE_LINEAGE_DUMP", e.lineage)
	t.Setenv("TAXONCORE_MERGED_DUMP", e.merged)
	t.Setenv("TAXONCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("TAXONCORE_SQLITE_PATH", filepath.Join(dir, "taxa.db"))
	t.Setenv("TAXONCORE_BLOB_DRIVER", "fs")
	t.Setenv("TAXONCORE_BLOB_FS_ROOT", filepath.Join(dir, "blobs"))
	t.Setenv("TAXONCORE_LOG_LEVEL", "error")
	return e
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func decodeLineages(t *testing.T, out string) []domain.Lineage {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(out))
	var got []domain.Lineage
	for dec.More() {
		var l domain.Lineage
		require.NoError(t, dec.Decode(&l))
		got = append(got, l)
	}
	return got
}

func TestLookupSingleShot(t *testing.T) {
	setupEnv(t)
	out, _, err := execute(t, "lookup", "9606")
	require.NoError(t, err)
	got := decodeLineages(t, out)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9606), got[0].TaxID)
	assert.Equal(t, "sapiens", got[0].Species)
	assert.Equal(t, "Primates", got[0].Order)

	_, _, err = execute(t, "lookup", "100")
	assert.True(t, taxonomy.IsInvalidTaxID(err), "single-shot lookup does not follow merges: %v", err)
	assert.Equal(t, 3, exitCode(err))
}

func TestLookupCachedFollowsMerges(t *testing.T) {
	setupEnv(t)
	out, stderr, err := execute(t, "lookup", "--trace", "100", "9606")
	require.NoError(t, err)
	got := decodeLineages(t, out)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1902), got[0].TaxID)
	assert.Equal(t, domain.UnknownRank, got[0].Kingdom)
	assert.Contains(t, stderr, `"operation":"resolve"`)
}

func TestLookupArgumentErrors(t *testing.T) {
	setupEnv(t)
	_, _, err := execute(t, "lookup", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")

	t.Setenv("TAXONCORE_MERGED_DUMP", "")
	_, _, err = execute(t, "lookup", "9606")
	var missing *taxonomy.MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "TAXONCORE_MERGED_DUMP", missing.Key)
	assert.Equal(t, 2, exitCode(err))
}

func TestLookupIgnoresStorageSettings(t *testing.T) {
	setupEnv(t)
	t.Setenv("TAXONCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("TAXONCORE_POSTGRES_DSN", "")
	out, _, err := execute(t, "lookup", "--cache", "100")
	require.NoError(t, err)
	got := decodeLineages(t, out)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1902), got[0].TaxID)

	_, _, err = execute(t, "import", t.TempDir())
	var missing *taxonomy.MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "TAXONCORE_POSTGRES_DSN", missing.Key)
}

func TestLookupOversizedLineExitsAsCorruption(t *testing.T) {
	e := setupEnv(t)
	huge := "1902|" + strings.Repeat("x", 2<<20) + "|a|b|c|d|e|f|g|h|"
	require.NoError(t, os.WriteFile(e.lineage, []byte(humanLine+"\n"+huge+"\n"), 0o600))
	_, _, err := execute(t, "lookup", "1902")
	require.Error(t, err)
	assert.True(t, taxonomy.IsDataCorruption(err), "got %v", err)
	assert.Equal(t, 4, exitCode(err))
}

func TestImportThenList(t *testing.T) {
	e := setupEnv(t)
	entries := filepath.Join(e.dir, "entries")
	require.NoError(t, os.MkdirAll(entries, 0o750))
	docs := map[string]string{
		"BGC0000001.json": `{"cluster":{"mibig_accession":"BGC0000001","minimal":false,"ncbi_tax_id":"1902","organism_name":"Streptomyces coelicolor","biosyn_class":["Polyketide"]}}`,
		"BGC0000002.json": `{"cluster":{"mibig_accession":"BGC0000002","minimal":true,"ncbi_tax_id":100,"organism_name":"Streptomyces sp.","biosyn_class":["NRP","Other"]}}`,
		"BGC0000003.json": `{"cluster":{"mibig_accession":"BGC0000003","ncbi_tax_id":"42","organism_name":"unknown"}}`,
	}
	for name, body := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(entries, name), []byte(body), 0o600))
	}

	out, _, err := execute(t, "import", entries)
	require.NoError(t, err)
	var report importer.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "BGC0000003", report.Skipped[0].Accession)

	out, _, err = execute(t, "taxa", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NCBI TAXID")
	assert.Equal(t, 1, strings.Count(out, "Streptomyces coelicolor"))

	out, _, err = execute(t, "entries", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "BGC0000002")
	assert.Contains(t, out, "NRP,Other")

	_, _, err = execute(t, "import", "--strict", entries)
	assert.True(t, taxonomy.IsInvalidTaxID(err), "strict import aborts: %v", err)
}

func TestDumpsPutListAndResolveFromBlob(t *testing.T) {
	e := setupEnv(t)
	out, _, err := execute(t, "dumps", "put", e.lineage, "ncbi/lineage.dmp")
	require.NoError(t, err)
	assert.Contains(t, out, "blob://ncbi/lineage.dmp")
	_, _, err = execute(t, "dumps", "put", e.merged)
	require.NoError(t, err)

	out, _, err = execute(t, "dumps", "list", "ncbi/")
	require.NoError(t, err)
	assert.Contains(t, out, "ncbi/lineage.dmp")
	assert.NotContains(t, out, "merged.dmp")

	_, _, err = execute(t, "dumps", "put", e.merged)
	assert.Error(t, err, "keys are create-only")

	t.Setenv("TAXONCORE_LINEAGE_DUMP", "blob://ncbi/lineage.dmp")
	t.Setenv("TAXONCORE_MERGED_DUMP", "blob://merged.dmp")
	out, _, err = execute(t, "lookup", "--cache", "100")
	require.NoError(t, err)
	got := decodeLineages(t, out)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1902), got[0].TaxID)
}

func TestMetricsServerExposesPrometheusAndExpvar(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer
	a := &app{stdout: &stdout, stderr: &stderr}
	root := a.rootCmd()
	root.SetArgs([]string{"--metrics-addr", "127.0.0.1:0", "lookup", "--cache", "9606"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	defer func() { require.NoError(t, a.close()) }()
	require.NotEmpty(t, a.metricsListen)

	get := func(path string) string {
		resp, err := http.Get("http://" + a.metricsListen + path)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}
	assert.Contains(t, get("/metrics"), `taxoncore_lookups_total{outcome="hit"} 1`)

	var vars map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(get("/debug/vars")), &vars))
	var snap taxonomy.ExpvarSnapshot
	require.NoError(t, json.Unmarshal(vars["taxoncore_resolver"], &snap))
	assert.GreaterOrEqual(t, snap.Lookups[taxonomy.OutcomeHit], int64(1))
	assert.GreaterOrEqual(t, snap.Scans[taxonomy.ScanPopulate], int64(1))
}

func TestBadLogLevel(t *testing.T) {
	setupEnv(t)
	_, _, err := execute(t, "--log-level", "loud", "lookup", "9606")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&taxonomy.MissingConfigurationError{Key: "x"}, 2},
		{&taxonomy.InvalidTaxIDError{TaxID: 1}, 3},
		{&taxonomy.MalformedRecordError{Reason: "bad"}, 4},
		{errors.New("other"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}
