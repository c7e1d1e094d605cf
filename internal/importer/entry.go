package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"taxoncore/pkg/domain"
)

// entryDocument is the on-disk repository entry; only the fields the import
// needs are decoded.
type entryDocument struct {
	Cluster struct {
		Accession    string   `json:"mibig_accession"`
		Minimal      bool     `json:"minimal"`
		NCBITaxID    *taxID   `json:"ncbi_tax_id"`
		OrganismName string   `json:"organism_name"`
		BiosynClass  []string `json:"biosyn_class"`
	} `json:"cluster"`
}

// taxID accepts both 1902 and "1902". A null or absent value leaves the
// field nil.
type taxID int64

func (t *taxID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("ncbi_tax_id %s is not an integer", raw)
	}
	*t = taxID(n)
	return nil
}

// DecodeError reports an entry document that cannot be decoded.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode entry %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeEntry(file string, data []byte) (domain.Entry, int64, error) {
	var doc entryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Entry{}, 0, &DecodeError{File: file, Err: err}
	}
	c := doc.Cluster
	if strings.TrimSpace(c.Accession) == "" {
		return domain.Entry{}, 0, &DecodeError{File: file, Err: fmt.Errorf("missing mibig_accession")}
	}
	if c.NCBITaxID == nil {
		return domain.Entry{}, 0, &DecodeError{File: file, Err: fmt.Errorf("missing ncbi_tax_id")}
	}
	return domain.Entry{
		Accession:     c.Accession,
		Minimal:       c.Minimal,
		OrganismName:  c.OrganismName,
		BiosynClasses: c.BiosynClass,
	}, int64(*c.NCBITaxID), nil
}
