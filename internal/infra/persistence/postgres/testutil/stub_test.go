package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubUpsertsOnConflictColumn(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB(map[string]string{"taxa": "tax_id"})

	insert := "INSERT INTO taxa (ncbi_taxid, name) VALUES ($1, $2) ON CONFLICT (ncbi_taxid) DO UPDATE SET name = excluded.name"
	for _, name := range []string{"first", "second"} {
		if _, err := conn.ExecContext(ctx, insert, []driver.NamedValue{{Value: int64(7)}, {Value: name}}); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	rows := conn.Tables["taxa"]
	if len(rows) != 1 || rows[0]["name"] != "second" || rows[0]["tax_id"] != int64(1) {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestStubSelectFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB(nil)
	conn.Tables["entries"] = []map[string]any{
		{"accession": "B", "tax_id": int64(2)},
		{"accession": "A", "tax_id": int64(1)},
	}

	rows, err := conn.QueryContext(ctx, "SELECT accession FROM entries ORDER BY accession", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil || dest[0] != "A" {
		t.Fatalf("expected A first, got %v err=%v", dest, err)
	}

	rows, err = conn.QueryContext(ctx, "SELECT accession FROM entries WHERE tax_id = $1", []driver.NamedValue{{Value: int64(2)}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if err := rows.Next(dest); err != nil || dest[0] != "B" {
		t.Fatalf("expected B, got %v err=%v", dest, err)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestStubFailureToggles(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB(nil)
	conn.FailPing = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatal("expected ping failure")
	}
	conn.FailTables = map[string]bool{"taxa": true}
	if _, err := conn.QueryContext(ctx, "SELECT name FROM taxa", nil); err == nil {
		t.Fatal("expected query failure")
	}
	conn.FailExec = true
	if _, err := conn.ExecContext(ctx, "CREATE TABLE x (a TEXT)", nil); err == nil {
		t.Fatal("expected exec failure")
	}
	if len(conn.Execs) != 1 {
		t.Fatalf("expected exec to be recorded, got %v", conn.Execs)
	}
}
