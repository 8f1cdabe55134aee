package db

import (
	"strings"
	"testing"
)

func TestTable_String(t *testing.T) {
	tbl := &Table{
		Columns: []string{"ServerName", "CurrentDatabase"},
		Rows:    [][]any{{"SQL01", "sales"}},
	}
	lines := strings.Split(tbl.String(), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "ServerName") || !strings.Contains(lines[0], "CurrentDatabase") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "SQL01") || !strings.HasSuffix(lines[1], "sales") {
		t.Errorf("row = %q", lines[1])
	}
	if (&Table{}).String() != "Empty Table" {
		t.Errorf("empty table rendering: %q", (&Table{}).String())
	}
}

func TestTable_RecordsAndValue(t *testing.T) {
	tbl := &Table{Columns: []string{"a", "b"}, Rows: [][]any{{int64(1), nil}}}
	recs := tbl.Records()
	if len(recs) != 1 || recs[0]["a"] != int64(1) || recs[0]["b"] != nil {
		t.Errorf("Records() = %v", recs)
	}
	if _, ok := tbl.Value(0, "missing"); ok {
		t.Error("Value on missing column should be !ok")
	}
	if _, ok := tbl.Value(1, "a"); ok {
		t.Error("Value out of range should be !ok")
	}
	var nilTable *Table
	if nilTable.Len() != 0 || !nilTable.Empty() {
		t.Error("nil table should be empty")
	}
}
