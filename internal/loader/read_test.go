package loader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"name\tid\tpassword\n", '\t'},
		{"name;id;password", ';'},
		{"name,id,password", ','},
		{"name|id|password", '|'},
		{"single", ','},
	}
	for _, tt := range tests {
		if got := SniffDelimiter(tt.line); got != tt.want {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestReadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	content := "\xef\xbb\xbftxname;id;txpassword\nalice;1;s3cret\nbob;2;\"pa;ss\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	want := [][]string{{"alice", "1", "s3cret"}, {"bob", "2", "pa;ss"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("ReadText() = %q, want %q", rows, want)
	}
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"txname", "id", "txpassword"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"carol", "3", "pw"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A3", &[]any{"dave", "4"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	writeWorkbook(t, path)

	sheets, err := ReadExcel(path)
	if err != nil {
		t.Fatalf("ReadExcel: %v", err)
	}
	if len(sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(sheets))
	}
	want := [][]string{{"carol", "3", "pw"}, {"dave", "4", ""}}
	if sheets[0].Name != "Sheet1" || !reflect.DeepEqual(sheets[0].Rows, want) {
		t.Errorf("sheet 1 = %+v", sheets[0])
	}
	if len(sheets[1].Rows) != 0 {
		t.Errorf("empty sheet rows = %q", sheets[1].Rows)
	}
}

func TestReadDir_fileIndexes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("n,i,p\nx,1,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeWorkbook(t, filepath.Join(dir, "b.xlsx"))
	if err := os.WriteFile(filepath.Join(dir, "c.xlsx"), []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := ReadDir(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	// a.txt is file 1, the two sheets of b.xlsx are 2 and 3.
	wantIdx := []int{1, 2, 2}
	for i, r := range records {
		if r.FileIndex != wantIdx[i] {
			t.Errorf("record %d index = %d, want %d", i, r.FileIndex, wantIdx[i])
		}
	}
}

func TestReadText_empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\xef\xbb\xbf\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadText(path); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}
}

func TestReadDir_emptyFileTakesNoIndex(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.txt": "n,i,p\nx,1,y\n",
		"b.txt": "",
		"c.txt": "n,i,p\n",
		"d.txt": "n,i,p\nz,2,w\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	records, err := ReadDir(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	// b.txt is skipped; the header-only c.txt still counts as file 2.
	want := []Record{
		{Values: []string{"x", "1", "y"}, FileIndex: 1},
		{Values: []string{"z", "2", "w"}, FileIndex: 3},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadDir() = %+v, want %+v", records, want)
	}
}
