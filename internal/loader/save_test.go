package loader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/SedlarDavid/mssqlconn/internal/db"
)

type fakeExecutor struct {
	tableExists bool
	failOn      string // value that makes Execute fail
	executed    [][]any
	statements  []string
}

func (f *fakeExecutor) Query(_ context.Context, query string, _ ...any) (*db.Table, error) {
	if strings.HasPrefix(query, "IF OBJECT_ID") {
		found := int64(0)
		if f.tableExists {
			found = 1
		}
		return &db.Table{Columns: []string{"found"}, Rows: [][]any{{found}}}, nil
	}
	return &db.Table{Columns: []string{"txname", "idvalue", "txpassword", "idindex", "dtcreatedate"}}, nil
}

func (f *fakeExecutor) Execute(_ context.Context, query string, params ...any) error {
	f.statements = append(f.statements, query)
	if f.failOn != "" && params[0] == f.failOn {
		return errors.New("constraint violation")
	}
	f.executed = append(f.executed, params)
	return nil
}

func testOptions() Options {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return Options{
		Table:         "DWH_Bronze_Clean_Password",
		Columns:       []string{"txname", "idvalue", "txpassword"},
		IndexColumn:   "idindex",
		CreatedColumn: "dtcreatedate",
		Now:           func() time.Time { return now },
	}
}

func TestSave(t *testing.T) {
	f := &fakeExecutor{tableExists: true, failOn: "broken"}
	records := []Record{
		{Values: []string{"alice", "1", "pw"}, FileIndex: 1},
		{Values: []string{"short", "2"}, FileIndex: 1},
		{Values: []string{"broken", "3", "pw"}, FileIndex: 2},
		{Values: []string{"bob", "4", "pw"}, FileIndex: 2},
	}
	res, err := Save(context.Background(), f, testOptions(), records, zerolog.Nop())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	wantSQL := "INSERT INTO [DWH_Bronze_Clean_Password] ([txname], [idvalue], [txpassword], [idindex], [dtcreatedate]) VALUES (?, ?, ?, ?, ?)"
	if f.statements[0] != wantSQL {
		t.Errorf("insert statement\n got %q\nwant %q", f.statements[0], wantSQL)
	}
	first := f.executed[0]
	if len(first) != 5 || first[0] != "alice" || first[3] != 1 {
		t.Errorf("params = %v", first)
	}
	if ts, ok := first[4].(time.Time); !ok || ts.Year() != 2026 {
		t.Errorf("created param = %v", first[4])
	}
}

func TestSave_tableMissing(t *testing.T) {
	f := &fakeExecutor{}
	_, err := Save(context.Background(), f, testOptions(), []Record{{Values: []string{"a", "b", "c"}}}, zerolog.Nop())
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if len(f.statements) != 0 {
		t.Errorf("nothing should be inserted, got %d statements", len(f.statements))
	}
}

func TestQuoteTable(t *testing.T) {
	tests := map[string]string{
		"t":           "[t]",
		"dbo.t":       "[dbo].[t]",
		"[sapbd].[x]": "[sapbd].[x]",
		"we]ird":      "[we]]ird]",
	}
	for in, want := range tests {
		if got := quoteTable(in); got != want {
			t.Errorf("quoteTable(%q) = %q, want %q", in, got, want)
		}
	}
}
