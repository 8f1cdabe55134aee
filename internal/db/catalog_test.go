package db

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPickDriver(t *testing.T) {
	const (
		v18     = "ODBC Driver 18 for SQL Server"
		v17     = "ODBC Driver 17 for SQL Server"
		generic = "SQL Server"
	)
	tests := []struct {
		name      string
		available []string
		want      string
		wantErr   bool
	}{
		{"all present", []string{generic, v17, v18}, v18, false},
		{"v17 and generic", []string{generic, v17}, v17, false},
		{"v18 and generic", []string{"FreeTDS", generic, v18}, v18, false},
		{"generic only", []string{"PostgreSQL", generic}, generic, false},
		{"v17 only", []string{v17}, v17, false},
		{"none", []string{"FreeTDS", "PostgreSQL Unicode"}, "", true},
		{"empty", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PickDriver(tt.available)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PickDriver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrDriverNotFound) {
				t.Errorf("expected ErrDriverNotFound, got %v", err)
			}
			if got != tt.want {
				t.Errorf("PickDriver() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIniCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odbcinst.ini")
	content := `[ODBC]
Trace = No

[ODBC Driver 18 for SQL Server]
Description=Microsoft ODBC Driver 18 for SQL Server
Driver=/opt/microsoft/msodbcsql18/lib64/libmsodbcsql-18.so
UsageCount=1

[FreeTDS]
Driver=/usr/lib/libtdsodbc.so
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := IniCatalog{Path: path}.Drivers()
	if err != nil {
		t.Fatalf("Drivers: %v", err)
	}
	want := []string{"ODBC Driver 18 for SQL Server", "FreeTDS"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Drivers() = %q, want %q", got, want)
	}
}

func TestIniCatalog_missingFile(t *testing.T) {
	got, err := IniCatalog{Path: filepath.Join(t.TempDir(), "nope.ini")}.Drivers()
	if err != nil {
		t.Fatalf("Drivers: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no drivers, got %q", got)
	}
}

func TestOdbcinstPath(t *testing.T) {
	t.Setenv("ODBCSYSINI", "/opt/odbc")
	t.Setenv("ODBCINSTINI", "")
	if got := OdbcinstPath(); got != filepath.Join("/opt/odbc", "odbcinst.ini") {
		t.Errorf("OdbcinstPath() = %q", got)
	}
	t.Setenv("ODBCINSTINI", "/custom/drivers.ini")
	if got := OdbcinstPath(); got != "/custom/drivers.ini" {
		t.Errorf("OdbcinstPath() = %q", got)
	}
}
