package db

import (
	"strings"
	"testing"
)

func TestConnectionString(t *testing.T) {
	s := Settings{
		Host:            "localhost",
		Database:        "sales",
		Trusted:         true,
		Encrypt:         true,
		TrustServerCert: true,
		DriverName:      "ODBC Driver 18 for SQL Server",
	}
	want := "DRIVER=ODBC Driver 18 for SQL Server;SERVER=localhost;DATABASE=sales;" +
		"Trusted_Connection=yes;Encrypt=True;TrustServerCertificate=True;"
	if got := s.ConnectionString(); got != want {
		t.Errorf("ConnectionString()\n got %q\nwant %q", got, want)
	}

	s.Trusted, s.Encrypt, s.TrustServerCert = false, false, false
	want = "DRIVER=ODBC Driver 18 for SQL Server;SERVER=localhost;DATABASE=sales;" +
		"Trusted_Connection=no;Encrypt=False;TrustServerCertificate=False;"
	if got := s.ConnectionString(); got != want {
		t.Errorf("ConnectionString()\n got %q\nwant %q", got, want)
	}
}

func TestConnectionString_sqlAuth(t *testing.T) {
	s := Settings{Host: "h", Database: "d", DriverName: "SQL Server", User: "sa", Password: "pw"}
	if got := s.ConnectionString(); !strings.HasSuffix(got, "TrustServerCertificate=False;UID=sa;PWD=pw;") {
		t.Errorf("expected credentials appended, got %q", got)
	}
	s.Trusted = true
	if got := s.ConnectionString(); strings.Contains(got, "UID=") {
		t.Errorf("trusted connection must not send credentials, got %q", got)
	}
}

func TestNativeConnectionString(t *testing.T) {
	s := Settings{Host: `srv\SQLEXPRESS`, Database: "my db", Encrypt: true, User: "sa", Password: "p;w"}
	want := `odbc:server=srv\SQLEXPRESS;database={my db};encrypt=true;trustservercertificate=false;user id=sa;password={p;w}`
	if got := s.nativeConnectionString(); got != want {
		t.Errorf("nativeConnectionString()\n got %q\nwant %q", got, want)
	}
}

func TestSettingsString_noPassword(t *testing.T) {
	s := Settings{Host: "h", Database: "d", User: "sa", Password: "hunter2"}
	if strings.Contains(s.String(), "hunter2") {
		t.Errorf("String() leaks password: %q", s.String())
	}
}
