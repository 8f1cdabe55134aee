package db

import (
	"fmt"
	"strings"
)

// Settings is the connection configuration of a Manager. It is a value type:
// changing Host or Database goes through Manager.Retarget, which reconnects.
type Settings struct {
	Host            string
	Database        string
	Trusted         bool
	Encrypt         bool
	TrustServerCert bool
	DriverName      string

	// User and Password are only sent when Trusted is false.
	User     string
	Password string
}

// ConnectionString returns the ODBC connection descriptor. Key names and
// order are fixed; the driver API matches on them.
func (s Settings) ConnectionString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DRIVER=%s;", s.DriverName)
	fmt.Fprintf(&b, "SERVER=%s;", s.Host)
	fmt.Fprintf(&b, "DATABASE=%s;", s.Database)
	fmt.Fprintf(&b, "Trusted_Connection=%s;", yesNo(s.Trusted))
	fmt.Fprintf(&b, "Encrypt=%s;", trueFalse(s.Encrypt))
	fmt.Fprintf(&b, "TrustServerCertificate=%s;", trueFalse(s.TrustServerCert))
	if !s.Trusted && s.User != "" {
		fmt.Fprintf(&b, "UID=%s;PWD=%s;", s.User, s.Password)
	}
	return b.String()
}

// nativeConnectionString returns the same target in go-mssqldb's "odbc:"
// connection string dialect.
func (s Settings) nativeConnectionString() string {
	parts := []string{
		"server=" + odbcValue(s.Host),
		"database=" + odbcValue(s.Database),
		"encrypt=" + strings.ToLower(trueFalse(s.Encrypt)),
		"trustservercertificate=" + strings.ToLower(trueFalse(s.TrustServerCert)),
	}
	if !s.Trusted && s.User != "" {
		parts = append(parts, "user id="+odbcValue(s.User), "password="+odbcValue(s.Password))
	}
	return "odbc:" + strings.Join(parts, ";")
}

// String describes the target for logs. Never includes the password.
func (s Settings) String() string {
	return fmt.Sprintf("Host: %s, Database: %s, Driver: %s, Trusted Connection: %s, Encrypt: %s, Trust Server Certificate: %s",
		s.Host, s.Database, s.DriverName, yesNo(s.Trusted), trueFalse(s.Encrypt), trueFalse(s.TrustServerCert))
}

// odbcValue braces a value containing separators, doubling closing braces.
func odbcValue(v string) string {
	if !strings.ContainsAny(v, ";{}= ") {
		return v
	}
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func trueFalse(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
