package db

import (
	"database/sql"
	"fmt"

	_ "github.com/alexbrainman/odbc"
	_ "github.com/microsoft/go-mssqldb"
)

// Transport names accepted by WithTransport.
const (
	TransportODBC   = "odbc"
	TransportNative = "native"
)

// NativeDriverName is reported as the driver of native-transport managers.
const NativeDriverName = "go-mssqldb"

// OpenFunc opens a database for the given settings. The Manager takes a
// single dedicated connection from it.
type OpenFunc func(s Settings) (*sql.DB, error)

// OpenODBC opens SQL Server through the ODBC driver manager using the
// ODBC connection descriptor.
func OpenODBC(s Settings) (*sql.DB, error) {
	db, err := sql.Open("odbc", s.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("odbc open: %w", err)
	}
	return db, nil
}

// OpenNative opens SQL Server with go-mssqldb, without an ODBC driver.
func OpenNative(s Settings) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", s.nativeConnectionString())
	if err != nil {
		return nil, fmt.Errorf("sqlserver open: %w", err)
	}
	return db, nil
}
