package db

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDriverNotFound matches a *DriverNotFoundError.
	ErrDriverNotFound = errors.New("no supported ODBC driver for SQL Server")
	// ErrConnection matches a *ConnectionError.
	ErrConnection = errors.New("could not connect to SQL Server")
	// ErrExecution matches an *ExecutionError.
	ErrExecution = errors.New("statement failed")
)

// driverDownloadURL is where the Microsoft ODBC drivers are published.
const driverDownloadURL = "https://learn.microsoft.com/en-us/sql/connect/odbc/download-odbc-driver-for-sql-server"

// DriverNotFoundError is returned by New when none of the preferred drivers
// is installed.
type DriverNotFoundError struct {
	Available []string
}

func (e *DriverNotFoundError) Error() string {
	return fmt.Sprintf("%v; available drivers: [%s]; install one from %s",
		ErrDriverNotFound, strings.Join(e.Available, ", "), driverDownloadURL)
}

func (e *DriverNotFoundError) Is(target error) bool { return target == ErrDriverNotFound }

// ConnectionError is returned when the initial connect or a retarget does
// not yield a live connection.
type ConnectionError struct {
	Op       string // "connect" or "retarget"
	Host     string
	Database string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v (host %q, database %q); see log for details", e.Op, ErrConnection, e.Host, e.Database)
}

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ExecutionError wraps a runtime failure of Query, Execute or ExecuteSQLFile.
type ExecutionError struct {
	Op  string
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }
