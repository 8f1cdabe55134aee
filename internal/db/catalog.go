package db

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/ini.v1"
)

// PreferredDrivers lists the supported ODBC drivers, best first.
var PreferredDrivers = []string{
	"ODBC Driver 18 for SQL Server",
	"ODBC Driver 17 for SQL Server",
	"SQL Server",
}

// Catalog lists the ODBC driver names installed on the host.
type Catalog interface {
	Drivers() ([]string, error)
}

// PickDriver returns the first of PreferredDrivers present in available.
func PickDriver(available []string) (string, error) {
	set := make(map[string]struct{}, len(available))
	for _, d := range available {
		set[d] = struct{}{}
	}
	for _, d := range PreferredDrivers {
		if _, ok := set[d]; ok {
			return d, nil
		}
	}
	sorted := append([]string(nil), available...)
	sort.Strings(sorted)
	return "", &DriverNotFoundError{Available: sorted}
}

// StaticCatalog is a fixed driver list.
type StaticCatalog []string

// Drivers implements Catalog.
func (c StaticCatalog) Drivers() ([]string, error) {
	return []string(c), nil
}

// IniCatalog reads driver sections from a unixODBC odbcinst.ini file.
type IniCatalog struct {
	Path string
}

// nonDriverSections are odbcinst.ini sections that do not name a driver.
var nonDriverSections = map[string]bool{
	ini.DefaultSection: true,
	"ODBC":             true,
	"ODBC Drivers":     true,
}

// Drivers implements Catalog. A missing file means no drivers.
func (c IniCatalog) Drivers() ([]string, error) {
	path := c.Path
	if path == "" {
		path = OdbcinstPath()
	}
	f, err := ini.LooseLoad(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, s := range f.SectionStrings() {
		if nonDriverSections[s] {
			continue
		}
		names = append(names, s)
	}
	return names, nil
}

// OdbcinstPath resolves odbcinst.ini the way unixODBC does: ODBCSYSINI
// names the directory, ODBCINSTINI the file.
func OdbcinstPath() string {
	dir := os.Getenv("ODBCSYSINI")
	if dir == "" {
		dir = "/etc"
	}
	name := os.Getenv("ODBCINSTINI")
	if name == "" {
		name = "odbcinst.ini"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
