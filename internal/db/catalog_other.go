//go:build !windows

package db

// DefaultCatalog returns the host's driver catalog: odbcinst.ini.
func DefaultCatalog() Catalog {
	return IniCatalog{}
}
