//go:build windows

package db

import (
	"golang.org/x/sys/windows/registry"
)

const odbcDriversKey = `SOFTWARE\ODBC\ODBCINST.INI\ODBC Drivers`

// RegistryCatalog reads installed drivers from the ODBC registry key.
type RegistryCatalog struct{}

// Drivers implements Catalog.
func (RegistryCatalog) Drivers() ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, odbcDriversKey, registry.QUERY_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return nil, nil
		}
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}
	var installed []string
	for _, n := range names {
		v, _, err := k.GetStringValue(n)
		if err != nil || v != "Installed" {
			continue
		}
		installed = append(installed, n)
	}
	return installed, nil
}

// DefaultCatalog returns the host's driver catalog: the ODBC registry key.
func DefaultCatalog() Catalog {
	return RegistryCatalog{}
}
