package app

import "github.com/medconnecthq/medconnect/internal/database"

// Options converts DatabaseConfig to the database package representation.
func (c DatabaseConfig) Options() database.Config {
	return database.Config{
		Driver:   c.Driver,
		Path:     c.Path,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		Name:     c.Name,
		User:     c.User,
		Password: c.Password,
	}
}
