// internal/config/database.go
package config

import (
	"fmt"
)

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// Redacted returns the DSN with the password masked, for logging.
func (d *DatabaseConfig) Redacted() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Database, d.SSLMode,
	)
}
