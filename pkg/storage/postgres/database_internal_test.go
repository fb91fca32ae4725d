package postgres

import (
	"strings"
	"testing"

	"tickrouter/config"
)

// go test -v --run TestBootstrapDSN
func TestBootstrapDSN(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "yourpw",
		DBName:   "tickrouter",
		SSLMode:  "disable",
	}

	dsn := bootstrapDSN(cfg, "dev")
	if !strings.Contains(dsn, "dbname=postgres") {
		t.Errorf("bootstrap DSN must target the default database, got: %s", dsn)
	}
	if strings.Contains(dsn, "dbname=tickrouter") {
		t.Errorf("bootstrap DSN must not target the database being created, got: %s", dsn)
	}

	// The caller's config is untouched.
	if cfg.DBName != "tickrouter" {
		t.Errorf("config was mutated: %s", cfg.DBName)
	}
}
