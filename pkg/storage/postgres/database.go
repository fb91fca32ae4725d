package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"tickrouter/config"
)

// CreateDatabase connects to the postgres server and creates a new database if it doesn't exist.
func CreateDatabase(cfg config.PostgresConfig, env string) error {
	// Connect to the default 'postgres' DB; the target DB may not exist yet.
	db, err := sql.Open("postgres", bootstrapDSN(cfg, env))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	// Check if database exists
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRow(query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}

	if exists {
		return nil // DB already exists
	}

	// Create the database
	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DBName))
	if err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}

	return nil
}

// bootstrapDSN points the connection at the server's default 'postgres'
// database so the existence check and CREATE DATABASE work before the target
// database exists.
func bootstrapDSN(cfg config.PostgresConfig, env string) string {
	cfg.DBName = "postgres"
	return cfg.DSN(env)
}
