package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// EphemeralPostgres wraps a throwaway PostgreSQL server for development runs
type EphemeralPostgres struct {
	DB     *sql.DB
	server *postgrestest.Server
}

// SetupEphemeralPostgresDatabase creates an ephemeral PostgreSQL instance
func SetupEphemeralPostgresDatabase() (*EphemeralPostgres, error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	ctx := context.Background()

	// Start the ephemeral PostgreSQL server
	// Uses a temporary directory by default for simplicity
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}

	// Get the default database DSN
	defaultDSN := pgt.DefaultDatabase()
	Logger.Info("Ephemeral PostgreSQL server started", "dsn", defaultDSN)

	// Create a new database for the application
	presentDSN, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to create gopresent database: %w", err)
	}

	Logger.Info("Created ephemeral database", "dsn", presentDSN)

	// Connect to the new database
	db, err := sql.Open("postgres", presentDSN)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to open gopresent database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to ephemeral PostgreSQL database successfully")

	return &EphemeralPostgres{
		DB:     db,
		server: pgt,
	}, nil
}

// Cleanup tears down the ephemeral server and its data directory
func (e *EphemeralPostgres) Cleanup() {
	if e.server != nil {
		Logger.Info("Cleaning up ephemeral PostgreSQL server...")
		e.server.Cleanup()
		Logger.Info("Ephemeral PostgreSQL server cleaned up")
	}
}
