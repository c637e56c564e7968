package database

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stapelberg/postgrestest"
)

func TestEphemeralPostgres(t *testing.T) {
	// Setup logger for test
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	t.Log("Starting ephemeral PostgreSQL test...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Try starting ephemeral PostgreSQL with minimal options
	t.Log("Attempting to start postgrestest server...")
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start ephemeral postgres: %v", err)
	}
	defer pgt.Cleanup()

	t.Log("Ephemeral PostgreSQL server started successfully!")

	// Get the default database DSN
	defaultDSN := pgt.DefaultDatabase()
	t.Logf("Default database DSN: %s", defaultDSN)

	// Try connecting to it
	db, err := sql.Open("postgres", defaultDSN)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	t.Log("Successfully connected to ephemeral PostgreSQL!")

	// Create a test table
	_, err = db.Exec(`CREATE TABLE test_table (id SERIAL PRIMARY KEY, name VARCHAR(100))`)
	if err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	// Insert test data
	_, err = db.Exec(`INSERT INTO test_table (name) VALUES ('test')`)
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}

	// Query test data
	var name string
	err = db.QueryRow(`SELECT name FROM test_table WHERE id = 1`).Scan(&name)
	if err != nil {
		t.Fatalf("Failed to query test data: %v", err)
	}

	if name != "test" {
		t.Fatalf("Expected name 'test', got '%s'", name)
	}

	t.Log("Ephemeral PostgreSQL test completed successfully!")
}

func TestSetupPostgresDatabaseEphemeral(t *testing.T) {
	// Setup logger for test
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	t.Log("Testing SetupPostgresDatabase with ephemeral fallback...")

	pgDB, err := SetupPostgresDatabase("")
	if err != nil {
		t.Fatalf("Failed to setup ephemeral postgres database: %v", err)
	}
	defer pgDB.Close()

	t.Log("Ephemeral database setup successfully!")

	// Test that we can use the database
	pres := &Presentation{
		Name:       "talk.pdf",
		Path:       "/test/talk.pdf",
		ImportTime: time.Now(),
		Hash:       "testhash123",
		PageCount:  12,
	}

	// Generate ULID for the presentation
	pres.ULID = ulid.Make()

	// Try to save a presentation
	err = pgDB.SavePresentation(pres)
	if err != nil {
		t.Fatalf("Failed to save presentation: %v", err)
	}

	t.Logf("Presentation saved with ID: %d", pres.ID)

	// Try to retrieve the presentation
	retrieved, err := pgDB.GetPresentationByID(pres.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve presentation: %v", err)
	}

	if retrieved.Name != pres.Name {
		t.Fatalf("Expected presentation name '%s', got '%s'", pres.Name, retrieved.Name)
	}

	// Slide notes go through the trigger-maintained search column
	notes := []SlideNote{
		{PresentationULID: pres.ULID.String(), Page: 0, Text: "Introduction to distributed consensus"},
		{PresentationULID: pres.ULID.String(), Page: 1, Text: "Raft leader election walkthrough"},
	}
	if err := pgDB.SaveSlideNotes(notes); err != nil {
		t.Fatalf("Failed to save slide notes: %v", err)
	}

	found, err := pgDB.SearchNotes("consensus")
	if err != nil {
		t.Fatalf("Failed to search notes: %v", err)
	}
	if len(found) != 1 || found[0].Page != 0 {
		t.Fatalf("Expected to find the introduction slide, got %+v", found)
	}

	t.Log("Successfully saved and retrieved presentation from ephemeral database!")
}
