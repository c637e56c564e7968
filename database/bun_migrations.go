package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// runBunMigrations runs all Bun migrations
func runBunMigrations(ctx context.Context, db *bun.DB) error {
	// Create a simple migrations tracking table
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })
	trackingSQL := `
		CREATE TABLE IF NOT EXISTS bun_schema_migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if isPostgres {
		trackingSQL = `
			CREATE TABLE IF NOT EXISTS bun_schema_migrations (
				id SERIAL PRIMARY KEY,
				version TEXT NOT NULL UNIQUE,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	}
	_, err := db.ExecContext(ctx, trackingSQL)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	type AppliedMigration struct {
		bun.BaseModel `bun:"table:bun_schema_migrations"`
		Version       string `bun:"version"`
	}
	var applied []AppliedMigration
	err = db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "initial_schema", init001CreatePresentationsTable},
		{"002", "add_slide_notes", init002AddSlideNotes},
		{"003", "create_jobs_table", init003CreateJobsTable},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: Create initial schema (presentations and server_config tables)
func init001CreatePresentationsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 001: Create initial schema")

	// Detect database dialect - check if it's PostgreSQL by checking dialect features
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })

	// Create presentations table
	var createTableSQL string
	if isPostgres {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS presentations (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				import_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				hash TEXT NOT NULL,
				ulid TEXT NOT NULL UNIQUE,
				page_count INTEGER NOT NULL DEFAULT 0,
				flexible BOOLEAN NOT NULL DEFAULT false,
				current_page INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
	} else {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS presentations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				import_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				hash TEXT NOT NULL,
				ulid TEXT NOT NULL UNIQUE,
				page_count INTEGER NOT NULL DEFAULT 0,
				flexible BOOLEAN NOT NULL DEFAULT 0,
				current_page INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
	}

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create presentations table: %w", err)
	}

	// Create indexes for presentations
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_presentations_hash ON presentations(hash)",
		"CREATE INDEX IF NOT EXISTS idx_presentations_ulid ON presentations(ulid)",
		"CREATE INDEX IF NOT EXISTS idx_presentations_import_time ON presentations(import_time DESC)",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Create server_config table
	var createConfigSQL string
	var insertConfigSQL string
	if isPostgres {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				presentation_path TEXT NOT NULL DEFAULT '',
				renderer TEXT NOT NULL DEFAULT 'fitz',
				notes_position TEXT NOT NULL DEFAULT 'none',
				cache_max_mb INTEGER NOT NULL DEFAULT 200,
				cache_max_pages INTEGER NOT NULL DEFAULT -1,
				render_threads INTEGER NOT NULL DEFAULT 1,
				import_interval INTEGER NOT NULL DEFAULT 60,
				web_ui_pass BOOLEAN NOT NULL DEFAULT false,
				client_username TEXT DEFAULT '',
				client_password TEXT DEFAULT '',
				use_reverse_proxy BOOLEAN NOT NULL DEFAULT false,
				base_url TEXT DEFAULT '',
				server_api_url TEXT DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT INTO server_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	} else {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				presentation_path TEXT NOT NULL DEFAULT '',
				renderer TEXT NOT NULL DEFAULT 'fitz',
				notes_position TEXT NOT NULL DEFAULT 'none',
				cache_max_mb INTEGER NOT NULL DEFAULT 200,
				cache_max_pages INTEGER NOT NULL DEFAULT -1,
				render_threads INTEGER NOT NULL DEFAULT 1,
				import_interval INTEGER NOT NULL DEFAULT 60,
				web_ui_pass BOOLEAN NOT NULL DEFAULT 0,
				client_username TEXT DEFAULT '',
				client_password TEXT DEFAULT '',
				use_reverse_proxy BOOLEAN NOT NULL DEFAULT 0,
				base_url TEXT DEFAULT '',
				server_api_url TEXT DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT OR IGNORE INTO server_config (id) VALUES (1)`
	}

	_, err = db.ExecContext(ctx, createConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to create server_config table: %w", err)
	}

	// Insert default config row
	_, err = db.ExecContext(ctx, insertConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to insert default config: %w", err)
	}

	Logger.Info("Migration 001 completed successfully")
	return nil
}

// Migration 002: Add slide notes with full-text search support
func init002AddSlideNotes(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 002: Add slide notes")

	// Detect database dialect
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })

	var createTableSQL string
	if isPostgres {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS slide_notes (
				id SERIAL PRIMARY KEY,
				presentation_ulid TEXT NOT NULL,
				page INTEGER NOT NULL,
				text TEXT,
				text_search tsvector,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (presentation_ulid, page)
			)
		`
	} else {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS slide_notes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				presentation_ulid TEXT NOT NULL,
				page INTEGER NOT NULL,
				text TEXT,
				text_search TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (presentation_ulid, page)
			)
		`
	}

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create slide_notes table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_slide_notes_presentation ON slide_notes(presentation_ulid, page)
	`)
	if err != nil {
		return fmt.Errorf("failed to create slide_notes index: %w", err)
	}

	if isPostgres {
		// Create GIN index for fast full-text searching
		_, err = db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_slide_notes_text_search ON slide_notes USING GIN(text_search)
		`)
		if err != nil {
			return fmt.Errorf("failed to create text_search GIN index: %w", err)
		}

		// Create function to update search vector
		_, err = db.ExecContext(ctx, `
			CREATE OR REPLACE FUNCTION update_slide_note_search()
			RETURNS TRIGGER AS $$
			BEGIN
				NEW.text_search = to_tsvector('english', COALESCE(NEW.text, ''));
				RETURN NEW;
			END;
			$$ LANGUAGE plpgsql
		`)
		if err != nil {
			return fmt.Errorf("failed to create update_slide_note_search function: %w", err)
		}

		// Create trigger to update search vector on insert/update
		_, err = db.ExecContext(ctx, `
			DROP TRIGGER IF EXISTS trigger_update_slide_note_search ON slide_notes
		`)
		if err != nil {
			Logger.Warn("Could not drop trigger (might not exist)", "error", err)
		}

		_, err = db.ExecContext(ctx, `
			CREATE TRIGGER trigger_update_slide_note_search
				BEFORE INSERT OR UPDATE OF text ON slide_notes
				FOR EACH ROW
				EXECUTE FUNCTION update_slide_note_search()
		`)
		if err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}

	Logger.Info("Migration 002 completed successfully")
	return nil
}

// Migration 003: Create jobs table
func init003CreateJobsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 003: Create jobs table")

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			progress INTEGER DEFAULT 0,
			current_step TEXT DEFAULT '',
			total_steps INTEGER DEFAULT 0,
			message TEXT DEFAULT '',
			error TEXT,
			result TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_completed_at ON jobs(completed_at) WHERE completed_at IS NOT NULL",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Partial indexes might not be supported in all SQLite versions
			Logger.Warn("Could not create index (might not be supported)", "error", err)
		}
	}

	Logger.Info("Migration 003 completed successfully")
	return nil
}
