package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/drummonds/goPresent/config"
	"github.com/oklog/ulid/v2"
)

// PostgresDB implements Repository for PostgreSQL using plain SQL
type PostgresDB struct {
	db        *sql.DB
	ephemeral *EphemeralPostgres
}

// SetupPostgresDatabase initializes PostgreSQL database with migrations
// If connectionString is empty, it will use ephemeral PostgreSQL
func SetupPostgresDatabase(connectionString string) (*PostgresDB, error) {
	var db *sql.DB
	var ephemeral *EphemeralPostgres
	var err error

	if connectionString == "" {
		// Use ephemeral PostgreSQL for development
		Logger.Info("No connection string provided, using ephemeral PostgreSQL...")

		ephemeral, err = SetupEphemeralPostgresDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to setup ephemeral postgres: %w", err)
		}
		db = ephemeral.DB
	} else {
		Logger.Info("Connecting to external PostgreSQL/CockroachDB server...")

		db, err = sql.Open("postgres", connectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		Logger.Info("Connected to PostgreSQL database successfully")
	}

	// Run migrations
	Logger.Info("Running database migrations...")
	if err := runPostgresMigrations(db); err != nil {
		Logger.Error("Failed to run database migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	Logger.Info("Database migrations completed successfully")

	return &PostgresDB{
		db:        db,
		ephemeral: ephemeral,
	}, nil
}

func runPostgresMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Try to find the migrations directory
	// First try from project root
	migrationsPath, err := filepath.Abs("database/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// If running from within the database directory (during tests), adjust path
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		migrationsPath, err = filepath.Abs("migrations")
		if err != nil {
			return fmt.Errorf("failed to get migrations path: %w", err)
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Check current version and apply migrations
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		// Try to force clean and retry
		Logger.Warn("Database is in dirty state, attempting to recover")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	// Apply latest migrations
	Logger.Info("Applying database migrations")
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	Logger.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection and stops the ephemeral server if running
func (p *PostgresDB) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return err
		}
	}
	if p.ephemeral != nil {
		p.ephemeral.Cleanup()
	}
	return nil
}

// SavePresentation saves or updates a presentation
func (p *PostgresDB) SavePresentation(pres *Presentation) error {
	query := `
		INSERT INTO presentations (name, path, import_time, hash, ulid, page_count, flexible, current_page)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(path) DO UPDATE SET
			name = EXCLUDED.name,
			import_time = EXCLUDED.import_time,
			hash = EXCLUDED.hash,
			ulid = EXCLUDED.ulid,
			page_count = EXCLUDED.page_count,
			flexible = EXCLUDED.flexible,
			current_page = EXCLUDED.current_page,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	err := p.db.QueryRow(query,
		pres.Name, pres.Path, pres.ImportTime, pres.Hash,
		pres.ULID.String(), pres.PageCount, pres.Flexible, pres.CurrentPage,
	).Scan(&pres.ID)

	return err
}

// GetPresentationByID retrieves a presentation by ID
func (p *PostgresDB) GetPresentationByID(id int) (*Presentation, error) {
	query := `SELECT id, name, path, import_time, hash, ulid, page_count, flexible, current_page
	          FROM presentations WHERE id = $1`

	return p.scanPresentation(p.db.QueryRow(query, id))
}

// GetPresentationByULID retrieves a presentation by ULID
func (p *PostgresDB) GetPresentationByULID(ulidStr string) (*Presentation, error) {
	query := `SELECT id, name, path, import_time, hash, ulid, page_count, flexible, current_page
	          FROM presentations WHERE ulid = $1`

	return p.scanPresentation(p.db.QueryRow(query, ulidStr))
}

// GetPresentationByPath retrieves a presentation by file path
func (p *PostgresDB) GetPresentationByPath(path string) (*Presentation, error) {
	query := `SELECT id, name, path, import_time, hash, ulid, page_count, flexible, current_page
	          FROM presentations WHERE path = $1`

	return p.scanPresentation(p.db.QueryRow(query, path))
}

// GetPresentationByHash retrieves a presentation by hash
func (p *PostgresDB) GetPresentationByHash(hash string) (*Presentation, error) {
	query := `SELECT id, name, path, import_time, hash, ulid, page_count, flexible, current_page
	          FROM presentations WHERE hash = $1`

	pres, err := p.scanPresentation(p.db.QueryRow(query, hash))
	if err == sql.ErrNoRows {
		return nil, nil // No duplicate found
	}
	return pres, err
}

// scanPresentation scans a single row into a Presentation
func (p *PostgresDB) scanPresentation(row *sql.Row) (*Presentation, error) {
	pres := &Presentation{}
	var ulidStr string

	err := row.Scan(
		&pres.ID, &pres.Name, &pres.Path, &pres.ImportTime,
		&pres.Hash, &ulidStr, &pres.PageCount, &pres.Flexible, &pres.CurrentPage,
	)

	if err != nil {
		return nil, err
	}

	parsed, err := ulid.Parse(ulidStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ULID: %w", err)
	}
	pres.ULID = parsed

	return pres, nil
}

// scanPresentations is a helper function to scan rows into Presentation structs
func scanPresentations(rows *sql.Rows) ([]Presentation, error) {
	var presentations []Presentation

	for rows.Next() {
		pres := Presentation{}
		var ulidStr string

		err := rows.Scan(
			&pres.ID, &pres.Name, &pres.Path, &pres.ImportTime,
			&pres.Hash, &ulidStr, &pres.PageCount, &pres.Flexible, &pres.CurrentPage,
		)
		if err != nil {
			return nil, err
		}

		parsed, err := ulid.Parse(ulidStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ULID: %w", err)
		}
		pres.ULID = parsed

		presentations = append(presentations, pres)
	}

	return presentations, rows.Err()
}

// GetNewestPresentations retrieves the most recently imported presentations
func (p *PostgresDB) GetNewestPresentations(limit int) ([]Presentation, error) {
	query := `SELECT id, name, path, import_time, hash, ulid, page_count, flexible, current_page
	          FROM presentations ORDER BY import_time DESC LIMIT $1`

	rows, err := p.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPresentations(rows)
}

// GetAllPresentations retrieves all presentations
func (p *PostgresDB) GetAllPresentations() ([]Presentation, error) {
	query := `SELECT id, name, path, import_time, hash, ulid, page_count, flexible, current_page
	          FROM presentations ORDER BY id`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPresentations(rows)
}

// DeletePresentation deletes a presentation and its slide notes by ULID
func (p *PostgresDB) DeletePresentation(ulidStr string) error {
	if _, err := p.db.Exec(`DELETE FROM slide_notes WHERE presentation_ulid = $1`, ulidStr); err != nil {
		return err
	}
	_, err := p.db.Exec(`DELETE FROM presentations WHERE ulid = $1`, ulidStr)
	return err
}

// UpdateCurrentPage updates the last shown page of a presentation
func (p *PostgresDB) UpdateCurrentPage(ulidStr string, page int) error {
	query := `UPDATE presentations SET current_page = $1, updated_at = CURRENT_TIMESTAMP WHERE ulid = $2`
	_, err := p.db.Exec(query, page, ulidStr)
	return err
}

// SaveConfig saves server configuration
func (p *PostgresDB) SaveConfig(cfg *config.ServerConfig) error {
	query := `
		UPDATE server_config SET
			listen_addr_ip = $1,
			listen_addr_port = $2,
			presentation_path = $3,
			renderer = $4,
			notes_position = $5,
			cache_max_mb = $6,
			cache_max_pages = $7,
			render_threads = $8,
			web_ui_pass = $9,
			client_username = $10,
			client_password = $11,
			use_reverse_proxy = $12,
			base_url = $13,
			server_api_url = $14,
			import_interval = $15
		WHERE id = 1
	`

	_, err := p.db.Exec(query,
		cfg.ListenAddrIP, cfg.ListenAddrPort, cfg.PresentationPath,
		cfg.Renderer, cfg.NotesPosition, cfg.CacheMaxMB,
		cfg.CacheMaxPages, cfg.RenderThreads, cfg.WebUIPass,
		cfg.ClientUsername, cfg.ClientPassword, cfg.UseReverseProxy,
		cfg.BaseURL, cfg.FrontEndConfig.ServerAPIURL, cfg.ImportInterval,
	)

	return err
}

// GetConfig retrieves server configuration
func (p *PostgresDB) GetConfig() (*config.ServerConfig, error) {
	query := `
		SELECT listen_addr_ip, listen_addr_port, presentation_path, renderer,
		       notes_position, cache_max_mb, cache_max_pages, render_threads,
		       web_ui_pass, client_username, client_password, use_reverse_proxy,
		       base_url, server_api_url, import_interval
		FROM server_config WHERE id = 1
	`

	cfg := &config.ServerConfig{}
	err := p.db.QueryRow(query).Scan(
		&cfg.ListenAddrIP, &cfg.ListenAddrPort, &cfg.PresentationPath,
		&cfg.Renderer, &cfg.NotesPosition, &cfg.CacheMaxMB,
		&cfg.CacheMaxPages, &cfg.RenderThreads, &cfg.WebUIPass,
		&cfg.ClientUsername, &cfg.ClientPassword, &cfg.UseReverseProxy,
		&cfg.BaseURL, &cfg.FrontEndConfig.ServerAPIURL, &cfg.ImportInterval,
	)

	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveSlideNotes saves the extracted text for a batch of pages
func (p *PostgresDB) SaveSlideNotes(notes []SlideNote) error {
	query := `
		INSERT INTO slide_notes (presentation_ulid, page, text)
		VALUES ($1, $2, $3)
		ON CONFLICT (presentation_ulid, page) DO UPDATE SET
			text = EXCLUDED.text,
			updated_at = CURRENT_TIMESTAMP
	`

	for i := range notes {
		note := &notes[i]
		if _, err := p.db.Exec(query, note.PresentationULID, note.Page, note.Text); err != nil {
			return err
		}
	}
	return nil
}

// GetSlideNotes retrieves all notes for a presentation in page order
func (p *PostgresDB) GetSlideNotes(presentationULID string) ([]SlideNote, error) {
	query := `SELECT id, presentation_ulid, page, text
	          FROM slide_notes WHERE presentation_ulid = $1 ORDER BY page`

	rows, err := p.db.Query(query, presentationULID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSlideNotes(rows)
}

// GetSlideNote retrieves the note for a single page
func (p *PostgresDB) GetSlideNote(presentationULID string, page int) (*SlideNote, error) {
	query := `SELECT id, presentation_ulid, page, text
	          FROM slide_notes WHERE presentation_ulid = $1 AND page = $2`

	note := &SlideNote{}
	err := p.db.QueryRow(query, presentationULID, page).Scan(
		&note.ID, &note.PresentationULID, &note.Page, &note.Text,
	)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// SearchNotes performs full-text search using PostgreSQL's native search capabilities
// Supports both prefix matching and phrase search
func (p *PostgresDB) SearchNotes(searchTerm string) ([]SlideNote, error) {
	query := `SELECT id, presentation_ulid, page, text
	          FROM slide_notes
	          WHERE text_search @@ to_tsquery('english', $1)
	          ORDER BY ts_rank(text_search, to_tsquery('english', $1)) DESC`

	// Format the search term for PostgreSQL full-text search
	// Add prefix matching support with :*
	formattedTerm := formatSearchTerm(searchTerm)

	rows, err := p.db.Query(query, formattedTerm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSlideNotes(rows)
}

// scanSlideNotes is a helper function to scan rows into SlideNote structs
func scanSlideNotes(rows *sql.Rows) ([]SlideNote, error) {
	var notes []SlideNote

	for rows.Next() {
		note := SlideNote{}
		err := rows.Scan(&note.ID, &note.PresentationULID, &note.Page, &note.Text)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	return notes, rows.Err()
}

// formatSearchTerm converts a search term into PostgreSQL tsquery format
func formatSearchTerm(term string) string {
	// Remove special characters that would break tsquery
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}

	// Check if it's a phrase (contains spaces)
	if strings.Contains(term, " ") {
		// Phrase search: split into words and join with <->
		words := strings.Fields(term)
		for i := range words {
			words[i] = strings.ToLower(words[i]) + ":*"
		}
		return strings.Join(words, " <-> ")
	}

	// Single word: add prefix matching
	return strings.ToLower(term) + ":*"
}

// ReindexSearchNotes reindexes all slide notes to populate the text_search column
// Returns the number of notes reindexed
func (p *PostgresDB) ReindexSearchNotes() (int, error) {
	query := `UPDATE slide_notes
	          SET text_search = to_tsvector('english', COALESCE(text, ''))
	          WHERE text IS NOT NULL AND text != ''`

	result, err := p.db.Exec(query)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rowsAffected), nil
}
