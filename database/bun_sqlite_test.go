package database

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/drummonds/goPresent/config"
	"github.com/oklog/ulid/v2"
)

func TestBunSQLiteDatabase(t *testing.T) {
	// Initialize logger for tests
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	tmpFile := ":memory:"

	// Setup Bun with SQLite
	db := NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: tmpFile})
	defer db.Close()

	t.Log("Bun SQLite database setup successfully")

	// Test presentation operations
	t.Run("Create and retrieve presentation", func(t *testing.T) {
		pres := &Presentation{
			Name:       "talk.pdf",
			Path:       "/tmp/talk.pdf",
			ImportTime: time.Now(),
			Hash:       "test123hash",
			ULID:       ulid.Make(),
			PageCount:  24,
			Flexible:   false,
		}

		// Save presentation
		err := db.SavePresentation(pres)
		if err != nil {
			t.Fatalf("Failed to save presentation: %v", err)
		}

		if pres.ID == 0 {
			t.Error("Presentation ID was not set after save")
		}

		// Retrieve by ID
		retrieved, err := db.GetPresentationByID(pres.ID)
		if err != nil {
			t.Fatalf("Failed to get presentation by ID: %v", err)
		}

		if retrieved.Name != pres.Name {
			t.Errorf("Expected name %s, got %s", pres.Name, retrieved.Name)
		}

		if retrieved.PageCount != pres.PageCount {
			t.Errorf("Expected page count %d, got %d", pres.PageCount, retrieved.PageCount)
		}

		// Retrieve by ULID
		retrievedByULID, err := db.GetPresentationByULID(pres.ULID.String())
		if err != nil {
			t.Fatalf("Failed to get presentation by ULID: %v", err)
		}

		if retrievedByULID.ID != pres.ID {
			t.Errorf("Expected ID %d, got %d", pres.ID, retrievedByULID.ID)
		}

		t.Log("Presentation create and retrieve test passed")
	})

	// Test persisting the page being shown
	t.Run("Record current page", func(t *testing.T) {
		pres := &Presentation{
			Name:       "resume.pdf",
			Path:       "/tmp/resume.pdf",
			ImportTime: time.Now(),
			Hash:       "resume123",
			ULID:       ulid.Make(),
			PageCount:  30,
		}

		if err := db.SavePresentation(pres); err != nil {
			t.Fatalf("Failed to save presentation: %v", err)
		}

		if err := db.UpdateCurrentPage(pres.ULID.String(), 17); err != nil {
			t.Fatalf("Failed to update current page: %v", err)
		}

		retrieved, err := db.GetPresentationByULID(pres.ULID.String())
		if err != nil {
			t.Fatalf("Failed to get presentation: %v", err)
		}

		if retrieved.CurrentPage != 17 {
			t.Errorf("Expected current page 17, got %d", retrieved.CurrentPage)
		}

		t.Log("Current page test passed")
	})

	// Test config operations
	t.Run("Save and retrieve config", func(t *testing.T) {
		cfg := &config.ServerConfig{
			ListenAddrPort:   "9000",
			PresentationPath: "/tmp/presentations",
			Renderer:         "pdfium",
			NotesPosition:    "right",
			CacheMaxMB:       100,
			CacheMaxPages:    50,
			RenderThreads:    2,
		}

		err := db.SaveConfig(cfg)
		if err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}

		retrievedCfg, err := db.GetConfig()
		if err != nil {
			t.Fatalf("Failed to get config: %v", err)
		}

		if retrievedCfg.ListenAddrPort != cfg.ListenAddrPort {
			t.Errorf("Expected port %s, got %s", cfg.ListenAddrPort, retrievedCfg.ListenAddrPort)
		}

		if retrievedCfg.CacheMaxMB != cfg.CacheMaxMB {
			t.Errorf("Expected cache limit %d, got %d", cfg.CacheMaxMB, retrievedCfg.CacheMaxMB)
		}

		if retrievedCfg.NotesPosition != cfg.NotesPosition {
			t.Errorf("Expected notes position %s, got %s", cfg.NotesPosition, retrievedCfg.NotesPosition)
		}

		t.Log("Config save and retrieve test passed")
	})

	// Test job operations
	t.Run("Create and retrieve job", func(t *testing.T) {
		job, err := db.CreateJob(JobTypeImport, "Test import job")
		if err != nil {
			t.Fatalf("Failed to create job: %v", err)
		}

		if job.ID.String() == "" {
			t.Error("Job ID was not set after create")
		}

		// Retrieve job
		retrievedJob, err := db.GetJob(job.ID)
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}

		if retrievedJob.Message != job.Message {
			t.Errorf("Expected message %s, got %s", job.Message, retrievedJob.Message)
		}

		// Update job progress
		err = db.UpdateJobProgress(job.ID, 50, "Extracting slide text")
		if err != nil {
			t.Fatalf("Failed to update job progress: %v", err)
		}

		// Complete job
		err = db.CompleteJob(job.ID, `{"imported": 3}`)
		if err != nil {
			t.Fatalf("Failed to complete job: %v", err)
		}

		// Verify completion
		completedJob, err := db.GetJob(job.ID)
		if err != nil {
			t.Fatalf("Failed to get completed job: %v", err)
		}

		if completedJob.Status != JobStatusCompleted {
			t.Errorf("Expected status %s, got %s", JobStatusCompleted, completedJob.Status)
		}

		if completedJob.Progress != 100 {
			t.Errorf("Expected progress 100, got %d", completedJob.Progress)
		}

		t.Log("Job operations test passed")
	})

	// Test slide note operations
	t.Run("Slide notes", func(t *testing.T) {
		pres := &Presentation{
			Name:       "notes.pdf",
			Path:       "/tmp/notes.pdf",
			ImportTime: time.Now(),
			Hash:       "notes123",
			ULID:       ulid.Make(),
			PageCount:  3,
		}

		if err := db.SavePresentation(pres); err != nil {
			t.Fatalf("Failed to save presentation: %v", err)
		}

		notes := []SlideNote{
			{PresentationULID: pres.ULID.String(), Page: 0, Text: "Welcome and agenda"},
			{PresentationULID: pres.ULID.String(), Page: 1, Text: "Cache eviction strategies"},
			{PresentationULID: pres.ULID.String(), Page: 2, Text: "Questions"},
		}

		if err := db.SaveSlideNotes(notes); err != nil {
			t.Fatalf("Failed to save slide notes: %v", err)
		}

		// Fetch all notes in page order
		all, err := db.GetSlideNotes(pres.ULID.String())
		if err != nil {
			t.Fatalf("Failed to get slide notes: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 notes, got %d", len(all))
		}
		if all[1].Text != "Cache eviction strategies" {
			t.Errorf("Unexpected note text on page 1: %s", all[1].Text)
		}

		// Fetch a single page
		note, err := db.GetSlideNote(pres.ULID.String(), 2)
		if err != nil {
			t.Fatalf("Failed to get slide note: %v", err)
		}
		if note.Text != "Questions" {
			t.Errorf("Expected 'Questions', got %s", note.Text)
		}

		// Re-saving replaces the text rather than duplicating rows
		notes[2].Text = "Questions and next steps"
		notes[2].ID = 0
		if err := db.SaveSlideNotes(notes[2:]); err != nil {
			t.Fatalf("Failed to upsert slide note: %v", err)
		}
		all, err = db.GetSlideNotes(pres.ULID.String())
		if err != nil {
			t.Fatalf("Failed to get slide notes: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 notes after upsert, got %d", len(all))
		}

		t.Log("Slide note operations test passed")
	})

	// Test search functionality
	t.Run("Search notes", func(t *testing.T) {
		pres := &Presentation{
			Name:       "searchtest.pdf",
			Path:       "/tmp/searchtest.pdf",
			ImportTime: time.Now(),
			Hash:       "searchtest123",
			ULID:       ulid.Make(),
			PageCount:  1,
		}

		if err := db.SavePresentation(pres); err != nil {
			t.Fatalf("Failed to save presentation: %v", err)
		}

		notes := []SlideNote{
			{PresentationULID: pres.ULID.String(), Page: 0, Text: "This slide contains searchable content about databases"},
		}
		if err := db.SaveSlideNotes(notes); err != nil {
			t.Fatalf("Failed to save slide notes: %v", err)
		}

		// Search for the note (SQLite will use LIKE search)
		results, err := db.SearchNotes("database")
		if err != nil {
			t.Fatalf("Failed to search notes: %v", err)
		}

		if len(results) == 0 {
			t.Error("Expected to find at least one note, got none")
		}

		t.Logf("Search test passed, found %d notes", len(results))
	})

	// Test deletion cascades to notes
	t.Run("Delete presentation", func(t *testing.T) {
		pres := &Presentation{
			Name:       "gone.pdf",
			Path:       "/tmp/gone.pdf",
			ImportTime: time.Now(),
			Hash:       "gone123",
			ULID:       ulid.Make(),
			PageCount:  1,
		}

		if err := db.SavePresentation(pres); err != nil {
			t.Fatalf("Failed to save presentation: %v", err)
		}
		notes := []SlideNote{{PresentationULID: pres.ULID.String(), Page: 0, Text: "ephemeral"}}
		if err := db.SaveSlideNotes(notes); err != nil {
			t.Fatalf("Failed to save slide notes: %v", err)
		}

		if err := db.DeletePresentation(pres.ULID.String()); err != nil {
			t.Fatalf("Failed to delete presentation: %v", err)
		}

		if _, err := db.GetPresentationByULID(pres.ULID.String()); err == nil {
			t.Error("Expected error fetching deleted presentation, got nil")
		}

		remaining, err := db.GetSlideNotes(pres.ULID.String())
		if err != nil {
			t.Fatalf("Failed to list notes: %v", err)
		}
		if len(remaining) != 0 {
			t.Errorf("Expected notes to be deleted with presentation, got %d", len(remaining))
		}

		t.Log("Delete presentation test passed")
	})
}
