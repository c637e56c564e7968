package engine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drummonds/goPresent/config"
	"github.com/drummonds/goPresent/database"
	"github.com/drummonds/goPresent/engine/pdfrender"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// newTestHandler builds a ServerHandler backed by an in-memory sqlite
// database and a temporary presentation folder.
func newTestHandler(t *testing.T) *ServerHandler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	config.Logger = logger
	database.Logger = logger
	Logger = logger

	serverConfig := config.ServerConfig{
		DatabaseType:     "sqlite",
		DatabaseDbname:   ":memory:",
		PresentationPath: t.TempDir(),
		Renderer:         "fitz",
		NotesPosition:    "none",
		CacheMaxMB:       50,
		CacheMaxPages:    -1,
		RenderThreads:    1,
		ImportInterval:   60,
	}

	db := database.NewRepository(serverConfig)
	t.Cleanup(func() { db.Close() })

	serverHandler := &ServerHandler{
		DB:           db,
		Echo:         echo.New(),
		ServerConfig: serverConfig,
	}
	serverHandler.RegisterRoutes()
	t.Cleanup(serverHandler.CloseSessions)
	return serverHandler
}

// addTestPresentation inserts a presentation record directly, bypassing the
// import pipeline, for routes that only need database state.
func addTestPresentation(t *testing.T, db database.Repository, name string, pages int) *database.Presentation {
	t.Helper()
	pres := &database.Presentation{
		Name:      name,
		Path:      "/tmp/" + name,
		Hash:      "hash-" + name,
		ULID:      ulid.Make(),
		PageCount: pages,
	}
	if err := db.SavePresentation(pres); err != nil {
		t.Fatalf("Failed to save presentation: %v", err)
	}
	return pres
}

func TestListPresentationRoutes(t *testing.T) {
	serverHandler := newTestHandler(t)

	// Empty database returns an empty list, not null
	req := httptest.NewRequest(http.MethodGet, "/api/presentations", nil)
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) == "null" {
		t.Error("Expected empty JSON array, got null")
	}

	pres := addTestPresentation(t, serverHandler.DB, "talk.pdf", 12)

	req = httptest.NewRequest(http.MethodGet, "/api/presentations/latest", nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var listed []database.Presentation
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to parse presentations: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != pres.Name {
		t.Errorf("Expected [%s], got %+v", pres.Name, listed)
	}

	// Fetch by ULID
	req = httptest.NewRequest(http.MethodGet, "/api/presentation/"+pres.ULID.String(), nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Unknown ULID is a 404
	req = httptest.NewRequest(http.MethodGet, "/api/presentation/"+ulid.Make().String(), nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown presentation, got %d", rec.Code)
	}
}

func TestNotesAndSearchRoutes(t *testing.T) {
	serverHandler := newTestHandler(t)
	pres := addTestPresentation(t, serverHandler.DB, "raft.pdf", 3)

	notes := []database.SlideNote{
		{PresentationULID: pres.ULID.String(), Page: 0, Text: "Raft consensus protocol"},
		{PresentationULID: pres.ULID.String(), Page: 1, Text: "Leader election and log replication"},
	}
	if err := serverHandler.DB.SaveSlideNotes(notes); err != nil {
		t.Fatalf("Failed to save slide notes: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/presentation/"+pres.ULID.String()+"/notes", nil)
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var fetched []database.SlideNote
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("Failed to parse notes: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(fetched))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/presentation/"+pres.ULID.String()+"/notes/1", nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var single database.SlideNote
	if err := json.Unmarshal(rec.Body.Bytes(), &single); err != nil {
		t.Fatalf("Failed to parse note: %v", err)
	}
	if !strings.Contains(single.Text, "election") {
		t.Errorf("Unexpected note text: %q", single.Text)
	}

	// Search hits the leader election slide
	req = httptest.NewRequest(http.MethodGet, "/api/search?term=election", nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var results []noteResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("Failed to parse search results: %v", err)
	}
	if len(results) != 1 || results[0].Page != 1 {
		t.Fatalf("Expected one hit on page 1, got %+v", results)
	}
	if results[0].PresentationName != pres.Name {
		t.Errorf("Expected presentation name %q, got %q", pres.Name, results[0].PresentationName)
	}

	// A term nothing matches returns 204
	req = httptest.NewRequest(http.MethodGet, "/api/search?term=zeppelin", nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for no results, got %d", rec.Code)
	}

	// Reindex reports the number of notes touched
	req = httptest.NewRequest(http.MethodPost, "/api/search/reindex", nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestJobRoutes(t *testing.T) {
	serverHandler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) == "null" {
		t.Error("Expected empty JSON array, got null")
	}

	job, err := serverHandler.DB.CreateJob(database.JobTypeImport, "test job")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID.String(), nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-ulid", nil)
	rec = httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed job ID, got %d", rec.Code)
	}
}

func TestAboutRoute(t *testing.T) {
	serverHandler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/about", nil)
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var about map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &about); err != nil {
		t.Fatalf("Failed to parse about info: %v", err)
	}
	if about["renderer"] != "fitz" {
		t.Errorf("Expected renderer fitz, got %v", about["renderer"])
	}
	if about["databaseType"] != "sqlite" {
		t.Errorf("Expected database type sqlite, got %v", about["databaseType"])
	}
}

func TestSlidePartMapping(t *testing.T) {
	cases := []struct {
		position string
		slide    pdfrender.PagePart
		notes    pdfrender.PagePart
	}{
		{"none", pdfrender.FullPage, pdfrender.FullPage},
		{"left", pdfrender.RightHalf, pdfrender.LeftHalf},
		{"right", pdfrender.LeftHalf, pdfrender.RightHalf},
		{"bogus", pdfrender.FullPage, pdfrender.FullPage},
	}
	for _, tc := range cases {
		if got := slidePart(tc.position); got != tc.slide {
			t.Errorf("slidePart(%q): expected %v, got %v", tc.position, tc.slide, got)
		}
		if got := notesPart(tc.position); got != tc.notes {
			t.Errorf("notesPart(%q): expected %v, got %v", tc.position, tc.notes, got)
		}
	}
}

// TestImportPresentation exercises the full import pipeline against a real
// PDF on disc. Requires the CGo render backend, so it is skipped in short
// mode.
func TestImportPresentation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping import integration test in short mode")
	}

	serverHandler := newTestHandler(t)

	pdfPath := filepath.Join(serverHandler.ServerConfig.PresentationPath, "import_test.pdf")
	if err := createSimpleTestPDF(pdfPath, "Import Pipeline Test"); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	if err := serverHandler.importPresentation(pdfPath); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	pres, err := database.FetchPresentationFromPath(pdfPath, serverHandler.DB)
	if err != nil {
		t.Fatalf("Imported presentation not found: %v", err)
	}
	if pres.PageCount != 1 {
		t.Errorf("Expected 1 page, got %d", pres.PageCount)
	}
	if pres.Hash == "" {
		t.Error("Expected a non-empty file hash")
	}

	// A second import of the same file is a silent no-op
	if err := serverHandler.importPresentation(pdfPath); err != nil {
		t.Errorf("Re-import should be a no-op, got error: %v", err)
	}
	all, err := serverHandler.DB.GetAllPresentations()
	if err != nil {
		t.Fatalf("Failed to list presentations: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 presentation after re-import, got %d", len(all))
	}
}

// createSimpleTestPDF creates a minimal valid PDF file with specified text for testing
func createSimpleTestPDF(filepath string, text string) error {
	// This is a minimal valid PDF structure with embedded text
	pdfContent := `%PDF-1.4
1 0 obj
<<
/Type /Catalog
/Pages 2 0 R
>>
endobj
2 0 obj
<<
/Type /Pages
/Kids [3 0 R]
/Count 1
>>
endobj
3 0 obj
<<
/Type /Page
/Parent 2 0 R
/MediaBox [0 0 612 792]
/Contents 4 0 R
/Resources <<
/Font <<
/F1 5 0 R
>>
>>
>>
endobj
4 0 obj
<<
/Length 44
>>
stream
BT
/F1 12 Tf
100 700 Td
(` + text + `) Tj
ET
endstream
endobj
5 0 obj
<<
/Type /Font
/Subtype /Type1
/BaseFont /Helvetica
>>
endobj
xref
0 6
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000115 00000 n
0000000262 00000 n
0000000356 00000 n
trailer
<<
/Size 6
/Root 1 0 R
>>
startxref
444
%%EOF`

	return os.WriteFile(filepath, []byte(pdfContent), 0644)
}
