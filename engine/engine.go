package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/goPresent/config"
	"github.com/drummonds/goPresent/database"
	"github.com/drummonds/goPresent/engine/pdfrender"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"
)

func (serverHandler *ServerHandler) importJobFunc(serverConfig config.ServerConfig, db database.Repository) {
	// Add panic recovery to prevent entire application crash
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in import job", "panic", r)
		}
	}()

	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		Logger.Error("Error reading config from database", "error", err)
	}
	Logger.Info("Starting import job on folder", "path", serverConfig.PresentationPath)
	presentationFiles, err := scanPresentationFiles(serverConfig.PresentationPath)
	if err != nil {
		Logger.Error("Error reading files from presentation folder", "error", err)
		return
	}
	for _, filePath := range presentationFiles {
		Logger.Debug("Starting processing for file", "filePath", filePath)
		if err := serverHandler.importPresentation(filePath); err != nil {
			Logger.Error("Failed to import presentation", "filePath", filePath, "error", err)
		}
	}
}

// importJobFuncWithTracking wraps the import job with progress tracking
func (serverHandler *ServerHandler) importJobFuncWithTracking(serverConfig config.ServerConfig, db database.Repository, jobID ulid.ULID) {
	// Add panic recovery and update job status on panic
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in import job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	// Mark job as running
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Scanning presentation folder"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		Logger.Error("Error reading config from database", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to fetch config: %v", err))
		return
	}

	Logger.Info("Starting import job with tracking", "path", serverConfig.PresentationPath, "jobID", jobID)

	presentationFiles, err := scanPresentationFiles(serverConfig.PresentationPath)
	if err != nil {
		Logger.Error("Error scanning presentation folder", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Scan failed: %v", err))
		return
	}

	totalFiles := len(presentationFiles)
	if totalFiles == 0 {
		Logger.Info("No presentations found in folder")
		db.CompleteJob(jobID, `{"filesProcessed": 0, "message": "No files found"}`)
		return
	}

	Logger.Info("Found presentations to process", "count", totalFiles)
	processedFiles := 0
	errorCount := 0
	skippedCount := 0

	// Process each file with detailed step tracking
	for i, filePath := range presentationFiles {
		fileName := filepath.Base(filePath)

		Logger.Info("Processing presentation with step-based import", "file", fileName, "number", i+1, "total", totalFiles)

		err := serverHandler.ImportPresentationWithSteps(filePath, db, jobID, i, totalFiles)
		if err != nil {
			if strings.HasPrefix(strings.ToLower(err.Error()), "duplicate") ||
				strings.HasPrefix(strings.ToLower(err.Error()), "already imported") {
				Logger.Info("Skipped presentation", "filePath", filePath, "reason", err)
				skippedCount++
				processedFiles++ // Count as processed (successfully skipped)
			} else {
				Logger.Error("Failed to import presentation", "filePath", filePath, "error", err)
				errorCount++
			}
		} else {
			processedFiles++
		}
	}

	// Refresh the note search index after import
	db.UpdateJobProgress(jobID, 95, "Refreshing note search index")
	if _, err := db.ReindexSearchNotes(); err != nil {
		Logger.Error("Note reindex failed after import", "error", err)
	}

	// Complete the job
	result := fmt.Sprintf(`{"filesProcessed": %d, "filesTotal": %d, "errors": %d, "skipped": %d}`, processedFiles, totalFiles, errorCount, skippedCount)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark job as complete", "error", err)
	}

	Logger.Info("Import job completed", "jobID", jobID, "processed", processedFiles, "total", totalFiles, "errors", errorCount, "skipped", skippedCount)
}

// cleanupJobFuncWithTracking removes database entries whose files are gone
// and imports decks found on disc without a database entry
func (serverHandler *ServerHandler) cleanupJobFuncWithTracking(db database.Repository, jobID ulid.ULID) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	// Mark job as running
	db.UpdateJobStatus(jobID, database.JobStatusRunning, "Fetching presentations from database")

	presentationsPtr, err := database.FetchAllPresentations(db)
	if err != nil {
		Logger.Error("Failed to fetch presentations for cleanup", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to fetch presentations: %v", err))
		return
	}

	if presentationsPtr == nil {
		db.CompleteJob(jobID, `{"scanned": 0, "deleted": 0, "imported": 0}`)
		return
	}

	presentations := *presentationsPtr
	totalPresentations := len(presentations)
	deletedCount := 0

	Logger.Info("Starting database cleanup", "total_presentations", totalPresentations)
	db.UpdateJobProgress(jobID, 10, fmt.Sprintf("Checking %d presentations", totalPresentations))

	// Step 1: Check each presentation's file and remove orphaned DB entries
	for i, presentation := range presentations {
		if presentation.Path == "" {
			Logger.Warn("Presentation has empty path, skipping", "id", presentation.ID, "name", presentation.Name)
			continue
		}

		progress := 10 + int((float64(i)/float64(totalPresentations))*50)
		db.UpdateJobProgress(jobID, progress, fmt.Sprintf("Checking presentation %d/%d", i+1, totalPresentations))

		if _, err := os.Stat(presentation.Path); os.IsNotExist(err) {
			Logger.Info("File not found, removing from database", "path", presentation.Path, "id", presentation.ID)

			serverHandler.closeSession(presentation.ULID.String())
			if err := database.DeletePresentation(presentation.ULID.String(), db); err != nil {
				Logger.Error("Failed to delete presentation from DB", "error", err, "id", presentation.ID)
				continue
			}
			deletedCount++
		}
	}

	// Step 2: Find decks on disc that have no database entry and import them
	db.UpdateJobProgress(jobID, 60, "Scanning for unregistered presentations")
	importedCount := 0
	unregistered, err := serverHandler.findUnregisteredPresentations(presentations)
	if err != nil {
		Logger.Error("Failed to scan for unregistered presentations", "error", err)
		// Continue with cleanup even if the scan fails
	} else {
		totalUnregistered := len(unregistered)
		for i, path := range unregistered {
			progress := 60 + int((float64(i)/float64(totalUnregistered))*30)
			db.UpdateJobProgress(jobID, progress, fmt.Sprintf("Importing deck %d/%d", i+1, totalUnregistered))

			if err := serverHandler.importPresentation(path); err != nil {
				Logger.Error("Failed to import unregistered presentation", "path", path, "error", err)
			} else {
				importedCount++
			}
		}
	}

	// Complete the job
	result := fmt.Sprintf(`{"scanned": %d, "deleted": %d, "imported": %d}`, totalPresentations, deletedCount, importedCount)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark cleanup job as complete", "error", err)
	}

	Logger.Info("Database cleanup job completed", "jobID", jobID, "scanned", totalPresentations, "deleted", deletedCount, "imported", importedCount)
}

// importPresentation adds one PDF to the database: page geometry from the
// render backend, hash and ULID, then per-page text for the notes panel.
// Already-imported files are skipped by path.
func (serverHandler *ServerHandler) importPresentation(filePath string) error {
	// Add panic recovery to prevent one bad deck from crashing the import job
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered while importing presentation", "filePath", filePath, "panic", r)
		}
	}()

	if existing, err := serverHandler.DB.GetPresentationByPath(filepath.ToSlash(filePath)); err == nil && existing != nil {
		Logger.Debug("Presentation already imported", "filePath", filePath)
		return nil
	}

	doc, err := pdfrender.Open(filePath, serverHandler.ServerConfig.Renderer)
	if err != nil {
		Logger.Error("Unable to open PDF, not added to database", "filePath", filePath, "error", err)
		return err
	}
	pageCount := doc.NumPages()
	flexible := doc.FlexiblePageSizes()
	doc.Close()

	presentation, err := database.AddNewPresentation(filePath, pageCount, flexible, serverHandler.DB)
	if err != nil {
		Logger.Error("Failed to add presentation to database", "filePath", filePath, "error", err)
		return err
	}
	serverHandler.registerDownloadRoute(*presentation)

	notes, err := extractSlideNotes(filePath, presentation.ULID.String())
	if err != nil {
		Logger.Warn("Text extraction failed, presentation stored without notes", "filePath", filePath, "error", err)
		return nil
	}
	if len(notes) > 0 {
		if err := serverHandler.DB.SaveSlideNotes(notes); err != nil {
			Logger.Error("Unable to save slide notes", "filePath", filePath, "error", err)
		}
	}
	Logger.Info("Added presentation to the database", "filePath", filePath, "pages", pageCount)
	return nil
}

// registerDownloadRoute exposes the raw PDF so a viewer can grab the original
// file. Live immediately after add.
func (serverHandler *ServerHandler) registerDownloadRoute(presentation database.Presentation) {
	downloadURL := "/presentation/download/" + presentation.ULID.String()
	serverHandler.Echo.File(downloadURL, presentation.Path)
}

// scanPresentationFiles lists all PDF files below the presentation folder.
func scanPresentationFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			Logger.Warn("Error accessing path during presentation scan", "path", path, "error", err)
			return nil // Continue walking
		}
		if info.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".pdf" {
			Logger.Debug("Skipping non-PDF file", "path", path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// extractSlideNotes pulls the plain text of every page for the presenter's
// notes panel and the search index. Pages without extractable text are
// skipped; scanned decks simply end up without notes.
func extractSlideNotes(filePath string, presentationULID string) ([]database.SlideNote, error) {
	fileName := filepath.Base(filePath)
	Logger.Debug("Extracting slide text", "fileName", fileName)
	pdfFile, reader, err := pdf.Open(filePath)
	if err != nil {
		Logger.Error("Unable to open PDF for text extraction", "fileName", fileName)
		return nil, err
	}
	defer pdfFile.Close()

	var notes []database.SlideNote
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			Logger.Warn("Unable to extract text from page", "fileName", fileName, "page", pageNum, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		notes = append(notes, database.SlideNote{
			PresentationULID: presentationULID,
			Page:             pageNum - 1, // pages are zero-based everywhere else
			Text:             text,
		})
	}
	Logger.Info("Slide text extracted", "fileName", fileName, "pagesWithText", len(notes))
	return notes, nil
}

// findUnregisteredPresentations scans the presentation folder for PDF files
// that are not present in the database
func (serverHandler *ServerHandler) findUnregisteredPresentations(presentations []database.Presentation) ([]string, error) {
	// Create a map of all paths in the database for quick lookup
	dbPaths := make(map[string]bool)
	for _, presentation := range presentations {
		if presentation.Path != "" {
			dbPaths[presentation.Path] = true
		}
	}

	files, err := scanPresentationFiles(serverHandler.ServerConfig.PresentationPath)
	if err != nil {
		return nil, err
	}

	var unregistered []string
	for _, path := range files {
		if !dbPaths[filepath.ToSlash(path)] {
			Logger.Info("Found unregistered presentation", "path", path)
			unregistered = append(unregistered, path)
		}
	}
	return unregistered, nil
}
