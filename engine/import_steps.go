package engine

import (
	"fmt"
	"path/filepath"

	"github.com/drummonds/goPresent/database"
	"github.com/drummonds/goPresent/engine/pdfrender"
	"github.com/oklog/ulid/v2"
)

// ImportPresentationWithSteps processes a presentation through explicit steps
// with progress tracking
// Step 1: Open the PDF and read its page geometry
// Step 2: Calculate hash and create the database record
// Step 3: Extract per-page text for the notes panel and search
func (serverHandler *ServerHandler) ImportPresentationWithSteps(filePath string, db database.Repository, jobID ulid.ULID, fileNum, totalFiles int) error {
	fileName := filepath.Base(filePath)
	baseProgress := int((float64(fileNum) / float64(totalFiles)) * 90) // Reserve 90% for file processing, 10% for final steps

	if existing, err := db.GetPresentationByPath(filepath.ToSlash(filePath)); err == nil && existing != nil {
		return fmt.Errorf("already imported: %s", fileName)
	}

	// Step 1: Open the PDF and read its geometry
	stepMsg := fmt.Sprintf("[%d/%d] %s - Step 1: Reading page geometry", fileNum+1, totalFiles, fileName)
	db.UpdateJobProgress(jobID, baseProgress, stepMsg)
	Logger.Info("Step 1: Reading page geometry", "filePath", filePath)

	doc, err := pdfrender.Open(filePath, serverHandler.ServerConfig.Renderer)
	if err != nil {
		return fmt.Errorf("step 1 failed (open PDF): %w", err)
	}
	pageCount := doc.NumPages()
	flexible := doc.FlexiblePageSizes()
	doc.Close()

	if pageCount == 0 {
		return fmt.Errorf("step 1 failed: %s has no pages", fileName)
	}

	Logger.Info("Step 1 complete: Geometry read", "pages", pageCount, "flexible", flexible)

	// Step 2: Calculate hash and create the database record
	stepMsg = fmt.Sprintf("[%d/%d] %s - Step 2: Creating database record", fileNum+1, totalFiles, fileName)
	db.UpdateJobProgress(jobID, baseProgress+10, stepMsg)
	Logger.Info("Step 2: Creating database record", "filePath", filePath)

	presentation, err := database.AddNewPresentation(filePath, pageCount, flexible, db)
	if err != nil {
		return fmt.Errorf("duplicate or failed record (%s): %w", fileName, err)
	}
	serverHandler.registerDownloadRoute(*presentation)

	Logger.Info("Step 2 complete: Presentation record created", "ulid", presentation.ULID.String(), "hash", presentation.Hash)

	// Step 3: Extract per-page text
	// NOTE: This step should NEVER fail - if text extraction fails, we store the presentation without notes
	stepMsg = fmt.Sprintf("[%d/%d] %s - Step 3: Extracting slide text", fileNum+1, totalFiles, fileName)
	db.UpdateJobProgress(jobID, baseProgress+20, stepMsg)
	Logger.Info("Step 3: Extracting slide text", "filePath", filePath)

	notes, err := extractSlideNotes(filePath, presentation.ULID.String())
	if err != nil {
		Logger.Warn("Text extraction failed, storing presentation without notes", "error", err, "fileName", fileName)
		return nil
	}
	if len(notes) > 0 {
		if err := db.SaveSlideNotes(notes); err != nil {
			Logger.Error("Failed to save slide notes, but presentation is still saved", "error", err, "ulid", presentation.ULID.String())
			// Don't return error - the presentation record already exists, which is the important part
		}
	}

	Logger.Info("Step 3 complete: Slide text extracted", "pagesWithText", len(notes), "fileName", fileName)
	Logger.Info("Presentation import complete", "fileName", fileName, "ulid", presentation.ULID.String())

	return nil
}
