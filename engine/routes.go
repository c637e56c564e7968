package engine

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/drummonds/goPresent/config"
	"github.com/drummonds/goPresent/database"
	"github.com/drummonds/goPresent/internal/build"
	"github.com/labstack/echo/v4"
)

// thumbnailWidth is the pixel width thumbnails are resized to.
const thumbnailWidth = 256

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig

	sessionMu sync.Mutex
	sessions  map[string]*viewerSession
}

type noteResult struct {
	PresentationULID string `json:"presentationUlid"`
	PresentationName string `json:"presentationName"`
	Page             int    `json:"page"`
	Text             string `json:"text"`
}

// AddPresentationViewRoutes exposes every imported PDF on a download route
func (serverHandler *ServerHandler) AddPresentationViewRoutes() error {
	presentations, err := database.FetchAllPresentations(serverHandler.DB)
	if err != nil {
		return err
	}
	for _, presentation := range *presentations {
		serverHandler.registerDownloadRoute(presentation)
	}
	return nil
}

// GetAllPresentations lists every imported presentation
// @Summary List presentations
// @Description Retrieve all imported presentations
// @Tags Presentations
// @Accept json
// @Produce json
// @Success 200 {array} database.Presentation "List of presentations"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /presentations [get]
func (serverHandler *ServerHandler) GetAllPresentations(context echo.Context) error {
	presentations, err := database.FetchAllPresentations(serverHandler.DB)
	if err != nil {
		Logger.Error("Can't list presentations", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch presentations",
		})
	}
	if presentations == nil || *presentations == nil {
		return context.JSON(http.StatusOK, []database.Presentation{})
	}
	return context.JSON(http.StatusOK, *presentations)
}

// GetLatestPresentations gets the presentations that were imported last
// @Summary Get latest presentations
// @Description Retrieve the most recently imported presentations
// @Tags Presentations
// @Accept json
// @Produce json
// @Param limit query int false "Number of presentations to return (default: 20)"
// @Success 200 {array} database.Presentation "List of presentations"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /presentations/latest [get]
func (serverHandler *ServerHandler) GetLatestPresentations(context echo.Context) error {
	limit := 20
	if limitParam := context.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	presentations, err := database.FetchNewestPresentations(limit, serverHandler.DB)
	if err != nil {
		Logger.Error("Can't find latest presentations", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch presentations",
		})
	}
	if presentations == nil {
		presentations = []database.Presentation{}
	}
	return context.JSON(http.StatusOK, presentations)
}

// GetPresentation will return a presentation by ULID
// @Summary Get a presentation by ID
// @Description Retrieve presentation details by ULID
// @Tags Presentations
// @Accept json
// @Produce json
// @Param id path string true "Presentation ULID"
// @Success 200 {object} database.Presentation "Presentation details"
// @Failure 404 {object} map[string]interface{} "Presentation not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /presentation/{id} [get]
func (serverHandler *ServerHandler) GetPresentation(context echo.Context) error {
	ulidStr := context.Param("id")
	presentation, httpStatus, err := database.FetchPresentation(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("GetPresentation API call failed", "error", err)
		return context.JSON(httpStatus, err)
	}
	return context.JSON(httpStatus, presentation)
}

// DeletePresentationRoute removes a presentation from the database, and from
// disc when requested
// @Summary Delete a presentation
// @Description Delete a presentation from the database. Pass file=true to also remove the PDF from disc
// @Tags Presentations
// @Accept json
// @Produce json
// @Param id path string true "Presentation ULID"
// @Param file query bool false "Also delete the PDF file"
// @Success 200 {string} string "Presentation Deleted"
// @Failure 404 {object} map[string]interface{} "Presentation not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /presentation/{id} [delete]
func (serverHandler *ServerHandler) DeletePresentationRoute(context echo.Context) error {
	ulidStr := context.Param("id")
	presentation, httpStatus, err := database.FetchPresentation(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("Unable to find presentation to delete", "ulid", ulidStr, "error", err)
		return context.JSON(httpStatus, err)
	}

	serverHandler.closeSession(ulidStr)
	err = database.DeletePresentation(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("Unable to delete presentation from database", "name", presentation.Name, "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}

	if deleteFile, _ := strconv.ParseBool(context.QueryParam("file")); deleteFile {
		if err := os.Remove(presentation.Path); err != nil {
			Logger.Error("Unable to delete presentation file", "path", presentation.Path, "error", err)
			return context.JSON(http.StatusInternalServerError, err)
		}
	}
	return context.JSON(http.StatusOK, "Presentation Deleted")
}

// UploadPresentations handles PDF decks uploaded from the frontend
// @Summary Upload a presentation
// @Description Upload a new PDF file to the presentation folder and import it
// @Tags Presentations
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file to upload"
// @Success 200 {object} database.Presentation "Imported presentation"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /presentation/upload [post]
func (serverHandler *ServerHandler) UploadPresentations(context echo.Context) error {
	request := context.Request()
	file, fileHeader, err := request.FormFile("file")
	if err != nil {
		Logger.Error("Problem finding uploaded file", "error", err)
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No file in upload",
		})
	}
	defer file.Close()

	if filepath.Ext(fileHeader.Filename) != ".pdf" {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Only PDF presentations are supported",
		})
	}

	path := filepath.ToSlash(filepath.Join(serverHandler.ServerConfig.PresentationPath, filepath.Base(fileHeader.Filename)))
	body, err := io.ReadAll(file)
	if err != nil {
		Logger.Error("Unable to read uploaded file", "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	err = os.WriteFile(path, body, 0644)
	if err != nil {
		Logger.Error("Unable to write uploaded file", "path", path, "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}

	if err := serverHandler.importPresentation(path); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
	}
	presentation, err := database.FetchPresentationFromPath(path, serverHandler.DB)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, err)
	}
	return context.JSON(http.StatusOK, presentation)
}

// GetPresentationPage renders one page of a presentation as PNG
// @Summary Get a rendered page
// @Description Render one page of a presentation at the viewer's frame size, or at an explicit pixel width
// @Tags Viewer
// @Produce png
// @Param id path string true "Presentation ULID"
// @Param page path int true "Zero-based page number"
// @Param width query int false "Render width in pixels (default: current frame)"
// @Success 200 {file} binary "PNG image"
// @Failure 404 {object} map[string]interface{} "Presentation or page not found"
// @Failure 500 {object} map[string]interface{} "Render failure"
// @Router /presentation/{id}/page/{page} [get]
func (serverHandler *ServerHandler) GetPresentationPage(context echo.Context) error {
	session, page, err := serverHandler.sessionAndPage(context)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Zero resolution means "for the current frame"; an explicit width
	// overrides it.
	resolution := 0.0
	if widthParam := context.QueryParam("width"); widthParam != "" {
		if w, err := strconv.Atoi(widthParam); err == nil && w > 0 {
			pageWidth, _ := session.doc.PageSize(page)
			part := slidePart(serverHandler.ServerConfig.NotesPosition)
			if effective := part.EffectiveWidth(pageWidth); effective > 0 {
				resolution = float64(w) / effective
			}
		}
	}

	img := session.cache.Pixmap(page, resolution)
	if img == nil {
		Logger.Error("Unable to render page", "ulid", session.presentation.ULID.String(), "page", page)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Render failure",
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		Logger.Error("Unable to encode page image", "page", page, "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	return context.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetPresentationThumb returns a small sharpened preview of one page
// @Summary Get a page thumbnail
// @Description Render a page and resize it to a thumbnail
// @Tags Viewer
// @Produce png
// @Param id path string true "Presentation ULID"
// @Param page path int true "Zero-based page number"
// @Success 200 {file} binary "PNG thumbnail"
// @Failure 404 {object} map[string]interface{} "Presentation or page not found"
// @Failure 500 {object} map[string]interface{} "Render failure"
// @Router /presentation/{id}/thumb/{page} [get]
func (serverHandler *ServerHandler) GetPresentationThumb(context echo.Context) error {
	session, page, err := serverHandler.sessionAndPage(context)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Thumbnails are rendered outside the page cache so low-resolution
	// previews never displace the full-size slides.
	part := slidePart(serverHandler.ServerConfig.NotesPosition)
	renderer, err := session.doc.NewRenderer(part)
	if err != nil {
		Logger.Error("Unable to create thumbnail renderer", "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	defer renderer.Close()

	pageWidth, _ := session.doc.PageSize(page)
	effective := part.EffectiveWidth(pageWidth)
	if effective <= 0 {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Invalid page",
		})
	}
	img, err := renderer.RenderPixmap(page, thumbnailWidth/effective)
	if err != nil || img == nil {
		Logger.Error("Unable to render thumbnail", "page", page, "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Render failure",
		})
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	thumb = imaging.Sharpen(thumb, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		Logger.Error("Unable to encode thumbnail", "page", page, "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	return context.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetPresentationNotesPage renders the speaker-notes half of one page
// @Summary Get the rendered notes half of a page
// @Description For decks carrying beamer-style second-screen notes, render the half of the page holding the speaker notes
// @Tags Viewer
// @Produce png
// @Param id path string true "Presentation ULID"
// @Param page path int true "Zero-based page number"
// @Param width query int false "Render width in pixels (default: 640)"
// @Success 200 {file} binary "PNG image"
// @Failure 400 {object} map[string]interface{} "Deck carries no notes half"
// @Failure 404 {object} map[string]interface{} "Presentation or page not found"
// @Failure 500 {object} map[string]interface{} "Render failure"
// @Router /presentation/{id}/notespage/{page} [get]
func (serverHandler *ServerHandler) GetPresentationNotesPage(context echo.Context) error {
	if serverHandler.ServerConfig.NotesPosition == "none" {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Notes position not configured",
		})
	}
	session, page, err := serverHandler.sessionAndPage(context)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	width := 640
	if widthParam := context.QueryParam("width"); widthParam != "" {
		if w, err := strconv.Atoi(widthParam); err == nil && w > 0 {
			width = w
		}
	}

	part := notesPart(serverHandler.ServerConfig.NotesPosition)
	renderer, err := session.doc.NewRenderer(part)
	if err != nil {
		Logger.Error("Unable to create notes renderer", "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	defer renderer.Close()

	pageWidth, _ := session.doc.PageSize(page)
	effective := part.EffectiveWidth(pageWidth)
	if effective <= 0 {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Invalid page",
		})
	}
	img, err := renderer.RenderPixmap(page, float64(width)/effective)
	if err != nil || img == nil {
		Logger.Error("Unable to render notes half", "page", page, "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Render failure",
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		Logger.Error("Unable to encode notes image", "page", page, "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	return context.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GotoPage navigates a presentation to a page
// @Summary Go to a page
// @Description Set the shown page, persist it, and prefetch pages around it
// @Tags Viewer
// @Accept json
// @Produce json
// @Param id path string true "Presentation ULID"
// @Param page path int true "Zero-based page number"
// @Success 200 {object} map[string]interface{} "Current page"
// @Failure 404 {object} map[string]interface{} "Presentation or page not found"
// @Router /presentation/{id}/goto/{page} [post]
func (serverHandler *ServerHandler) GotoPage(context echo.Context) error {
	session, page, err := serverHandler.sessionAndPage(context)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	session.cache.PageNumberChanged(page)
	if err := database.RecordCurrentPage(session.presentation.ULID.String(), page, serverHandler.DB); err != nil {
		Logger.Error("Unable to persist current page", "error", err)
	}
	return context.JSON(http.StatusOK, map[string]interface{}{
		"page":      page,
		"pageCount": session.doc.NumPages(),
	})
}

// UpdateViewerFrame reports the viewer's display size
// @Summary Update the viewer frame
// @Description Set the pixel size pages are rendered for. A changed size restarts the cache
// @Tags Viewer
// @Accept json
// @Produce json
// @Param id path string true "Presentation ULID"
// @Param width query number true "Frame width in pixels"
// @Param height query number true "Frame height in pixels"
// @Success 200 {object} map[string]interface{} "Accepted frame"
// @Failure 400 {object} map[string]interface{} "Invalid frame size"
// @Failure 404 {object} map[string]interface{} "Presentation not found"
// @Router /presentation/{id}/frame [post]
func (serverHandler *ServerHandler) UpdateViewerFrame(context echo.Context) error {
	session, err := serverHandler.session(context.Param("id"))
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	width, errW := strconv.ParseFloat(context.QueryParam("width"), 64)
	height, errH := strconv.ParseFloat(context.QueryParam("height"), 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid frame size",
		})
	}

	session.cache.UpdateFrame(width, height)
	return context.JSON(http.StatusOK, map[string]interface{}{
		"width":  width,
		"height": height,
	})
}

// GetCacheStats reports memory use of every open presentation cache
// @Summary Get cache statistics
// @Description Report cached page count, memory use and cached region per open presentation
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache statistics"
// @Router /cache/stats [get]
func (serverHandler *ServerHandler) GetCacheStats(context echo.Context) error {
	serverHandler.sessionMu.Lock()
	stats := make([]map[string]interface{}, 0, len(serverHandler.sessions))
	var totalMemory int64
	for ulidStr, session := range serverHandler.sessions {
		entries, usedMemory, regionFirst, regionLast := session.cache.Stats()
		totalMemory += usedMemory
		stats = append(stats, map[string]interface{}{
			"ulid":        ulidStr,
			"name":        session.presentation.Name,
			"pages":       entries,
			"usedMemory":  usedMemory,
			"regionFirst": regionFirst,
			"regionLast":  regionLast,
		})
	}
	serverHandler.sessionMu.Unlock()

	return context.JSON(http.StatusOK, map[string]interface{}{
		"presentations": stats,
		"totalMemory":   totalMemory,
		"maxMemory":     serverHandler.ServerConfig.CacheMaxBytes(),
	})
}

// GetSlideNotes returns the extracted text of every page
// @Summary Get all slide notes
// @Description Retrieve the extracted text of every page of a presentation
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Presentation ULID"
// @Success 200 {array} database.SlideNote "Slide notes"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /presentation/{id}/notes [get]
func (serverHandler *ServerHandler) GetSlideNotes(context echo.Context) error {
	ulidStr := context.Param("id")
	notes, err := serverHandler.DB.GetSlideNotes(ulidStr)
	if err != nil {
		Logger.Error("Unable to fetch slide notes", "ulid", ulidStr, "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}
	if notes == nil {
		notes = []database.SlideNote{}
	}
	return context.JSON(http.StatusOK, notes)
}

// GetSlideNote returns the extracted text of one page
// @Summary Get one slide note
// @Description Retrieve the extracted text of a single page
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Presentation ULID"
// @Param page path int true "Zero-based page number"
// @Success 200 {object} database.SlideNote "Slide note"
// @Failure 404 {object} map[string]interface{} "No note for page"
// @Router /presentation/{id}/notes/{page} [get]
func (serverHandler *ServerHandler) GetSlideNote(context echo.Context) error {
	ulidStr := context.Param("id")
	page, err := strconv.Atoi(context.Param("page"))
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid page number",
		})
	}
	note, err := serverHandler.DB.GetSlideNote(ulidStr, page)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "No note for page",
		})
	}
	return context.JSON(http.StatusOK, note)
}

// SearchNotes will take the search terms and search all slide notes using
// PostgreSQL full-text search
// @Summary Search slide notes
// @Description Search the extracted slide text of every presentation
// @Tags Search
// @Accept json
// @Produce json
// @Param term query string true "Search term"
// @Success 200 {array} noteResult "Search results"
// @Success 204 "No results found"
// @Failure 404 {string} string "Empty search term"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /search [get]
func (serverHandler *ServerHandler) SearchNotes(context echo.Context) error {
	searchTerm := context.QueryParam("term")
	if searchTerm == "" {
		return context.JSON(http.StatusNotFound, "Empty search term")
	}

	Logger.Debug("Performing full-text search over slide notes", "searchTerm", searchTerm)
	notes, err := serverHandler.DB.SearchNotes(searchTerm)
	if err != nil {
		Logger.Error("Search failed", "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}

	if len(notes) == 0 {
		Logger.Info("Search returned no results", "searchTerm", searchTerm)
		return context.JSON(http.StatusNoContent, nil)
	}

	// Resolve presentation names once per deck rather than per hit.
	names := make(map[string]string)
	results := make([]noteResult, 0, len(notes))
	for _, note := range notes {
		name, ok := names[note.PresentationULID]
		if !ok {
			if presentation, err := serverHandler.DB.GetPresentationByULID(note.PresentationULID); err == nil && presentation != nil {
				name = presentation.Name
			}
			names[note.PresentationULID] = name
		}
		results = append(results, noteResult{
			PresentationULID: note.PresentationULID,
			PresentationName: name,
			Page:             note.Page,
			Text:             note.Text,
		})
	}
	return context.JSON(http.StatusOK, results)
}

// ReindexSearchNotes rebuilds the full-text index over all slide notes
// @Summary Reindex slide notes
// @Description Rebuild the full-text search index for all slide notes
// @Tags Search
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Reindex successful"
// @Failure 500 {object} map[string]interface{} "Reindex failed"
// @Router /search/reindex [post]
func (serverHandler *ServerHandler) ReindexSearchNotes(context echo.Context) error {
	Logger.Info("Search reindex triggered via API")

	count, err := serverHandler.DB.ReindexSearchNotes()
	if err != nil {
		Logger.Error("Reindex failed", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Reindex failed",
			"message": err.Error(),
		})
	}

	Logger.Info("Search reindex completed", "notes", count)
	return context.JSON(http.StatusOK, map[string]interface{}{
		"message":         "Search reindex completed successfully",
		"notes_reindexed": count,
	})
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the application configuration, version, and database
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	aboutInfo := map[string]interface{}{
		"version":          build.Version,
		"renderer":         serverHandler.ServerConfig.Renderer,
		"notesPosition":    serverHandler.ServerConfig.NotesPosition,
		"cacheMaxMB":       serverHandler.ServerConfig.CacheMaxMB,
		"renderThreads":    serverHandler.ServerConfig.RenderThreads,
		"databaseType":     serverHandler.ServerConfig.DatabaseType,
		"databaseHost":     serverHandler.ServerConfig.DatabaseHost,
		"databasePort":     serverHandler.ServerConfig.DatabasePort,
		"databaseName":     serverHandler.ServerConfig.DatabaseDbname,
		"presentationPath": serverHandler.ServerConfig.PresentationPath,
	}

	return c.JSON(http.StatusOK, aboutInfo)
}

// RunImportNow triggers the presentation import manually
// @Summary Trigger presentation import
// @Description Manually trigger a rescan of the presentation folder
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with job ID"
// @Router /import [post]
func (serverHandler *ServerHandler) RunImportNow(c echo.Context) error {
	Logger.Info("Manual import triggered via API")

	// Create a job to track the import
	job, err := serverHandler.DB.CreateJob(database.JobTypeImport, "Starting presentation import")
	if err != nil {
		Logger.Error("Failed to create import job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	// Run the import in a goroutine so we can return immediately
	go func() {
		serverHandler.importJobFuncWithTracking(serverHandler.ServerConfig, serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Import started",
		"jobId":   job.ID.String(),
	})
}

// CleanDatabase checks all presentations and removes entries for missing
// files, and imports decks found on disc without a database entry
// @Summary Clean database
// @Description Remove database entries for missing files and import unregistered decks
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with jobId"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /clean [post]
func (serverHandler *ServerHandler) CleanDatabase(c echo.Context) error {
	Logger.Info("Database cleanup triggered via API")

	// Create a job to track the cleanup
	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "Starting database cleanup")
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create cleanup job",
		})
	}

	// Run cleanup in goroutine with job tracking
	go func() {
		serverHandler.cleanupJobFuncWithTracking(serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Database cleanup started",
		"jobId":   job.ID.String(),
	})
}

// sessionAndPage resolves the presentation session and page number shared by
// the viewer routes.
func (serverHandler *ServerHandler) sessionAndPage(context echo.Context) (*viewerSession, int, error) {
	session, err := serverHandler.session(context.Param("id"))
	if err != nil {
		return nil, 0, err
	}
	page, err := strconv.Atoi(context.Param("page"))
	if err != nil || page < 0 || page >= session.doc.NumPages() {
		return nil, 0, fmt.Errorf("invalid page number %q", context.Param("page"))
	}
	return session, page, nil
}

// RegisterRoutes wires every API route onto the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	api := serverHandler.Echo.Group("/api")

	api.GET("/presentations", serverHandler.GetAllPresentations)
	api.GET("/presentations/latest", serverHandler.GetLatestPresentations)
	api.GET("/presentation/:id", serverHandler.GetPresentation)
	api.DELETE("/presentation/:id", serverHandler.DeletePresentationRoute)
	api.POST("/presentation/upload", serverHandler.UploadPresentations)

	api.GET("/presentation/:id/page/:page", serverHandler.GetPresentationPage)
	api.GET("/presentation/:id/thumb/:page", serverHandler.GetPresentationThumb)
	api.GET("/presentation/:id/notespage/:page", serverHandler.GetPresentationNotesPage)
	api.POST("/presentation/:id/goto/:page", serverHandler.GotoPage)
	api.POST("/presentation/:id/frame", serverHandler.UpdateViewerFrame)

	api.GET("/presentation/:id/notes", serverHandler.GetSlideNotes)
	api.GET("/presentation/:id/notes/:page", serverHandler.GetSlideNote)
	api.GET("/search", serverHandler.SearchNotes)
	api.POST("/search/reindex", serverHandler.ReindexSearchNotes)

	api.GET("/cache/stats", serverHandler.GetCacheStats)
	api.GET("/about", serverHandler.GetAboutInfo)
	api.POST("/import", serverHandler.RunImportNow)
	api.POST("/clean", serverHandler.CleanDatabase)

	api.GET("/jobs", serverHandler.GetRecentJobs)
	api.GET("/jobs/active", serverHandler.GetActiveJobs)
	api.GET("/jobs/:id", serverHandler.GetJobRoute)
}
