package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

type RenderPageResponse struct {
	Image     string `json:"image"` // base64 encoded PNG
	Page      int    `json:"page"`
	PageCount int    `json:"pageCount"`
	Error     string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}

	log.Printf("Starting render service on port %s", port)

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/render/page", renderPageHandler)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// renderPageHandler renders one page of a posted PDF to a PNG.
// Form fields: pdf (file), page (zero-based, default 0), dpi (default 150),
// width (optional resize in pixels)
func renderPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(32 << 20) // 32MB max
	if err != nil {
		sendErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	// Get the file from the form
	file, header, err := r.FormFile("pdf")
	if err != nil {
		sendErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	page := 0
	if pageStr := r.FormValue("page"); pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 0 {
			sendErrorResponse(w, "Invalid page number", http.StatusBadRequest)
			return
		}
	}

	dpi := 150.0
	if dpiStr := r.FormValue("dpi"); dpiStr != "" {
		dpi, err = strconv.ParseFloat(dpiStr, 64)
		if err != nil || dpi <= 0 || dpi > 1200 {
			sendErrorResponse(w, "Invalid dpi", http.StatusBadRequest)
			return
		}
	}

	width := 0
	if widthStr := r.FormValue("width"); widthStr != "" {
		width, err = strconv.Atoi(widthStr)
		if err != nil || width < 0 {
			sendErrorResponse(w, "Invalid width", http.StatusBadRequest)
			return
		}
	}

	log.Printf("Rendering page %d of %s at %.0f dpi", page, header.Filename, dpi)

	// Read file content
	pdfData, err := io.ReadAll(file)
	if err != nil {
		sendErrorResponse(w, "Failed to read PDF file", http.StatusInternalServerError)
		return
	}

	imageData, pageCount, err := renderPage(pdfData, page, dpi, width)
	if err != nil {
		log.Printf("Render error: %v", err)
		sendErrorResponse(w, fmt.Sprintf("Render failed: %v", err), http.StatusInternalServerError)
		return
	}

	response := RenderPageResponse{
		Image:     imageData,
		Page:      page,
		PageCount: pageCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func renderPage(pdfData []byte, page int, dpi float64, width int) (string, int, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return "", 0, fmt.Errorf("PDF has no pages")
	}
	if page >= pageCount {
		return "", pageCount, fmt.Errorf("page %d out of range, document has %d pages", page, pageCount)
	}

	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return "", pageCount, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	result := imaging.Clone(img)
	if width > 0 && width != result.Bounds().Dx() {
		result = imaging.Resize(result, width, 0, imaging.Lanczos)
		result = imaging.Sharpen(result, 0.5)
	}

	// Encode to PNG
	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return "", pageCount, fmt.Errorf("failed to encode PNG: %w", err)
	}

	// Return base64 encoded image
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return encoded, pageCount, nil
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{
		"error": message,
	}
	json.NewEncoder(w).Encode(response)
}
