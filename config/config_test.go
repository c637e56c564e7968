package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckPresentationDir_ValidPath(t *testing.T) {
	tempDir := t.TempDir()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err := checkPresentationDir(tempDir, logger)
	if err != nil {
		t.Errorf("Expected no error with valid path, got: %v", err)
	}
}

func TestCheckPresentationDir_InvalidPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	invalidPath := "/nonexistent/path/to/presentations"
	err := checkPresentationDir(invalidPath, logger)
	if err == nil {
		t.Error("Expected error with invalid path, got nil")
	}
	t.Logf("Correctly returned error for invalid path: %v", err)
}

func TestCheckPresentationDir_File(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "slides.pdf")
	if err := os.WriteFile(filePath, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err := checkPresentationDir(filePath, logger)
	if err == nil {
		t.Error("Expected error when path is a plain file, got nil")
	}
}

func TestCacheMaxBytes(t *testing.T) {
	cfg := ServerConfig{CacheMaxMB: 200}
	if got := cfg.CacheMaxBytes(); got != 200<<20 {
		t.Errorf("Expected %d bytes, got %d", int64(200)<<20, got)
	}

	cfg.CacheMaxMB = -1
	if got := cfg.CacheMaxBytes(); got != -1 {
		t.Errorf("Expected -1 for unlimited cache, got %d", got)
	}

	cfg.CacheMaxMB = 0
	if got := cfg.CacheMaxBytes(); got != 0 {
		t.Errorf("Expected 0 for disabled cache, got %d", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("GOPRESENT_TEST_INT", "42")
	if got := getEnvInt("GOPRESENT_TEST_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	t.Setenv("GOPRESENT_TEST_INT", "not-a-number")
	if got := getEnvInt("GOPRESENT_TEST_INT", 7); got != 7 {
		t.Errorf("Expected default 7 for malformed value, got %d", got)
	}

	if got := getEnvInt("GOPRESENT_TEST_INT_UNSET", -1); got != -1 {
		t.Errorf("Expected default -1 for unset value, got %d", got)
	}
}
