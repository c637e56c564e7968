package webapp

import (
	"testing"
)

// TestGetDatabaseDisplay tests the database type display conversion
func TestGetDatabaseDisplay(t *testing.T) {
	tests := []struct {
		name     string
		dbType   string
		expected string
	}{
		{
			name:     "PostgreSQL",
			dbType:   "postgres",
			expected: "PostgreSQL",
		},
		{
			name:     "CockroachDB",
			dbType:   "cockroachdb",
			expected: "CockroachDB",
		},
		{
			name:     "SQLite",
			dbType:   "sqlite",
			expected: "SQLite",
		},
		{
			name:     "Unknown type",
			dbType:   "mongodb",
			expected: "mongodb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &AboutPage{
				aboutInfo: AboutInfo{
					DatabaseType: tt.dbType,
				},
			}
			got := page.getDatabaseDisplay()
			if got != tt.expected {
				t.Errorf("getDatabaseDisplay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestGetRendererDisplay tests the renderer display conversion
func TestGetRendererDisplay(t *testing.T) {
	tests := []struct {
		name     string
		renderer string
		expected string
	}{
		{
			name:     "Default renderer",
			renderer: "",
			expected: "MuPDF (fitz)",
		},
		{
			name:     "Fitz",
			renderer: "fitz",
			expected: "MuPDF (fitz)",
		},
		{
			name:     "PDFium",
			renderer: "pdfium",
			expected: "PDFium",
		},
		{
			name:     "Unknown renderer",
			renderer: "ghostscript",
			expected: "ghostscript",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &AboutPage{
				aboutInfo: AboutInfo{
					Renderer: tt.renderer,
				},
			}
			got := page.getRendererDisplay()
			if got != tt.expected {
				t.Errorf("getRendererDisplay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestGetCacheDisplay tests the cache limit display conversion
func TestGetCacheDisplay(t *testing.T) {
	tests := []struct {
		name       string
		cacheMaxMB int
		expected   string
	}{
		{
			name:       "Unlimited",
			cacheMaxMB: -1,
			expected:   "Unlimited",
		},
		{
			name:       "Bounded",
			cacheMaxMB: 200,
			expected:   "200 MB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &AboutPage{
				aboutInfo: AboutInfo{
					CacheMaxMB: tt.cacheMaxMB,
				},
			}
			got := page.getCacheDisplay()
			if got != tt.expected {
				t.Errorf("getCacheDisplay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestGetNotesDisplay tests the notes position display conversion
func TestGetNotesDisplay(t *testing.T) {
	tests := []struct {
		name     string
		position string
		expected string
	}{
		{
			name:     "Default",
			position: "",
			expected: "None",
		},
		{
			name:     "None",
			position: "none",
			expected: "None",
		},
		{
			name:     "Left",
			position: "left",
			expected: "Left half of each page",
		},
		{
			name:     "Right",
			position: "right",
			expected: "Right half of each page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &AboutPage{
				aboutInfo: AboutInfo{
					NotesPosition: tt.position,
				},
			}
			got := page.getNotesDisplay()
			if got != tt.expected {
				t.Errorf("getNotesDisplay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestAboutPageRenderStates tests that different states produce valid UI
func TestAboutPageRenderStates(t *testing.T) {
	t.Run("Loading state returns valid UI", func(t *testing.T) {
		page := &AboutPage{
			loading: true,
		}
		ui := page.Render()

		if ui == nil {
			t.Error("Loading state should return non-nil UI")
		}
	})

	t.Run("Error state returns valid UI", func(t *testing.T) {
		page := &AboutPage{
			loading: false,
			error:   "Network error",
		}
		ui := page.Render()

		if ui == nil {
			t.Error("Error state should return non-nil UI")
		}
	})

	t.Run("Loaded state returns valid UI", func(t *testing.T) {
		page := &AboutPage{
			aboutInfo: AboutInfo{
				Version:      "dev",
				Renderer:     "fitz",
				DatabaseType: "sqlite",
			},
		}
		ui := page.Render()

		if ui == nil {
			t.Error("Loaded state should return non-nil UI")
		}
	})
}
