package webapp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestHandlerRoutes tests that all expected routes are registered
func TestHandlerRoutes(t *testing.T) {
	handler := Handler()

	tests := []struct {
		name string
		path string
	}{
		{
			name: "Home page",
			path: "/",
		},
		{
			name: "Browse page",
			path: "/browse",
		},
		{
			name: "Present page",
			path: "/present",
		},
		{
			name: "Import page",
			path: "/import",
		},
		{
			name: "Clean page",
			path: "/clean",
		},
		{
			name: "Search page",
			path: "/search",
		},
		{
			name: "Jobs page",
			path: "/jobs",
		},
		{
			name: "About page",
			path: "/about",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			// Should return 200 OK or at least not 404
			if rec.Code == http.StatusNotFound {
				t.Errorf("Route %s returned 404 Not Found - route may not be registered", tt.path)
			}

			// Should return HTML content
			contentType := rec.Header().Get("Content-Type")
			if !strings.Contains(contentType, "text/html") && rec.Code == http.StatusOK {
				t.Logf("Note: Route %s returned status %d with Content-Type: %s", tt.path, rec.Code, contentType)
			}

			t.Logf("Route %s returned status %d", tt.path, rec.Code)
		})
	}
}

// TestPresentPageRegistration specifically tests that the presentation view exists
func TestPresentPageRegistration(t *testing.T) {
	handler := Handler()

	req := httptest.NewRequest(http.MethodGet, "/present?id=01ARZ3NDEKTSV4RRFFQ69G5FAV", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Errorf("Present page returned 404 Not Found")
	} else {
		t.Logf("Present page successfully registered, returned status %d", rec.Code)
	}
}
