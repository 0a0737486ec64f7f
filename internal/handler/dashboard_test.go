package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDashboardHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DashboardPage), []byte("<html>dashboard</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewDashboardHandler(dir)

	tests := []struct {
		name       string
		serve      http.HandlerFunc
		path       string
		wantStatus int
		wantBody   string
	}{
		{"page", h.Page, "/chatwoot", http.StatusOK, "dashboard"},
		{"asset", h.Assets, "/app.js", http.StatusOK, "console.log"},
		{"missing asset", h.Assets, "/nope.js", http.StatusNotFound, ""},
		{"no directory listing", h.Assets, "/", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			tt.serve(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestDashboardHandler_HasAsset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	h := NewDashboardHandler(dir)

	tests := map[string]bool{
		"/app.js":           true,
		"/missing.js":       false,
		"/img":              false,
		"/img/":             false,
		"/":                 false,
		"/../app.js":        true,
		"/../../etc/passwd": false,
	}
	for p, want := range tests {
		if got := h.HasAsset(p); got != want {
			t.Errorf("HasAsset(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestDashboardHandler_NotInstalled(t *testing.T) {
	h := NewDashboardHandler(t.TempDir())
	if h.Available() {
		t.Fatal("expected dashboard to be unavailable")
	}

	req := httptest.NewRequest(http.MethodGet, "/chatwoot", nil)
	rec := httptest.NewRecorder()
	h.Page(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
