package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DashboardPage is the file served at GET /chatwoot.
const DashboardPage = "chatwoot.html"

// DashboardHandler serves the embedded Chatwoot dashboard app and its
// static assets from a public directory.
type DashboardHandler struct {
	dir   string
	files http.Handler
}

// NewDashboardHandler creates a DashboardHandler rooted at dir.
func NewDashboardHandler(dir string) *DashboardHandler {
	return &DashboardHandler{
		dir:   dir,
		files: http.FileServer(http.Dir(dir)),
	}
}

// Available reports whether the dashboard page exists on disk.
func (h *DashboardHandler) Available() bool {
	info, err := os.Stat(filepath.Join(h.dir, DashboardPage))
	return err == nil && !info.IsDir()
}

// Page handles GET /chatwoot.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	if !h.Available() {
		writeError(w, http.StatusNotFound, "DASHBOARD_NOT_FOUND", "Dashboard is not installed", "")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.dir, DashboardPage))
}

// HasAsset reports whether urlPath names a regular file in the public
// directory.
func (h *DashboardHandler) HasAsset(urlPath string) bool {
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return false
	}
	name := filepath.Join(h.dir, filepath.FromSlash(path.Clean("/"+urlPath)))
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// Assets serves other files from the public directory. Directory listings
// are not exposed.
func (h *DashboardHandler) Assets(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", "")
		return
	}
	h.files.ServeHTTP(w, r)
}
