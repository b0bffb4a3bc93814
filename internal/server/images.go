// Package server serves a gallery's image root over HTTP with CORS headers.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
)

// imageTypes lists the extensions served and their content types.
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImagesConfig configures the image handler.
type ImagesConfig struct {
	Root string
	// AllowOrigin is sent as Access-Control-Allow-Origin. Empty sends no CORS
	// headers, which makes cross-origin images unexportable.
	AllowOrigin  string
	CacheControl string
}

// Images serves image files below a root directory.
type Images struct {
	cfg    ImagesConfig
	logger *slog.Logger

	served  atomic.Int64
	missing atomic.Int64
}

// ImageStatus reports request counters.
type ImageStatus struct {
	Root    string `json:"root"`
	Served  int64  `json:"served"`
	Missing int64  `json:"missing"`
}

// NewImages creates an image handler for cfg.Root.
func NewImages(cfg ImagesConfig, logger *slog.Logger) (*Images, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=3600"
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open image root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image root %s is not a directory", cfg.Root)
	}
	return &Images{cfg: cfg, logger: logger}, nil
}

// Handler returns the HTTP handler for image requests.
func (h *Images) Handler() http.Handler {
	return http.HandlerFunc(h.serveImage)
}

func (h *Images) serveImage(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AllowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", h.cfg.AllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		if h.cfg.AllowOrigin != "*" {
			w.Header().Add("Vary", "Origin")
		}
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, contentType, ok := parseImagePath(r.URL.Path)
	if !ok {
		h.missing.Add(1)
		http.NotFound(w, r)
		return
	}

	f, err := os.OpenInRoot(h.cfg.Root, filepath.FromSlash(name))
	if err != nil {
		h.missing.Add(1)
		if !errors.Is(err, fs.ErrNotExist) {
			h.log().Warn("Failed to open image", "path", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.missing.Add(1)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", h.cfg.CacheControl)
	w.Header().Set("Content-Type", contentType)
	h.served.Add(1)
	h.log().Debug("Serving image", "path", name, "bytes", info.Size())
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// Status returns the current counters.
func (h *Images) Status() ImageStatus {
	return ImageStatus{
		Root:    h.cfg.Root,
		Served:  h.served.Load(),
		Missing: h.missing.Load(),
	}
}

// StatusHandler returns an HTTP handler that serves the counters as JSON.
func (h *Images) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.Status(), h.log())
	})
}

// ManifestHandler serves the catalog of one genre (or all) as JSON. The genre
// is taken from the "genre" query parameter.
func ManifestHandler(m *catalog.Manifest, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		images, err := m.Images(r.URL.Query().Get("genre"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, struct {
			Owner  string          `json:"owner"`
			Genres []string        `json:"genres"`
			Images []catalog.Image `json:"images"`
		}{Owner: m.Owner, Genres: m.Keys(), Images: images}, logger)
	})
}

func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Images) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseImagePath cleans a request path and checks it names a served image
// type. It returns the root-relative name and its content type.
func parseImagePath(requestPath string) (string, string, bool) {
	clean := path.Clean("/" + requestPath)
	name := strings.TrimPrefix(clean, "/")
	if name == "" {
		return "", "", false
	}
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return "", "", false
		}
	}
	ext := strings.ToLower(path.Ext(name))
	contentType, ok := imageTypes[ext]
	if !ok {
		if contentType = mime.TypeByExtension(ext); !strings.HasPrefix(contentType, "image/") {
			return "", "", false
		}
	}
	return name, contentType, true
}
