package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
)

func TestParseImagePath(t *testing.T) {
	t.Run("jpeg", func(t *testing.T) {
		name, ct, ok := parseImagePath("/images/Portrait/image-01.jpg")
		require.True(t, ok)
		assert.Equal(t, "images/Portrait/image-01.jpg", name)
		assert.Equal(t, "image/jpeg", ct)
	})

	t.Run("upper-case extension", func(t *testing.T) {
		_, ct, ok := parseImagePath("/a/B.PNG")
		require.True(t, ok)
		assert.Equal(t, "image/png", ct)
	})

	t.Run("traversal is cleaned", func(t *testing.T) {
		name, _, ok := parseImagePath("/../../etc/x.jpg")
		require.True(t, ok)
		assert.Equal(t, "etc/x.jpg", name)
	})

	t.Run("reject non-image", func(t *testing.T) {
		_, _, ok := parseImagePath("/config.yaml")
		assert.False(t, ok)
	})

	t.Run("reject dotfiles", func(t *testing.T) {
		_, _, ok := parseImagePath("/.cache/a.jpg")
		assert.False(t, ok)
	})

	t.Run("reject root", func(t *testing.T) {
		_, _, ok := parseImagePath("/")
		assert.False(t, ok)
	})
}

func newImages(t *testing.T, allow string) *Images {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "a.jpg"), []byte("jpegdata"), 0o644))

	h, err := NewImages(ImagesConfig{Root: root, AllowOrigin: allow}, nil)
	require.NoError(t, err)
	return h
}

func TestImages_ServesWithCORS(t *testing.T) {
	h := newImages(t, "*")

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a.jpg", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpegdata", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, int64(1), h.Status().Served)
	assert.Equal(t, int64(1), h.Status().Missing)
}

func TestImages_NoCORSWhenDisabled(t *testing.T) {
	h := newImages(t, "")

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestImages_Preflight(t *testing.T) {
	h := newImages(t, "https://gallery.example")

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/images/a.jpg", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://gallery.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/images/a.jpg", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewImages_RequiresDirectory(t *testing.T) {
	_, err := NewImages(ImagesConfig{Root: filepath.Join(t.TempDir(), "nope")}, nil)
	assert.Error(t, err)
}

func TestManifestHandler(t *testing.T) {
	m, err := catalog.ParseManifest([]byte(`
owner: shotbymizu
genres:
  - key: portrait
    pattern: {base: /images/Portrait/image, count: 2}
  - key: street
    images:
      - src: /images/Street/a.jpg
`))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ManifestHandler(m, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Owner  string          `json:"owner"`
		Genres []string        `json:"genres"`
		Images []catalog.Image `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "shotbymizu", body.Owner)
	assert.Equal(t, []string{"portrait", "street"}, body.Genres)
	assert.Len(t, body.Images, 3)

	rec = httptest.NewRecorder()
	ManifestHandler(m, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.json?genre=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
