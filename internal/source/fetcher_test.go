package source

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type originRecorder struct {
	mu sync.Mutex
	v  string
}

func (o *originRecorder) set(v string) {
	o.mu.Lock()
	o.v = v
	o.mu.Unlock()
}

func (o *originRecorder) get() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestFetcher_LocalRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images", "Portrait"), 0o755))
	data := pngBytes(t, 4, 3)
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "Portrait", "image-01.png"), data, 0o644))

	f, err := NewFetcher(root, "", nil)
	require.NoError(t, err)

	rc, err := f.Open(context.Background(), "/images/Portrait/image-01.png", ModeDefault)
	require.NoError(t, err)
	assert.Equal(t, data, readAll(t, rc))

	_, err = f.Open(context.Background(), "/images/missing.png", ModeDefault)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetcher_LocalRootCannotEscape(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.png"), []byte("x"), 0o644))

	f, err := NewFetcher(root, "", nil)
	require.NoError(t, err)

	_, err = f.Open(context.Background(), "../secret.png", ModeDefault)
	assert.Error(t, err)
}

func TestFetcher_SameOriginSkipsCORS(t *testing.T) {
	data := pngBytes(t, 2, 2)
	var seen originRecorder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.set(r.Header.Get("Origin"))
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f, err := NewFetcher("", srv.URL, nil)
	require.NoError(t, err)

	rc, err := f.Open(context.Background(), "/images/a.png", ModeAnonymousCORS)
	require.NoError(t, err)
	assert.Equal(t, data, readAll(t, rc))
	assert.Empty(t, seen.get())
}

func TestFetcher_CrossOriginRequiresGrant(t *testing.T) {
	data := pngBytes(t, 2, 2)
	var grant, seen originRecorder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.set(r.Header.Get("Origin"))
		if g := grant.get(); g != "" {
			w.Header().Set("Access-Control-Allow-Origin", g)
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f, err := NewFetcher("", "https://gallery.example", nil)
	require.NoError(t, err)

	_, err = f.Open(context.Background(), srv.URL+"/a.png", ModeAnonymousCORS)
	assert.ErrorIs(t, err, ErrTainted)
	assert.Equal(t, "https://gallery.example", seen.get())

	// Display fetches do not require a grant.
	rc, err := f.Open(context.Background(), srv.URL+"/a.png", ModeDefault)
	require.NoError(t, err)
	readAll(t, rc)

	grant.set("*")
	rc, err = f.Open(context.Background(), srv.URL+"/a.png", ModeAnonymousCORS)
	require.NoError(t, err)
	assert.Equal(t, data, readAll(t, rc))

	grant.set("https://gallery.example")
	rc, err = f.Open(context.Background(), srv.URL+"/a.png", ModeAnonymousCORS)
	require.NoError(t, err)
	readAll(t, rc)
}

func TestFetcher_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, err := NewFetcher("", "", nil)
	require.NoError(t, err)

	_, err = f.Open(context.Background(), srv.URL+"/missing.png", ModeDefault)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Open(context.Background(), srv.URL+"/broken.png", ModeDefault)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewFetcher_RejectsBadOrigin(t *testing.T) {
	_, err := NewFetcher("", "ftp://example.com", nil)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	img, format, err := Decode(bytes.NewReader(pngBytes(t, 5, 7)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 5, 7), img.Bounds())

	_, _, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
