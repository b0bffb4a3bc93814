package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/layout"
	"github.com/MeKo-Tech/photogallery/internal/server"
)

func TestSelectImages(t *testing.T) {
	images := catalog.Pattern{Base: "/images/Portrait/image", Count: 3}.Generate()

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "no arguments selects all",
			want: []string{"/images/Portrait/image-01.jpg", "/images/Portrait/image-02.jpg", "/images/Portrait/image-03.jpg"},
		},
		{
			name: "by index",
			args: []string{"2", "0"},
			want: []string{"/images/Portrait/image-03.jpg", "/images/Portrait/image-01.jpg"},
		},
		{
			name: "by source",
			args: []string{"/images/Portrait/image-02.jpg"},
			want: []string{"/images/Portrait/image-02.jpg"},
		},
		{
			name: "unknown source passes through",
			args: []string{"https://cdn.example.com/x.jpg"},
			want: []string{"https://cdn.example.com/x.jpg"},
		},
		{
			name:    "index out of range",
			args:    []string{"3"},
			wantErr: true,
		},
		{
			name:    "negative index",
			args:    []string{"-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectImages(images, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			srcs := make([]string, len(got))
			for i, img := range got {
				srcs[i] = img.Src
			}
			assert.Equal(t, tt.want, srcs)
		})
	}
}

func TestRenderOrder(t *testing.T) {
	images := catalog.Pattern{Base: "/images/Street/image", Count: 4}.Generate()
	cols := layout.Columns{Count: 2, Width: 1000, Gap: 10}
	delay := layout.NewScheduler(nil, layout.Options{}).Delay

	out := renderOrder(images, cols, delay)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "60ms")
	assert.Contains(t, out, "390ms")

	// Column-major placement puts image-03 at the top of the second column,
	// so it is revealed second.
	lines := strings.Split(out, "\n")
	var rows []string
	for _, line := range lines {
		if strings.Contains(line, "/images/") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "image-01.jpg")
	assert.Contains(t, rows[1], "image-03.jpg")
	assert.Contains(t, rows[2], "image-02.jpg")
	assert.Contains(t, rows[3], "image-04.jpg")
}

func TestServeMux(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "a.jpg"), []byte("jpeg"), 0o644))

	images, err := server.NewImages(server.ImagesConfig{Root: root, AllowOrigin: "*"}, nil)
	require.NoError(t, err)
	manifest, err := catalog.ParseManifest([]byte(`
owner: Jane Doe
genres:
  - key: street
    images:
      - src: /images/a.jpg
        alt: Crossing
`))
	require.NoError(t, err)

	logger = newLogger(&bytes.Buffer{})
	mux := newServeMux(images, manifest, "")

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/images/a.jpg", http.StatusOK, "jpeg"},
		{"/images/missing.jpg", http.StatusNotFound, ""},
		{"/manifest.json", http.StatusOK, "Crossing"},
		{"/manifest.json?genre=nope", http.StatusNotFound, ""},
		{"/", http.StatusFound, ""},
		{"/elsewhere", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServeFlagsBound(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", viper.GetString("serve.addr"))
	assert.Equal(t, "*", viper.GetString("serve.allow_origin"))
	assert.Equal(t, "public, max-age=3600", viper.GetString("serve.cache_control"))

	require.NoError(t, serveCmd.Flags().Set("demo-dir", "site"))
	t.Cleanup(func() { _ = serveCmd.Flags().Set("demo-dir", "") })
	assert.Equal(t, "site", viper.GetString("serve.demo_dir"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)
	l.Info("Preload settled", "loaded", 3)
	l.Debug("hidden")

	assert.Contains(t, buf.String(), "Preload settled")
	assert.Contains(t, buf.String(), "loaded=3")
	assert.NotContains(t, buf.String(), "hidden")
}
