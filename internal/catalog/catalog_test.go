package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"/images/Portrait/image-01.jpg", "image-01"},
		{"image-02.jpeg", "image-02"},
		{"https://cdn.example.com/a/b/photo.final.png?w=200#x", "photo.final"},
		{"C:\\photos\\holiday.jpg", "holiday"},
		{"/images/shoot#2.jpg", "shoot#2"},
		{"what?.jpg", "what?"},
		{"/images/a?b/c.jpg", "c"},
		{"http://example.com/gallery/", "gallery"},
		{"/images/noext", "noext"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.src))
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]Entry{
		{Src: "/a.jpg", Alt: "A", Width: 10, Height: 20},
		{URL: "/b.jpg", Title: "Bee"},
		{Image: "/c.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, Image{Src: "/a.jpg", Alt: "A", Width: 10, Height: 20}, got[0])
	assert.Equal(t, "/b.jpg", got[1].Src)
	assert.Equal(t, "Bee", got[1].Alt)
	assert.Equal(t, "Image 3", got[2].Alt)
	assert.False(t, got[2].HasSize())

	_, err = Normalize([]Entry{{Alt: "no source"}})
	assert.Error(t, err)
}

func TestImageSizeDefaults(t *testing.T) {
	w, h := Image{Src: "x"}.Size()
	assert.Equal(t, DefaultWidth, w)
	assert.Equal(t, DefaultHeight, h)
	assert.InDelta(t, 2.0, Image{Width: 200, Height: 100}.AspectRatio(), 1e-9)
}

func TestPatternGenerate(t *testing.T) {
	imgs := Pattern{Base: "/images/Portrait/image", Count: 3}.Generate()
	require.Len(t, imgs, 3)
	assert.Equal(t, "/images/Portrait/image-01.jpg", imgs[0].Src)
	assert.Equal(t, "/images/Portrait/image-03.jpg", imgs[2].Src)
	assert.Equal(t, "Image 2", imgs[1].Alt)
	assert.Equal(t, DefaultWidth, imgs[0].Width)

	imgs = Pattern{Base: "p", Count: 2, Start: 9, Pad: 3, Ext: ".png", AltPrefix: "Shot"}.Generate()
	assert.Equal(t, "p-009.png", imgs[0].Src)
	assert.Equal(t, "p-010.png", imgs[1].Src)
	assert.Equal(t, "Shot 10", imgs[1].Alt)
}

const testManifest = `
owner: shotbymizu
genres:
  - key: portrait
    label: Portrait
    images:
      - src: /images/Portrait/cover.jpg
        alt: Cover
        width: 1200
        height: 1800
    pattern:
      base: /images/Portrait/image
      count: 2
  - key: aerial
    label: Aerial & Landscape
    pattern:
      base: /images/Aerial-Landscape/image
      count: 1
`

func TestManifestImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "shotbymizu", m.Owner)
	assert.Equal(t, []string{"portrait", "aerial"}, m.Keys())

	portrait, err := m.Images("portrait")
	require.NoError(t, err)
	require.Len(t, portrait, 3)
	assert.Equal(t, "/images/Portrait/cover.jpg", portrait[0].Src)
	assert.Equal(t, "/images/Portrait/image-02.jpg", portrait[2].Src)

	all, err := m.Images(AllGenres)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "/images/Aerial-Landscape/image-01.jpg", all[3].Src)

	_, err = m.Images("missing")
	assert.Error(t, err)
}

func TestParseManifestRejectsBadGenres(t *testing.T) {
	_, err := ParseManifest([]byte("genres:\n  - key: all\n"))
	assert.Error(t, err)

	_, err = ParseManifest([]byte("genres:\n  - key: a\n  - key: a\n"))
	assert.Error(t, err)

	_, err = ParseManifest([]byte("genres:\n  - label: nokey\n"))
	assert.Error(t, err)
}
