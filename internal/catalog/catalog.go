// Package catalog defines image descriptors and the gallery manifest format.
package catalog

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Default intrinsic dimensions assumed when a descriptor does not declare them.
const (
	DefaultWidth  = 1600
	DefaultHeight = 1067
)

// Image describes a single catalog entry. Width and Height are the intrinsic
// pixel dimensions; zero means unknown.
type Image struct {
	Src     string `yaml:"src" json:"src"`
	Alt     string `yaml:"alt" json:"alt"`
	Caption string `yaml:"caption,omitempty" json:"caption,omitempty"`
	Width   int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height  int    `yaml:"height,omitempty" json:"height,omitempty"`
}

// HasSize reports whether both intrinsic dimensions are known.
func (img Image) HasSize() bool {
	return img.Width > 0 && img.Height > 0
}

// Size returns the intrinsic dimensions, falling back to the defaults.
func (img Image) Size() (int, int) {
	if img.HasSize() {
		return img.Width, img.Height
	}
	return DefaultWidth, DefaultHeight
}

// AspectRatio returns width/height.
func (img Image) AspectRatio() float64 {
	w, h := img.Size()
	return float64(w) / float64(h)
}

// WithSize returns a copy with the given dimensions.
func (img Image) WithSize(w, h int) Image {
	img.Width = w
	img.Height = h
	return img
}

// BaseName returns the last path element of Src without its extension.
// Query strings and fragments are ignored for http(s) URLs only; local paths
// may contain '?' and '#'.
func BaseName(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		p = u.Path
	}
	p = strings.ReplaceAll(p, "\\", "/")
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Entry is the loosely-typed manifest form of an image. The source may be
// given as src, url or image; the alt text as alt or title.
type Entry struct {
	Src     string `yaml:"src"`
	URL     string `yaml:"url"`
	Image   string `yaml:"image"`
	Alt     string `yaml:"alt"`
	Title   string `yaml:"title"`
	Caption string `yaml:"caption"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// Normalize converts manifest entries into descriptors. Entries without any
// source reference are rejected; missing alt text becomes "Image N".
func Normalize(entries []Entry) ([]Image, error) {
	out := make([]Image, 0, len(entries))
	for i, e := range entries {
		src := firstNonEmpty(e.Src, e.URL, e.Image)
		if src == "" {
			return nil, fmt.Errorf("entry %d has no source reference", i)
		}
		alt := firstNonEmpty(e.Alt, e.Title)
		if alt == "" {
			alt = fmt.Sprintf("Image %d", i+1)
		}
		out = append(out, Image{
			Src:     src,
			Alt:     alt,
			Caption: e.Caption,
			Width:   e.Width,
			Height:  e.Height,
		})
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Pattern declares a numbered series of images such as
// /images/Portrait/image-01.jpg … image-15.jpg.
type Pattern struct {
	Base      string `yaml:"base"`
	Count     int    `yaml:"count"`
	Start     int    `yaml:"start"`
	Pad       int    `yaml:"pad"`
	Ext       string `yaml:"ext"`
	AltPrefix string `yaml:"alt_prefix"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

// Generate expands the pattern into descriptors.
func (p Pattern) Generate() []Image {
	start := p.Start
	if start == 0 {
		start = 1
	}
	pad := p.Pad
	if pad <= 0 {
		pad = 2
	}
	ext := p.Ext
	if ext == "" {
		ext = ".jpg"
	}
	altPrefix := p.AltPrefix
	if altPrefix == "" {
		altPrefix = "Image"
	}
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}

	out := make([]Image, 0, max(p.Count, 0))
	for i := start; i < start+p.Count; i++ {
		out = append(out, Image{
			Src:    fmt.Sprintf("%s-%0*d%s", p.Base, pad, i, ext),
			Alt:    fmt.Sprintf("%s %d", altPrefix, i),
			Width:  w,
			Height: h,
		})
	}
	return out
}
