package preload

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/source"
)

// Default thumbnail bounds for grid tiles.
const (
	DefaultThumbWidth  = 320
	DefaultThumbHeight = 320
)

// Asset is a loaded image: its natural size and a grid thumbnail.
type Asset struct {
	Width  int
	Height int
	Format string
	Thumb  image.Image
}

// Loader loads one image. Implementations must be safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, img catalog.Image) (Asset, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, img catalog.Image) (Asset, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, img catalog.Image) (Asset, error) {
	return f(ctx, img)
}

// DimStore records natural image dimensions once they are known.
type DimStore interface {
	Put(src string, width, height int, format string) error
}

// SourceLoader fetches and decodes images and derives a thumbnail.
type SourceLoader struct {
	Opener      source.Opener
	Dims        DimStore
	ThumbWidth  int
	ThumbHeight int
	Logger      *slog.Logger
}

// NewSourceLoader creates a loader reading through opener.
func NewSourceLoader(opener source.Opener, dims DimStore, logger *slog.Logger) *SourceLoader {
	return &SourceLoader{
		Opener:      opener,
		Dims:        dims,
		ThumbWidth:  DefaultThumbWidth,
		ThumbHeight: DefaultThumbHeight,
		Logger:      logger,
	}
}

// Load implements Loader.
func (l *SourceLoader) Load(ctx context.Context, img catalog.Image) (Asset, error) {
	rc, err := l.Opener.Open(ctx, img.Src, source.ModeDefault)
	if err != nil {
		return Asset{}, err
	}
	defer rc.Close()

	src, format, err := source.Decode(rc)
	if err != nil {
		return Asset{}, err
	}
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	b := src.Bounds()
	asset := Asset{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Thumb:  Thumbnail(src, l.ThumbWidth, l.ThumbHeight),
	}

	if l.Dims != nil {
		if err := l.Dims.Put(img.Src, asset.Width, asset.Height, format); err != nil {
			l.log().Warn("Failed to cache image dimensions", "src", img.Src, "error", err)
		}
	}
	return asset, nil
}

func (l *SourceLoader) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Thumbnail scales src to fit within w×h, preserving aspect ratio. Images
// already inside the bounds are returned as-is.
func Thumbnail(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if w <= 0 || h <= 0 || (b.Dx() <= w && b.Dy() <= h) {
		return src
	}
	g := gift.New(gift.ResizeToFit(w, h, gift.LanczosResampling))
	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, src)
	return dst
}

// StaticLoader reports the descriptor dimensions without any I/O. Images
// without a source fail.
type StaticLoader struct{}

// Load implements Loader.
func (StaticLoader) Load(ctx context.Context, img catalog.Image) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	if img.Src == "" {
		return Asset{}, fmt.Errorf("%w: empty source", source.ErrNotFound)
	}
	w, h := img.Size()
	return Asset{Width: w, Height: h}, nil
}
