// Package watermark composites an owner label onto a full-resolution image
// and exports it as a JPEG download.
package watermark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/composite"
	"github.com/MeKo-Tech/photogallery/internal/source"
)

var (
	// ErrLoad is returned when the source image cannot be fetched or decoded.
	ErrLoad = errors.New("watermark: load failed")
	// ErrDraw is returned when compositing the label fails.
	ErrDraw = errors.New("watermark: draw failed")
	// ErrEncode is returned when the composited image cannot be encoded.
	ErrEncode = errors.New("watermark: encode failed")
	// ErrSave is returned when the sink rejects the output.
	ErrSave = errors.New("watermark: save failed")
)

// Options controls label geometry and output encoding.
type Options struct {
	Quality       int
	MinPadding    float64
	PaddingRatio  float64
	MinFontSize   float64
	FontSizeRatio float64
	Backing       color.NRGBA
	Text          color.NRGBA
}

// DefaultOptions returns the standard label style: white text on a 45% black
// backing, JPEG quality 92.
func DefaultOptions() Options {
	return Options{
		Quality:       92,
		MinPadding:    10,
		PaddingRatio:  0.012,
		MinFontSize:   14,
		FontSizeRatio: 0.018,
		Backing:       color.NRGBA{A: 115},
		Text:          color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Padding returns the label padding for an image of width w.
func (o Options) Padding(w int) float64 {
	return math.Max(o.MinPadding, float64(w)*o.PaddingRatio)
}

// FontSize returns the label font size for an image of width w.
func (o Options) FontSize(w int) float64 {
	return math.Max(o.MinFontSize, float64(w)*o.FontSizeRatio)
}

// Result is an encoded watermarked image.
type Result struct {
	Data     []byte
	Filename string
	Width    int
	Height   int
}

// Compositor renders watermarked copies. It is safe for concurrent use.
type Compositor struct {
	opener source.Opener
	opts   Options
	font   *opentype.Font
	logger *slog.Logger
}

// New creates a compositor that loads sources through opener.
func New(opener source.Opener, opts Options, logger *slog.Logger) (*Compositor, error) {
	def := DefaultOptions()
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.PaddingRatio <= 0 {
		opts.MinPadding, opts.PaddingRatio = def.MinPadding, def.PaddingRatio
	}
	if opts.FontSizeRatio <= 0 {
		opts.MinFontSize, opts.FontSizeRatio = def.MinFontSize, def.FontSizeRatio
	}
	if opts.Text == (color.NRGBA{}) {
		opts.Text = def.Text
	}
	if opts.Backing == (color.NRGBA{}) {
		opts.Backing = def.Backing
	}

	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}

	return &Compositor{
		opener: opener,
		opts:   opts,
		font:   f,
		logger: logger,
	}, nil
}

// Job is one export request: an image and the owner named in its label.
type Job struct {
	Image catalog.Image
	Owner string
}

// Filename returns the download name of the job's result.
func (j Job) Filename() string {
	return Filename(j.Image.Src, j.Owner)
}

// Label returns the uppercased copyright label for owner.
func Label(owner string) string {
	return cases.Upper(language.Und).String("© " + owner)
}

// Filename returns the download name for a watermarked copy of src:
// {base}-{owner without whitespace}-wm.jpg.
func Filename(src, owner string) string {
	brand := strings.Join(strings.Fields(owner), "")
	return catalog.BaseName(src) + "-" + brand + "-wm.jpg"
}

// Composite loads img at full resolution with cross-origin-safe access and
// returns the watermarked JPEG.
func (c *Compositor) Composite(ctx context.Context, img catalog.Image, owner string) (*Result, error) {
	rc, err := c.opener.Open(ctx, img.Src, source.ModeAnonymousCORS)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer rc.Close()

	return c.CompositeFrom(rc, img.Src, owner)
}

// CompositeFrom watermarks an encoded image read from r. src is only used to
// derive the output filename.
func (c *Compositor) CompositeFrom(r io.Reader, src, owner string) (*Result, error) {
	decoded, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	out, err := c.Render(decoded, owner)
	if err != nil {
		return nil, err
	}

	data, err := c.encode(out)
	if err != nil {
		return nil, err
	}

	b := out.Bounds()
	c.log().Debug("Watermark composited", "src", src, "width", b.Dx(), "height", b.Dy(), "bytes", len(data))
	return &Result{
		Data:     data,
		Filename: Filename(src, owner),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Render draws src onto a new surface at its natural size and adds the label
// in the bottom-right corner.
func (c *Compositor) Render(src image.Image, owner string) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrDraw, r)
		}
	}()

	out = composite.Surface(src)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    c.opts.FontSize(w),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDraw, err)
	}
	defer face.Close()

	label := Label(owner)
	metrics := face.Metrics()
	textW := font.MeasureString(face, label).Ceil()
	textH := (metrics.Ascent + metrics.Descent).Ceil()
	pad := c.opts.Padding(w)

	box := BackingRect(w, h, textW, textH, pad)
	composite.FillOver(out, box, c.opts.Backing)

	// The label is drawn on its own transparent layer the size of the box.
	half := int(math.Round(pad / 2))
	layer := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(c.opts.Text),
		Face: face,
		Dot:  fixed.P(half, box.Dy()-half-metrics.Descent.Ceil()),
	}
	d.DrawString(label)
	composite.Over(out, layer, box.Min)

	return out, nil
}

// BackingRect returns the label backing box for a w×h image: (textW+pad) by
// (textH+pad), inset by pad from the bottom-right corner.
func BackingRect(w, h, textW, textH int, pad float64) image.Rectangle {
	p := int(math.Round(pad))
	maxX, maxY := w-p, h-p
	return image.Rect(maxX-textW-p, maxY-textH-p, maxX, maxY)
}

func (c *Compositor) encode(img image.Image) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("%w: %v", ErrEncode, r)
		}
	}()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.opts.Quality)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Export composites img and hands the result to sink. It returns where the
// sink stored the file.
func (c *Compositor) Export(ctx context.Context, img catalog.Image, owner string, sink Sink) (string, error) {
	res, err := c.Composite(ctx, img, owner)
	if err != nil {
		c.log().Warn("Watermark export failed", "src", img.Src, "error", err)
		return "", err
	}
	location, err := sink.Save(res.Filename, res.Data)
	if err != nil {
		c.log().Warn("Watermark export failed", "src", img.Src, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSave, err)
	}
	c.log().Info("Watermarked copy saved", "file", location)
	return location, nil
}

func (c *Compositor) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
