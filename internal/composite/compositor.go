// Package composite blends straight-alpha layers onto NRGBA surfaces.
package composite

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Surface returns an NRGBA copy of src with its origin moved to (0,0), sized
// to the natural dimensions of src.
func Surface(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Over blends src onto dst with its top-left corner at at. Pixels outside dst
// are skipped.
func Over(dst *image.NRGBA, src image.Image, at image.Point) {
	sb := src.Bounds()
	target := sb.Add(at.Sub(sb.Min)).Intersect(dst.Bounds())

	for y := target.Min.Y; y < target.Max.Y; y++ {
		for x := target.Min.X; x < target.Max.X; x++ {
			sx := x - at.X + sb.Min.X
			sy := y - at.Y + sb.Min.Y
			s := color.NRGBAModel.Convert(src.At(sx, sy)).(color.NRGBA)
			if s.A == 0 {
				continue
			}
			dst.SetNRGBA(x, y, blend(s, dst.NRGBAAt(x, y)))
		}
	}
}

// FillOver blends a single color over rect, clipped to dst.
func FillOver(dst *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	rect = rect.Intersect(dst.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.SetNRGBA(x, y, blend(c, dst.NRGBAAt(x, y)))
		}
	}
}

// blend computes s over d in straight alpha.
func blend(s, d color.NRGBA) color.NRGBA {
	sa := float64(s.A) / 255.0
	da := float64(d.A) / 255.0

	outA := sa + da*(1.0-sa)
	if outA == 0 {
		return color.NRGBA{}
	}

	channel := func(srcVal, dstVal uint8) uint8 {
		srcPremult := float64(srcVal) * sa
		dstPremult := float64(dstVal) * da
		outPremult := srcPremult + dstPremult*(1.0-sa)
		return uint8(math.Round(outPremult / outA))
	}

	return color.NRGBA{
		R: channel(s.R, d.R),
		G: channel(s.G, d.G),
		B: channel(s.B, d.B),
		A: uint8(math.Round(outA * 255.0)),
	}
}
