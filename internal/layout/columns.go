package layout

import "github.com/MeKo-Tech/photogallery/internal/catalog"

// Columns is a multi-column layout: items keep their aspect ratio at column
// width and fill the columns top to bottom, left to right, with column heights
// balanced as evenly as the item order allows.
type Columns struct {
	Count int
	Width float64
	Gap   float64
	// YScale multiplies item heights, e.g. 0.5 for terminal cells that are
	// twice as tall as they are wide. Zero means 1.
	YScale float64
}

// Placement is the result of laying out a catalog. It implements Probe.
type Placement struct {
	Rects       []Rect
	Columns     [][]int
	ColumnWidth float64
	Height      float64
}

// Measure implements Probe.
func (p *Placement) Measure(index int) (Rect, bool) {
	if index < 0 || index >= len(p.Rects) {
		return Rect{}, false
	}
	return p.Rects[index], true
}

// ColumnWidth returns the width of one column.
func (c Columns) ColumnWidth() float64 {
	n := max(c.Count, 1)
	w := (c.Width - c.Gap*float64(n-1)) / float64(n)
	return max(w, 1)
}

// Place lays out images. Unknown dimensions use the catalog defaults.
func (c Columns) Place(images []catalog.Image) *Placement {
	n := max(c.Count, 1)
	colW := c.ColumnWidth()
	yScale := c.YScale
	if yScale <= 0 {
		yScale = 1
	}

	heights := make([]float64, len(images))
	var total, tallest float64
	for i, img := range images {
		heights[i] = colW / img.AspectRatio() * yScale
		total += heights[i]
		tallest = max(tallest, heights[i])
	}

	p := &Placement{
		Rects:       make([]Rect, len(images)),
		Columns:     make([][]int, n),
		ColumnWidth: colW,
	}
	if len(images) == 0 {
		return p
	}

	lo := max(tallest, total/float64(n))
	hi := total + c.Gap*float64(len(images))
	if !c.fits(heights, lo, n) {
		for i := 0; i < 60 && hi-lo > 0.01; i++ {
			mid := (lo + hi) / 2
			if c.fits(heights, mid, n) {
				hi = mid
			} else {
				lo = mid
			}
		}
	} else {
		hi = lo
	}

	col, y := 0, 0.0
	for i, h := range heights {
		if y > 0 && y+h > hi+epsilon && col < n-1 {
			col++
			y = 0
		}
		p.Rects[i] = Rect{
			Top:    y,
			Left:   float64(col) * (colW + c.Gap),
			Width:  colW,
			Height: h,
		}
		p.Columns[col] = append(p.Columns[col], i)
		y += h + c.Gap
		p.Height = max(p.Height, p.Rects[i].Bottom())
	}
	return p
}

const epsilon = 1e-6

// fits reports whether items fill at most n columns of the given height.
func (c Columns) fits(heights []float64, limit float64, n int) bool {
	col, y := 0, 0.0
	for _, h := range heights {
		if y > 0 && y+h > limit+epsilon {
			col++
			y = 0
			if col >= n {
				return false
			}
		}
		y += h + c.Gap
	}
	return true
}
