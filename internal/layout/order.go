// Package layout derives the visual reveal order of gallery tiles from their
// rendered positions and schedules the staggered reveal.
package layout

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// Default reveal timing: the tile at rank r is revealed Base + r*Step after
// layout settles.
const (
	DefaultRevealBase = 60 * time.Millisecond
	DefaultRevealStep = 110 * time.Millisecond
)

// Rect is the rendered box of a tile in page pixels.
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Bottom returns Top + Height.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Right returns Left + Width.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Probe reports the rendered box of the tile at index. ok is false when the
// tile is not rendered (yet).
type Probe interface {
	Measure(index int) (rect Rect, ok bool)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(index int) (Rect, bool)

// Measure calls f.
func (f ProbeFunc) Measure(index int) (Rect, bool) {
	return f(index)
}

type tilePos struct {
	index     int
	top, left float64
}

// VisualOrder ranks n tiles by rounded top, then rounded left, then catalog
// index. The result maps tile index to rank and is a permutation of 0..n-1.
// Tiles the probe cannot measure rank after every measured tile.
func VisualOrder(n int, probe Probe) []int {
	order, _ := visualOrder(n, probe)
	return order
}

func visualOrder(n int, probe Probe) (order []int, misses []int) {
	pos := make([]tilePos, n)
	for i := range pos {
		pos[i] = tilePos{index: i, top: math.Inf(1), left: math.Inf(1)}
		if probe == nil {
			misses = append(misses, i)
			continue
		}
		r, ok := probe.Measure(i)
		if !ok || math.IsNaN(r.Top) || math.IsNaN(r.Left) {
			misses = append(misses, i)
			continue
		}
		pos[i].top = math.Round(r.Top)
		pos[i].left = math.Round(r.Left)
	}

	slices.SortFunc(pos, func(a, b tilePos) int {
		if c := cmp.Compare(a.top, b.top); c != 0 {
			return c
		}
		if c := cmp.Compare(a.left, b.left); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	order = make([]int, n)
	for rank, p := range pos {
		order[p.index] = rank
	}
	return order, misses
}

// RevealDelay returns the default reveal delay for rank.
func RevealDelay(rank int) time.Duration {
	return DefaultRevealBase + time.Duration(rank)*DefaultRevealStep
}
