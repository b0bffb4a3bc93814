package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/gift"
)

// halfBlock draws two vertically stacked pixels in one cell: the foreground
// colors the top half, the background the bottom half.
const halfBlock = "▀"

// Mosaic renders img into cols×rows terminal cells using half blocks, so each
// cell shows two pixels. brightness scales every pixel towards black and is
// used for the reveal fade.
func Mosaic(img image.Image, cols, rows int, brightness float64) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	g := gift.New(gift.Resize(cols, rows*2, gift.BoxResampling))
	px := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(px, img)

	var b strings.Builder
	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < cols; col++ {
			top := scale(px.NRGBAAt(col, row*2), brightness)
			bottom := scale(px.NRGBAAt(col, row*2+1), brightness)
			b.WriteString(lipgloss.NewStyle().
				Foreground(hex(top)).
				Background(hex(bottom)).
				Render(halfBlock))
		}
	}
	return b.String()
}

// Placeholder renders a cols×rows box with a centered label, used for tiles
// whose image failed to load.
func Placeholder(label string, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	if lipgloss.Width(label) > cols {
		label = truncate(label, cols)
	}
	return styleTileMissing.
		Width(cols).
		Height(rows).
		MaxHeight(rows).
		Align(lipgloss.Center, lipgloss.Center).
		Render(label)
}

// Blank renders cols×rows of empty cells.
func Blank(cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	line := strings.Repeat(" ", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func scale(c color.NRGBA, brightness float64) color.NRGBA {
	if brightness >= 1 {
		return c
	}
	if brightness < 0 {
		brightness = 0
	}
	return color.NRGBA{
		R: uint8(float64(c.R) * brightness),
		G: uint8(float64(c.G) * brightness),
		B: uint8(float64(c.B) * brightness),
		A: c.A,
	}
}

func hex(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

func truncate(s string, width int) string {
	if width <= 1 {
		return ""
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
