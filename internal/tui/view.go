package tui

import (
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/gallery"
	"github.com/MeKo-Tech/photogallery/internal/lightbox"
)

const (
	headerLines = 2
	footerLines = 1
	minTileRows = 2
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width <= 0 || m.height <= 0 {
		return "Loading…"
	}
	if lb := m.lightboxActive(); lb != nil {
		return m.viewLightbox(lb)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		m.viewGrid(),
		m.viewFooter(),
	)
}

func (m *Model) viewHeader() string {
	s := m.gallery.Snapshot()
	title := styleTitle.Render(m.cfg.Title)
	info := styleDim.Render(formatCount(s))
	line := title + "  " + info
	if m.progress != "" {
		line += "  " + styleStatus.Render(m.progress)
	}
	return line + "\n" + m.viewStatus()
}

func (m *Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.failed {
		return styleError.Render(m.status)
	}
	return styleSuccess.Render(m.status)
}

func (m *Model) viewFooter() string {
	return styleDim.Render("←/→ select • ↑/↓ scroll • enter open • r reload • q quit")
}

func formatCount(s gallery.State) string {
	n := len(s.Images)
	switch {
	case n == 0:
		return "no images"
	case !s.Ready:
		return plural(n, "image")
	default:
		return plural(s.RevealedCount(), "tile") + " of " + plural(n, "image")
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func (m *Model) viewHeight() int {
	return max(1, m.height-headerLines-footerLines)
}

func (m *Model) contentHeight() int {
	if m.placement == nil {
		return 0
	}
	h := 0
	for i := range m.placement.Rects {
		if r, ok := m.tileCell(i); ok {
			h = max(h, r.Max.Y)
		}
	}
	return h
}

// tileCell returns the cell rectangle of tile i in content coordinates.
func (m *Model) tileCell(i int) (image.Rectangle, bool) {
	if m.placement == nil {
		return image.Rectangle{}, false
	}
	r, ok := m.placement.Measure(i)
	if !ok {
		return image.Rectangle{}, false
	}
	// Columns render at whole-cell widths, so derive x from the column index.
	w := max(1, int(math.Floor(m.placement.ColumnWidth)))
	col := int(math.Round(r.Left / (m.placement.ColumnWidth + tileGap)))
	x := col * (w + tileGap)
	y := int(math.Round(r.Top))
	h := max(minTileRows, int(math.Round(r.Height)))
	return image.Rect(x, y, x+w, y+h), true
}

func (m *Model) tileAt(x, y int) (int, bool) {
	if m.placement == nil {
		return 0, false
	}
	p := image.Pt(x, y)
	for i := range m.placement.Rects {
		if r, ok := m.tileCell(i); ok && p.In(r) {
			return i, true
		}
	}
	return 0, false
}

func (m *Model) viewGrid() string {
	height := m.viewHeight()
	s := m.gallery.Snapshot()
	if m.placement == nil || len(s.Images) == 0 {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styleDim.Render("No images"))
	}

	selected := -1
	if s.Order != nil {
		selected = m.indexAtRank(m.cursor)
	}

	cols := make([]string, 0, len(m.placement.Columns)*2)
	for c, indices := range m.placement.Columns {
		if c > 0 {
			cols = append(cols, " ")
		}
		cols = append(cols, m.renderColumn(s, indices, selected))
	}
	content := strings.Split(lipgloss.JoinHorizontal(lipgloss.Top, cols...), "\n")

	start := min(m.scroll, len(content))
	end := min(start+height, len(content))
	window := content[start:end]
	for len(window) < height {
		window = append(window, "")
	}
	return strings.Join(window, "\n")
}

func (m *Model) renderColumn(s gallery.State, indices []int, selected int) string {
	var parts []string
	y := 0
	width := max(1, int(math.Floor(m.placement.ColumnWidth)))
	for _, i := range indices {
		r, ok := m.tileCell(i)
		if !ok {
			continue
		}
		if gap := r.Min.Y - y; gap > 0 {
			parts = append(parts, Blank(width, gap))
		}
		parts = append(parts, m.renderTile(s, i, r.Dx(), r.Dy(), i == selected))
		y = r.Max.Y
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderTile draws the image rows plus a one-line caption.
func (m *Model) renderTile(s gallery.State, i, cols, rows int, selected bool) string {
	img := s.Images[i]
	if !s.Revealed[i] {
		return Blank(cols, rows)
	}

	body := m.renderImage(s, i, img, cols, rows-1)
	label := truncateOrPad(altText(img), cols)
	if selected {
		label = styleSelected.Render(label)
	} else {
		label = styleDim.Render(label)
	}
	if rows <= 1 {
		return label
	}
	return body + "\n" + label
}

func (m *Model) renderImage(s gallery.State, i int, img catalog.Image, cols, rows int) string {
	st, ok := s.Status(i)
	switch {
	case !ok || rows <= 0:
		return Blank(cols, rows)
	case !st.Loaded:
		return Placeholder("⚠ "+altText(img), cols, rows)
	case st.Asset.Thumb == nil:
		return styleTileAlt.
			Width(cols).
			Height(rows).
			MaxHeight(rows).
			Align(lipgloss.Center, lipgloss.Center).
			Render(truncateOrPad(altText(img), cols))
	}

	brightness, fading := m.brightness[i]
	if fading {
		return Mosaic(st.Asset.Thumb, cols, rows, brightness)
	}
	key := mosaicKey{index: i, cols: cols, rows: rows}
	if cached, ok := m.mosaics[key]; ok {
		return cached
	}
	out := Mosaic(st.Asset.Thumb, cols, rows, 1)
	m.mosaics[key] = out
	return out
}

func altText(img catalog.Image) string {
	if img.Alt != "" {
		return img.Alt
	}
	return catalog.BaseName(img.Src)
}

func truncateOrPad(s string, width int) string {
	if lipgloss.Width(s) > width {
		s = truncate(s, width)
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (m *Model) dialogSize() (int, int) {
	w := max(20, m.width*3/4)
	h := max(8, m.height*3/4)
	return min(w, m.width), min(h, m.height)
}

// dialogRect is the screen rectangle of the lightbox content box.
func (m *Model) dialogRect() image.Rectangle {
	w, h := m.dialogSize()
	x := (m.width - w) / 2
	y := (m.height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

func (m *Model) viewLightbox(lb *lightbox.Controller) string {
	w, h := m.dialogSize()
	index, _ := lb.Index()
	s := m.gallery.Snapshot()

	style := styleDialog
	if lb.Focus() == lightbox.FocusContainer {
		style = styleDialogFocus
	}
	innerW := max(1, w-style.GetHorizontalFrameSize())
	innerH := max(1, h-style.GetVerticalFrameSize())

	counter := styleCounter.Render(lb.Counter())
	controls := m.viewControls(lb)
	caption := ""
	if index < len(s.Images) {
		caption = truncateOrPad(altText(s.Images[index]), innerW)
	}

	imageRows := max(1, innerH-3)
	var body string
	if index < len(s.Images) {
		body = m.renderLightboxImage(s, index, innerW, imageRows)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.PlaceHorizontal(innerW, lipgloss.Right, counter),
		lipgloss.PlaceHorizontal(innerW, lipgloss.Center, body),
		styleStatus.Render(caption),
		lipgloss.PlaceHorizontal(innerW, lipgloss.Center, controls),
	)
	if lb.Phase() != lightbox.PhaseOpen {
		content = styleDim.Render(content)
	}

	dialog := style.
		Width(innerW + style.GetHorizontalPadding()).
		Height(innerH + style.GetVerticalPadding()).
		MaxHeight(h).
		Render(content)
	view := lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	if m.status != "" {
		lines := strings.Split(view, "\n")
		lines[len(lines)-1] = m.viewStatus()
		view = strings.Join(lines, "\n")
	}
	return view
}

func (m *Model) renderLightboxImage(s gallery.State, i, cols, rows int) string {
	st, ok := s.Status(i)
	if !ok || !st.Loaded || st.Asset.Thumb == nil {
		return Placeholder(altText(s.Images[i]), cols, rows)
	}
	b := st.Asset.Thumb.Bounds()
	// Half blocks give two pixel rows per cell.
	fitCols := cols
	fitRows := int(math.Round(float64(fitCols) * float64(b.Dy()) / float64(b.Dx()) / 2))
	if fitRows > rows {
		fitRows = rows
		fitCols = int(math.Round(float64(fitRows) * 2 * float64(b.Dx()) / float64(b.Dy())))
	}
	return Mosaic(st.Asset.Thumb, max(1, fitCols), max(1, fitRows), 1)
}

func (m *Model) viewControls(lb *lightbox.Controller) string {
	prev := styleControl.Render("‹ prev")
	next := styleControl.Render("next ›")
	if lb.Focus() == lightbox.FocusNext {
		next = styleControlFocus.Render("next ›")
	}
	closeBtn := styleControl.Render("esc close")
	save := styleControl.Render("w save")
	if lb.Count() <= 1 {
		return lipgloss.JoinHorizontal(lipgloss.Top, save, closeBtn)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, prev, next, save, closeBtn)
}
