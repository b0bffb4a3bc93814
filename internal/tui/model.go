// Package tui is an interactive terminal gallery: tiles are revealed in visual
// order once preloading settles, and any tile opens in a lightbox.
package tui

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/gallery"
	"github.com/MeKo-Tech/photogallery/internal/input"
	"github.com/MeKo-Tech/photogallery/internal/layout"
	"github.com/MeKo-Tech/photogallery/internal/lightbox"
	"github.com/MeKo-Tech/photogallery/internal/page"
	"github.com/MeKo-Tech/photogallery/internal/preload"
	"github.com/MeKo-Tech/photogallery/internal/schedule"
	"github.com/MeKo-Tech/photogallery/internal/watermark"
)

const (
	defaultFade  = 500 * time.Millisecond
	tickInterval = time.Second / 30
	minTileCols  = 24
	tileGap      = 1
	maxColumns   = 6
)

// Config configures the terminal gallery.
type Config struct {
	Title        string
	Images       []catalog.Image
	Owner        string
	Loader       preload.Loader
	Exporter     gallery.Exporter
	Sink         watermark.Sink
	Workers      int
	Columns      int
	Reveal       layout.Options
	ExitDuration time.Duration
	FadeDuration time.Duration
	Logger       *slog.Logger
}

type wakeMsg struct{}

type tickMsg time.Time

// Model is the bubbletea model. The gallery engine runs on the bubbletea
// goroutine: scheduled callbacks are pumped from Update.
type Model struct {
	cfg       Config
	sched     schedule.Scheduler
	pump      func()
	wake      chan struct{}
	closeLoop func()

	gallery *gallery.Gallery
	lock    *page.ScrollLock
	keys    *input.Bus

	width, height int
	scroll        int
	cursor        int
	scrollLocked  bool
	placement     *layout.Placement

	generation uint64
	faded      []bool
	fades      map[int]*gween.Tween
	brightness map[int]float64
	mosaics    map[mosaicKey]string
	ticking    bool
	lastTick   time.Time

	progress string
	status   string
	failed   bool
	quitting bool
}

type mosaicKey struct {
	index, cols, rows int
}

// New creates a model driven by a real-time loop that wakes the bubbletea
// program whenever callbacks are pending.
func New(cfg Config) *Model {
	wake := make(chan struct{}, 1)
	loop := schedule.NewLoop(schedule.WithWaker(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}))
	m := newModel(cfg, loop, loop.RunPending)
	m.wake = wake
	m.closeLoop = loop.Close
	return m
}

func newModel(cfg Config, sched schedule.Scheduler, pump func()) *Model {
	if cfg.FadeDuration <= 0 {
		cfg.FadeDuration = defaultFade
	}
	if cfg.Title == "" {
		cfg.Title = "Gallery"
	}

	m := &Model{
		cfg:        cfg,
		sched:      sched,
		pump:       pump,
		keys:       input.NewBus(),
		fades:      make(map[int]*gween.Tween),
		brightness: make(map[int]float64),
		mosaics:    make(map[mosaicKey]string),
	}
	m.lock = page.NewScrollLock(func(locked bool) { m.scrollLocked = locked })
	m.gallery = gallery.New(sched, gallery.Options{
		Loader:       cfg.Loader,
		Probe:        m.probe,
		Exporter:     cfg.Exporter,
		Sink:         cfg.Sink,
		ScrollLock:   m.lock,
		Keys:         m.keys,
		Workers:      cfg.Workers,
		Reveal:       cfg.Reveal,
		ExitDuration: cfg.ExitDuration,
		Logger:       cfg.Logger,
		OnChange:     m.onChange,
		OnProgress: func(completed, total, failed int) {
			m.progress = fmt.Sprintf("Loading %d/%d", completed, total)
			if failed > 0 {
				m.progress += fmt.Sprintf(" (%d failed)", failed)
			}
		},
	})
	return m
}

// Gallery returns the underlying gallery engine.
func (m *Model) Gallery() *gallery.Gallery {
	return m.gallery
}

func (m *Model) Init() tea.Cmd {
	m.gallery.SetCatalog(m.cfg.Images)
	return m.waitForWake()
}

func (m *Model) waitForWake() tea.Cmd {
	if m.wake == nil {
		return nil
	}
	wake := m.wake
	return func() tea.Msg {
		<-wake
		return wakeMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case wakeMsg:
		m.pump()
		return m, tea.Batch(m.waitForWake(), m.tick())

	case tickMsg:
		m.ticking = false
		m.advanceFades(time.Time(msg))
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.placement = m.columns().Place(m.gallery.Snapshot().Sized())
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		if m.quitting {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.tick())

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, m.tick()
	}
	return m, nil
}

// probe lays out the settled catalog in terminal cells.
func (m *Model) probe(s gallery.State) layout.Probe {
	m.placement = m.columns().Place(s.Sized())
	return m.placement
}

func (m *Model) columns() layout.Columns {
	width := m.width
	if width <= 0 {
		width = 96
	}
	count := m.cfg.Columns
	if count <= 0 {
		count = max(1, min(maxColumns, width/minTileCols))
	}
	return layout.Columns{
		Count:  count,
		Width:  float64(width),
		Gap:    tileGap,
		YScale: 0.5,
	}
}

func (m *Model) onChange() {
	s := m.gallery.Snapshot()
	if s.Generation != m.generation {
		m.generation = s.Generation
		m.faded = make([]bool, len(s.Images))
		clear(m.fades)
		clear(m.brightness)
		clear(m.mosaics)
		m.cursor = 0
		m.scroll = 0
	}
	for i, revealed := range s.Revealed {
		if revealed && !m.faded[i] {
			m.faded[i] = true
			m.fades[i] = gween.New(0, 1, float32(m.cfg.FadeDuration.Seconds()), ease.OutQuad)
			m.brightness[i] = 0
		}
	}
	if s.Ready && m.progress != "" && s.RevealedCount() == len(s.Images) {
		m.progress = ""
	}
}

func (m *Model) tick() tea.Cmd {
	if m.ticking || len(m.fades) == 0 {
		return nil
	}
	m.ticking = true
	if m.lastTick.IsZero() {
		m.lastTick = time.Now()
	}
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) advanceFades(now time.Time) {
	dt := now.Sub(m.lastTick)
	m.lastTick = now
	for i, tw := range m.fades {
		v, done := tw.Update(float32(dt.Seconds()))
		m.brightness[i] = float64(v)
		if done {
			delete(m.fades, i)
			delete(m.brightness, i)
		}
	}
	if len(m.fades) == 0 {
		m.lastTick = time.Time{}
	}
}

func (m *Model) lightboxActive() *lightbox.Controller {
	lb := m.gallery.Lightbox()
	if lb == nil || lb.Phase() == lightbox.PhaseClosed {
		return nil
	}
	return lb
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	if lb := m.lightboxActive(); lb != nil {
		switch key {
		case "esc":
			m.keys.Dispatch(input.KeyEscape)
		case "left", "h":
			m.keys.Dispatch(input.KeyArrowLeft)
		case "right", "l":
			m.keys.Dispatch(input.KeyArrowRight)
		case "w":
			m.export()
		case "q":
			return m.quit()
		}
		return nil
	}

	switch key {
	case "q", "esc":
		return m.quit()
	case "left", "h":
		m.moveCursor(-1)
	case "right", "l", "tab":
		m.moveCursor(1)
	case "up", "k":
		m.scrollBy(-1)
	case "down", "j":
		m.scrollBy(1)
	case "pgup":
		m.scrollBy(-m.viewHeight())
	case "pgdown":
		m.scrollBy(m.viewHeight())
	case "enter", " ":
		m.open(m.indexAtRank(m.cursor))
	case "r":
		m.status = ""
		m.gallery.SetCatalog(m.cfg.Images)
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(-3)
		return
	case tea.MouseButtonWheelDown:
		m.scrollBy(3)
		return
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}

	if lb := m.lightboxActive(); lb != nil {
		if image.Pt(msg.X, msg.Y).In(m.dialogRect()) {
			lb.PointerDown(lightbox.TargetContent)
		} else {
			lb.PointerDown(lightbox.TargetBackdrop)
		}
		return
	}

	if i, ok := m.tileAt(msg.X, msg.Y-headerLines+m.scroll); ok {
		m.cursor = m.rankOf(i)
		m.open(i)
	}
}

func (m *Model) open(index int) {
	if err := m.gallery.Open(index); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) export() {
	err := m.gallery.Export(context.Background(), m.cfg.Owner, func(r gallery.ExportResult) {
		if r.Err != nil {
			m.setStatus("Export of "+r.Job.Filename()+" failed: "+r.Err.Error(), true)
			return
		}
		m.setStatus("Saved "+r.Path, false)
	})
	if err != nil {
		m.setStatus("Export unavailable: "+err.Error(), true)
		return
	}
	m.setStatus("Exporting watermarked copy…", false)
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.gallery.Close()
	if m.closeLoop != nil {
		m.closeLoop()
	}
	return tea.Quit
}

func (m *Model) moveCursor(delta int) {
	n := len(m.gallery.Snapshot().Images)
	if n == 0 {
		return
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
	if r, ok := m.tileCell(m.indexAtRank(m.cursor)); ok {
		if r.Min.Y < m.scroll {
			m.scroll = r.Min.Y
		} else if r.Max.Y > m.scroll+m.viewHeight() {
			m.scroll = r.Max.Y - m.viewHeight()
		}
		m.clampScroll()
	}
}

func (m *Model) scrollBy(delta int) {
	if m.scrollLocked {
		return
	}
	m.scroll += delta
	m.clampScroll()
}

func (m *Model) clampScroll() {
	limit := 0
	if m.placement != nil {
		limit = max(0, m.contentHeight()-m.viewHeight())
	}
	m.scroll = max(0, min(m.scroll, limit))
}

// indexAtRank maps a visual rank back to a tile index.
func (m *Model) indexAtRank(rank int) int {
	s := m.gallery.Snapshot()
	for i, r := range s.Order {
		if r == rank {
			return i
		}
	}
	return rank
}

func (m *Model) rankOf(index int) int {
	s := m.gallery.Snapshot()
	if index < len(s.Order) {
		return s.Order[index]
	}
	return index
}
