package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress tracks and displays image preload progress on a single terminal line.
type Progress struct {
	startTime time.Time
	output    io.Writer
	unit      string
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a new progress tracker counting images.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		unit:      "images",
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// SetOutput redirects the progress line.
func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	p.output = w
	p.mu.Unlock()
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

type snapshot struct {
	completed, total, failed int
	elapsed                  time.Duration
	output                   io.Writer
	unit                     string
}

func (p *Progress) snapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{
		completed: p.completed,
		total:     p.total,
		failed:    p.failed,
		elapsed:   time.Since(p.startTime),
		output:    p.output,
		unit:      p.unit,
	}
}

// Line renders the current progress line without writing it.
func (p *Progress) Line() string {
	s := p.snapshot()

	var rate float64
	var eta time.Duration
	if s.completed > 0 && s.elapsed > 0 {
		rate = float64(s.completed) / s.elapsed.Seconds()
		if rate > 0 {
			eta = time.Duration(float64(s.total-s.completed)/rate) * time.Second
		}
	}

	barWidth := 30
	filledWidth := 0
	if s.total > 0 {
		filledWidth = s.completed * barWidth / s.total
	}
	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", barWidth-filledWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d/%d %s", bar, s.completed, s.total, s.unit)
	if s.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&b, " - %.1f %s/sec", rate, s.unit)
	if eta > 0 && s.completed < s.total {
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	if s.completed == s.total {
		fmt.Fprintf(&b, " - Done in %s", formatDuration(s.elapsed))
	}
	return b.String()
}

// Print displays the current progress to output, overwriting the previous line.
func (p *Progress) Print() {
	// Pad to clear previous line content
	fmt.Fprint(p.snapshot().output, "\r"+p.Line()+"          ")
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.snapshot().output)
	}
}

// Summary returns a summary string of the completed work.
func (p *Progress) Summary() string {
	s := p.snapshot()

	var rate float64
	if s.elapsed.Seconds() > 0 {
		rate = float64(s.completed) / s.elapsed.Seconds()
	}

	return fmt.Sprintf("Loaded %d/%d %s (%d failed) in %s (%.1f %s/sec)",
		s.completed-s.failed, s.total, s.unit, s.failed, formatDuration(s.elapsed), rate, s.unit)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
