package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultBarWidth = 30

// progressBar renders evolution progress on a terminal. It is silent when
// the output is not a TTY.
type progressBar struct {
	w       io.Writer
	width   int
	enabled bool
	drawn   bool
}

func newProgressBar(w io.Writer) *progressBar {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return &progressBar{w: w}
	}
	width := defaultBarWidth
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
		// leave room for the counters
		width = max(10, min(defaultBarWidth, cols-40))
	}
	return &progressBar{w: w, width: width, enabled: true}
}

// Update redraws the bar. It matches evolution.ProgressFunc.
func (p *progressBar) Update(done, total int, best *float64) {
	if !p.enabled {
		return
	}
	fmt.Fprint(p.w, "\r"+renderBar(p.width, done, total, best))
	p.drawn = true
}

// Finish ends the bar line.
func (p *progressBar) Finish() {
	if p.enabled && p.drawn {
		fmt.Fprintln(p.w)
	}
}

func renderBar(width, done, total int, best *float64) string {
	filled := 0
	if total > 0 {
		filled = width * done / total
	}
	filled = max(0, min(width, filled))
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)

	line := fmt.Sprintf("[%s] %d/%d", bar, done, total)
	if best != nil {
		line += fmt.Sprintf(" best %.4f", *best)
	}
	return line
}
