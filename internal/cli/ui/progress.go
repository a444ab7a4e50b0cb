package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows activity while the table is being scanned
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	mu     sync.Mutex
	active bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSpinner creates a spinner; interval defaults to 100ms
func NewSpinner(w io.Writer, message string, interval time.Duration, noColor bool) *Spinner {
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	return &Spinner{writer: w, message: message, interval: interval, noColor: noColor}
}

// Start begins the animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate(s.done)
}

// Stop ends the animation and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.writer, "\r\033[K")
}

func (s *Spinner) animate(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	frame := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// ProgressBar tracks writes against the number of changed items
type ProgressBar struct {
	writer  io.Writer
	total   int
	current int
	width   int
	message string
	noColor bool

	drawn bool
	ended bool
}

// NewProgressBar creates a progress bar; width defaults to 40
func NewProgressBar(w io.Writer, total, width int, message string, noColor bool) *ProgressBar {
	if width == 0 {
		width = 40
	}
	return &ProgressBar{writer: w, total: total, width: width, message: message, noColor: noColor}
}

// Set moves the bar to n, clamped to the total
func (p *ProgressBar) Set(n int) {
	if p.ended {
		return
	}
	p.current = min(n, p.total)
	p.render()
	if p.current == p.total {
		fmt.Fprintln(p.writer)
		p.ended = true
	}
}

// Finish ends the bar's line if it stopped short of the total
func (p *ProgressBar) Finish() {
	if p.drawn && !p.ended {
		fmt.Fprintln(p.writer)
	}
	p.ended = true
}

func (p *ProgressBar) render() {
	if p.total == 0 {
		return
	}

	p.drawn = true
	percent := float64(p.current) / float64(p.total)
	filled := int(float64(p.width) * percent)

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if p.noColor {
		cyan.DisableColor()
		gray.DisableColor()
	}

	var bar strings.Builder
	bar.WriteString("[")
	cyan.Fprint(&bar, strings.Repeat("█", filled))
	gray.Fprint(&bar, strings.Repeat("░", p.width-filled))
	bar.WriteString("]")

	message := ""
	if p.message != "" {
		message = " " + p.message
	}
	fmt.Fprintf(p.writer, "\r%s %3d%% %d/%d%s", bar.String(), int(percent*100), p.current, p.total, message)
}
