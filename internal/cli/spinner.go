// Package cli provides terminal output helpers for long-running waits.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Spinner shows activity while the process waits on an external party: a
// wallet approval, a relay round, or transaction confirmation.
type Spinner struct {
	frames  []string
	current int
	prefix  string
	suffix  string

	mu       sync.Mutex
	writer   io.Writer
	active   bool
	colorize bool
	done     chan struct{}
}

// NewSpinner creates a spinner with the given prefix text.
func NewSpinner(prefix string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:   prefix,
		writer:   os.Stdout,
		colorize: isTerminal(),
		done:     make(chan struct{}),
	}
}

// SetWriter redirects output, primarily for tests.
func (s *Spinner) SetWriter(w io.Writer) *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
	return s
}

// SetSuffix updates the trailing status text while the spinner runs.
func (s *Spinner) SetSuffix(suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suffix = suffix
}

// Start begins rendering. When stdout is not a terminal, the prefix is
// printed once and no animation runs.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	if !s.colorize {
		fmt.Fprintln(s.writer, s.prefix)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if !s.active {
					s.mu.Unlock()
					return
				}
				s.render()
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
	if s.colorize {
		fmt.Fprint(s.writer, "\r"+strings.Repeat(" ", 80)+"\r")
	}
}

// Success stops the spinner and prints a check-marked message.
func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Fprintln(s.writer, mark("✓", colorGreen, s.colorize)+" "+message)
}

// Fail stops the spinner and prints a cross-marked message.
func (s *Spinner) Fail(message string) {
	s.Stop()
	fmt.Fprintln(s.writer, mark("✗", colorRed, s.colorize)+" "+message)
}

func (s *Spinner) render() {
	frame := s.frames[s.current]
	if s.colorize {
		frame = colorCyan + frame + colorReset
	}
	out := fmt.Sprintf("\r%s %s", frame, s.prefix)
	if s.suffix != "" {
		out += " " + s.suffix
	}
	fmt.Fprint(s.writer, out)
}

// Warning prints a warning line.
func Warning(message string) {
	fmt.Println(mark("⚠", colorYellow, isTerminal()) + " " + message)
}

func mark(symbol, color string, colorize bool) string {
	if !colorize {
		return symbol
	}
	return color + symbol + colorReset
}

func isTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
