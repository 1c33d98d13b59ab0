package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Spinner animates a loading indicator on a single terminal line.
type Spinner struct {
	out    io.Writer
	frames []string

	mu  sync.Mutex
	msg string

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(msg string) *Spinner {
	return NewSpinnerTo(os.Stderr, msg)
}

// NewSpinnerTo creates a spinner writing to out.
func NewSpinnerTo(out io.Writer, msg string) *Spinner {
	return &Spinner{
		out:    out,
		frames: spinnerFrames,
		msg:    msg,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			frame := StyleChain.Render(s.frames[i%len(s.frames)])
			fmt.Fprintf(s.out, "\r%s  %-56s", frame, msg)

			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-62s\r", "")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the spinner and waits for the line to clear. Safe to call
// more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// StopWithMsg halts the spinner and prints a final line.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, msg)
}
