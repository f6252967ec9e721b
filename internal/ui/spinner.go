package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
	"golang.org/x/term"
)

// Spinner provides a simple animated spinner for server round trips
type Spinner struct {
	message string
	out     io.Writer
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	active  bool
}

// NewSpinner creates a new spinner with the given message
func NewSpinner(message string) *Spinner {
	return NewSpinnerTo(os.Stdout, message)
}

// NewSpinnerTo creates a spinner writing to w. It only animates when w is a
// terminal.
func NewSpinnerTo(w io.Writer, message string) *Spinner {
	return &Spinner{
		message: message,
		out:     w,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start begins the spinner animation in the background
func (s *Spinner) Start() {
	// Accessible mode or non-TTY: just print static message
	if styles.IsAccessible() || !isTerminal(s.out) {
		fmt.Fprintln(s.out, s.message+"...")
		return
	}

	s.active = true
	go func() {
		defer close(s.stopped)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		style := lipgloss.NewStyle().Foreground(styles.Accent)
		i := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				// Clear the spinner line
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				frame := style.Render(frames[i%len(frames)])
				fmt.Fprintf(s.out, "\r%s %s", frame, s.message)
				i++
			}
		}
	}()
}

// Stop stops the spinner and waits for the line to be cleared
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		if s.active {
			<-s.stopped
		}
	})
}

// Success stops the spinner and shows a success message
func (s *Spinner) Success(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, styles.SuccessMsg(msg))
}

// Error stops the spinner and shows an error message
func (s *Spinner) Error(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, styles.ErrorMsg(msg))
}

// Notifier returns a notifier that prints each notification as a styled
// line. An Info notification before Start becomes the spinner message.
func (s *Spinner) Notifier() notify.Notifier {
	return notify.Func(func(level notify.Level, msg string) {
		switch level {
		case notify.Info:
			if !s.active {
				s.message = strings.TrimSuffix(msg, "...")
			}
		case notify.Success:
			s.Success(msg)
		case notify.Warning:
			s.Stop()
			fmt.Fprintln(s.out, styles.WarningMsg(msg))
		case notify.Error:
			s.Error(msg)
		}
	})
}
