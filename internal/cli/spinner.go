package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a single stderr line while a BLE scan runs. It ends
// when stopped or when ctx is done, whichever comes first.
type spinner struct {
	ctx     context.Context
	message string

	mu  sync.Mutex
	out io.Writer

	once    sync.Once
	quit    chan struct{}
	stopped chan struct{}
}

func newSpinner(ctx context.Context, message string) *spinner {
	return &spinner{
		ctx:     ctx,
		message: message,
		out:     os.Stderr,
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start launches the animation and returns s for chaining.
func (s *spinner) start() *spinner {
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer close(s.stopped)
	t := time.NewTicker(spinnerInterval)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.erase()
			return
		case <-s.quit:
			return
		case <-t.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
		}
	}
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), styleMuted.Render(s.message))
}

func (s *spinner) erase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// stop ends the animation and clears the line. Safe to call more than once.
func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.quit)
		<-s.stopped
		s.erase()
	})
}

// fail stops the spinner and prints msg as an error line.
func (s *spinner) fail(msg string) {
	s.stop()
	printError("%s", msg)
}

// expired reports whether the scan context ended before stop.
func (s *spinner) expired() bool {
	return s.ctx.Err() != nil
}
