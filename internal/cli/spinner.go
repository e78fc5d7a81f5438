package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	spinnerInterval = 80 * time.Millisecond
	// Waits shorter than this show no elapsed time.
	spinnerElapsedAfter = time.Second
)

// spinner animates a single status line on w while a slow operation (a store
// connection, a Graphviz render) runs. It stops on stop or when ctx ends.
type spinner struct {
	w      io.Writer
	label  string
	start  time.Time
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once

	mu    sync.Mutex
	width int
}

// startSpinner starts animating label on w.
func startSpinner(ctx context.Context, w io.Writer, label string) *spinner {
	s := &spinner{
		w:      w,
		label:  label,
		start:  time.Now(),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.exited)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			s.clear()
			return
		case <-s.quit:
			s.clear()
			return
		case <-ticker.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
		}
	}
}

func (s *spinner) draw(frame string) {
	text := s.label
	if d := time.Since(s.start); d >= spinnerElapsedAfter {
		text = fmt.Sprintf("%s (%s)", s.label, d.Truncate(time.Second))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(text)
	fmt.Fprintf(s.w, "\r%s", line)
	s.width = max(s.width, len(text)+2)
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

// stop ends the animation, clears the line and returns the time spent.
// Calling it more than once is harmless.
func (s *spinner) stop() time.Duration {
	s.once.Do(func() { close(s.quit) })
	<-s.exited
	return time.Since(s.start)
}
