package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// refreshInterval is how often the renderer redraws.
const refreshInterval = 200 * time.Millisecond

// Renderer redraws a set of bars in place until its context ends.
type Renderer struct {
	bars   []*Bar
	output io.Writer
}

// NewRenderer creates a renderer writing to stdout.
func NewRenderer(bars ...*Bar) *Renderer {
	return &Renderer{
		bars:   bars,
		output: os.Stdout,
	}
}

// Render blocks, redrawing the bars until ctx is cancelled, then clears them.
func (r *Renderer) Render(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	r.draw(false)

	for {
		select {
		case <-ctx.Done():
			r.clear()
			return
		case <-ticker.C:
			r.draw(true)
		}
	}
}

func (r *Renderer) draw(redraw bool) {
	if redraw {
		r.clear()
	}

	for _, bar := range r.bars {
		_, _ = fmt.Fprintln(r.output, bar.String())
	}
}

// clear moves the cursor up over each bar line and erases it.
func (r *Renderer) clear() {
	for range r.bars {
		_, _ = fmt.Fprint(r.output, "\033[1A\033[K")
	}
}
