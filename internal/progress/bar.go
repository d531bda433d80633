// Package progress renders worker progress bars on the terminal.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// historySize is how many past run durations feed the ETA.
const historySize = 10

// Bar tracks the progress of a repeated operation such as a tracking sweep.
type Bar struct {
	mu        sync.Mutex
	name      string
	width     int
	total     int64
	current   int64
	step      string
	stepStart time.Time
	runStart  time.Time
	history   []time.Duration
}

// NewBar creates a bar of width cells.
func NewBar(name string, width int) *Bar {
	now := time.Now()

	return &Bar{
		name:      name,
		width:     width,
		total:     100,
		stepStart: now,
		runStart:  now,
	}
}

// SetTotal sets the value representing 100%.
func (b *Bar) SetTotal(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = max(total, 0)
	b.current = min(b.current, b.total)
}

// Increment advances the bar, capped at the total.
func (b *Bar) Increment(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = min(b.current+n, b.total)
}

// SetCurrent sets the progress value, capped at the total.
func (b *Bar) SetCurrent(current int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = min(max(current, 0), b.total)
}

// SetStep sets the current step description and restarts the step timer.
func (b *Bar) SetStep(step string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.step = step
	b.stepStart = time.Now()
}

// Percent returns the completed fraction in [0,1].
func (b *Bar) Percent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.percent()
}

func (b *Bar) percent() float64 {
	if b.total == 0 {
		return 0
	}

	return float64(b.current) / float64(b.total)
}

// Reset records the finished run's duration and starts a new run.
func (b *Bar) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	b.history = append(b.history, now.Sub(b.runStart))
	if len(b.history) > historySize {
		b.history = b.history[1:]
	}

	b.current = 0
	b.step = ""
	b.stepStart = now
	b.runStart = now
}

// String renders the bar with the current step and the ETA of a full run.
func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	percent := b.percent()
	filled := int(percent * float64(b.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)

	return fmt.Sprintf("%s [%s] %5.1f%% | %s (%s) | ETA: %s",
		b.name, bar, percent*100, b.step,
		time.Since(b.stepStart).Round(time.Second), b.eta())
}

func (b *Bar) eta() time.Duration {
	if len(b.history) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range b.history {
		sum += d
	}

	return (sum / time.Duration(len(b.history))).Round(time.Second)
}
