package progress_test

import (
	"strings"
	"testing"

	"github.com/kwservices/xptracker/internal/progress"
	"github.com/stretchr/testify/assert"
)

func TestBarProgress(t *testing.T) {
	t.Parallel()

	bar := progress.NewBar("tracking", 10)
	bar.SetTotal(4)

	bar.Increment(1)
	assert.InDelta(t, 0.25, bar.Percent(), 1e-9)

	bar.Increment(10)
	assert.InDelta(t, 1.0, bar.Percent(), 1e-9)

	bar.SetStep("User 4/4")
	out := bar.String()
	assert.Contains(t, out, "tracking [██████████] 100.0%")
	assert.Contains(t, out, "User 4/4")

	bar.Reset()
	assert.Zero(t, bar.Percent())
	assert.Contains(t, bar.String(), strings.Repeat("░", 10))
}

func TestBarEmptyTotal(t *testing.T) {
	t.Parallel()

	bar := progress.NewBar("reset", 4)
	bar.SetTotal(0)
	bar.Increment(3)

	assert.Zero(t, bar.Percent())
}
