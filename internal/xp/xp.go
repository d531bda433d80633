// Package xp holds the level arithmetic used to reconcile and display progress.
package xp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kwservices/xptracker/internal/setup/config"
)

// ErrInvalidPercentage is returned when a percentage string cannot be parsed.
var ErrInvalidPercentage = errors.New("invalid percentage")

const (
	barFilled = "█"
	barEmpty  = "░"
)

// Settings holds the level constants used by the derived metrics.
type Settings struct {
	LevelCapacity   int
	MaxLevel        int
	AvgXPPerGame    int
	AvgGameDuration time.Duration
}

// FromConfig builds Settings from the xp config section.
func FromConfig(cfg *config.XP) Settings {
	return Settings{
		LevelCapacity:   cfg.LevelCapacity,
		MaxLevel:        cfg.MaxLevel,
		AvgXPPerGame:    cfg.AvgXPPerGame,
		AvgGameDuration: time.Duration(cfg.AvgGameMinutes) * time.Minute,
	}
}

// DefaultSettings returns the settings used when no config is loaded.
func DefaultSettings() Settings {
	return Settings{
		LevelCapacity:   config.DefaultLevelCapacity,
		MaxLevel:        config.DefaultMaxLevel,
		AvgXPPerGame:    config.DefaultAvgXPPerGame,
		AvgGameDuration: config.DefaultAvgGameMinutes * time.Minute,
	}
}

// ProgressBar renders the progress within a level as a bar of width cells.
func ProgressBar(remaining, capacity, width int) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if capacity > 0 {
		filled = (capacity - remaining) * width / capacity
	}

	filled = min(max(filled, 0), width)

	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// FractionBar renders a [0,1] fraction as a bar of width cells.
func FractionBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Floor(clamp01(fraction) * float64(width)))

	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// LevelFraction returns the completed fraction of the current level.
func LevelFraction(remaining, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}

	return clamp01(float64(capacity-remaining) / float64(capacity))
}

// OverallProgress returns the completed fraction of the way from level 1 to maxLevel.
func OverallProgress(level, xpInLevel, capacity, maxLevel int) float64 {
	if capacity <= 0 || maxLevel <= 1 {
		return 1
	}

	accumulated := (level-1)*capacity + xpInLevel
	required := (maxLevel - 1) * capacity

	return clamp01(float64(accumulated) / float64(required))
}

// Estimate returns the games and playing time needed to earn remaining XP.
func Estimate(remaining, avgXPPerGame int, avgGameDuration time.Duration) (int, time.Duration) {
	if remaining <= 0 || avgXPPerGame <= 0 {
		return 0, 0
	}

	games := (remaining + avgXPPerGame - 1) / avgXPPerGame

	return games, time.Duration(games) * avgGameDuration
}

// RemainingToMax returns the XP still needed to reach maxLevel.
func RemainingToMax(level, xpInLevel, capacity, maxLevel int) int {
	if level >= maxLevel {
		return 0
	}

	return max((maxLevel-level)*capacity-xpInLevel, 0)
}

// EstimateToMax returns the games and playing time needed to reach maxLevel.
func EstimateToMax(
	level, xpInLevel, capacity, maxLevel, avgXPPerGame int, avgGameDuration time.Duration,
) (int, time.Duration) {
	return Estimate(RemainingToMax(level, xpInLevel, capacity, maxLevel), avgXPPerGame, avgGameDuration)
}

// ParsePercentage parses values such as "23.56%" or "23.56" into 23.56.
func ParsePercentage(s string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPercentage, s)
	}

	return v, nil
}

// FormatDuration renders a duration as "1h 20m" style text.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}

	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}

	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}

	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	return strings.Join(parts, " ")
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
