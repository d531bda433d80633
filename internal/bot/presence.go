package bot

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/kwservices/xptracker/internal/xp"
)

// Weekly XP bonus reset, Wednesday 03:00 in WeeklyResetZone.
const (
	WeeklyResetZone = "Europe/Madrid"
	weeklyResetDay  = time.Wednesday
	weeklyResetHour = 3
)

// NextWeeklyReset returns the first weekly bonus reset strictly after now.
func NextWeeklyReset(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	days := (int(weeklyResetDay) - int(local.Weekday()) + 7) % 7

	next := time.Date(local.Year(), local.Month(), local.Day()+days, weeklyResetHour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}

// PresenceText returns the activity shown at a rotation step.
// Even steps show the tracked count, odd steps the weekly reset countdown.
func PresenceText(step, tracked int, now time.Time, loc *time.Location) string {
	if step%2 == 0 {
		if tracked == 1 {
			return "Tracking 1 user"
		}

		return fmt.Sprintf("Tracking %d users", tracked)
	}

	return "Weekly XP reset in " + xp.FormatDuration(NextWeeklyReset(now, loc).Sub(now))
}

// BuildTimeRemainingEmbed shows the countdown to the next weekly bonus reset.
func BuildTimeRemainingEmbed(now time.Time, loc *time.Location) discord.Embed {
	next := NextWeeklyReset(now, loc)

	return discord.NewEmbedBuilder().
		SetTitle("⌛ Time remaining").
		SetDescription(fmt.Sprintf("The weekly XP bonus resets in **%s** (<t:%d:F>).",
			xp.FormatDuration(next.Sub(now)), next.Unix())).
		SetColor(checkColor).
		Build()
}
