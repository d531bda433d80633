package notify

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/kwservices/xptracker/internal/xp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ColorGain     = 0x3498DB
	ColorLevelUp  = 0x2ECC71
	ColorMaxLevel = 0xF1C40F
	ColorDrop     = 0xE74C3C

	barWidth = 20
)

var titleCaser = cases.Title(language.English)

// KindLabel returns a display label such as "Level Up" for a transition kind.
func KindLabel(kind xp.Kind) string {
	return titleCaser.String(strings.ReplaceAll(kind.String(), "_", " "))
}

// BuildUpdateEmbed renders an update with its derived progress metrics.
func BuildUpdateEmbed(update Update, settings xp.Settings) discord.Embed {
	levelBar := xp.ProgressBar(update.RemainingXP, settings.LevelCapacity, barWidth)
	overall := xp.OverallProgress(
		update.Level, update.XP, settings.LevelCapacity, settings.MaxLevel,
	)

	nextGames, nextTime := xp.Estimate(update.RemainingXP, settings.AvgXPPerGame, settings.AvgGameDuration)
	maxGames, maxTime := xp.EstimateToMax(
		update.Level, update.XP, settings.LevelCapacity, settings.MaxLevel,
		settings.AvgXPPerGame, settings.AvgGameDuration,
	)

	name := update.Nickname
	if name == "" {
		name = fmt.Sprintf("%d", update.SteamID)
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("%s · %s", KindLabel(update.Kind), name)).
		SetURL(fmt.Sprintf("https://steamcommunity.com/profiles/%d", update.SteamID)).
		AddField("Level", fmt.Sprintf("%d", update.Level), true).
		AddField("Progress", fmt.Sprintf("%.2f%%", update.Percentage), true).
		AddField("Remaining XP", fmt.Sprintf("%d", update.RemainingXP), true).
		AddField("Earned", fmt.Sprintf("+%d XP", update.Earned), true).
		AddField("Monthly Total", fmt.Sprintf("%d XP", update.MonthlyTotal), true).
		AddField("Owner", fmt.Sprintf("<@%d>", update.OwnerID), true).
		AddField("Level Progress", fmt.Sprintf("`%s`", levelBar), false).
		AddField("Overall Progress", fmt.Sprintf("`%s` %.1f%%", xp.FractionBar(overall, barWidth), overall*100), false).
		SetColor(kindColor(update.Kind))

	if update.Level < settings.MaxLevel {
		embed.AddField("Next Level",
			fmt.Sprintf("~%d games (%s)", nextGames, xp.FormatDuration(nextTime)), true)
		embed.AddField("Max Level",
			fmt.Sprintf("~%d games (%s)", maxGames, xp.FormatDuration(maxTime)), true)
	}

	return embed.Build()
}

func kindColor(kind xp.Kind) int {
	switch kind {
	case xp.LevelUp:
		return ColorLevelUp
	case xp.MaxLevel:
		return ColorMaxLevel
	case xp.Regression:
		return ColorDrop
	case xp.NoChange, xp.Gain:
		return ColorGain
	default:
		return ColorGain
	}
}
