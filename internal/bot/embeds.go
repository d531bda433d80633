package bot

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/kwservices/xptracker/internal/xp"
)

const (
	checkColor   = 0x3498DB
	earnedColor  = 0x2ECC71
	barWidth     = 20
	maxMedalList = 8
)

// BuildCheckEmbed renders the result of a profile check.
func BuildCheckEmbed(report *stats.Report, settings xp.Settings, correlationID string) discord.Embed {
	medals := report.Medals
	xpInLevel := max(settings.LevelCapacity-medals.RemainingXP, 0)

	name := report.Player.Name
	if name == "" {
		name = report.Profile.Nickname
	}

	if name == "" {
		name = fmt.Sprintf("%d", report.Profile.SteamID)
	}

	overall := xp.OverallProgress(medals.CSGOLevel, xpInLevel, settings.LevelCapacity, settings.MaxLevel)

	embed := discord.NewEmbedBuilder().
		SetTitle(name).
		SetURL(fmt.Sprintf("https://steamcommunity.com/profiles/%d", report.Profile.SteamID)).
		AddField("Level", fmt.Sprintf("%d", medals.CSGOLevel), true).
		AddField("Progress", fmt.Sprintf("%.2f%%", float64(medals.LevelPercentage)), true).
		AddField("Remaining XP", fmt.Sprintf("%d", medals.RemainingXP), true).
		AddField("Steam Level", fmt.Sprintf("%d", medals.SteamLevel), true).
		AddField("Commends", fmt.Sprintf("😀 %d · 🍎 %d · ⭐ %d",
			medals.Commends.Friendly, medals.Commends.Teacher, medals.Commends.Leader), true).
		AddField("Country", countryLabel(report.Player.CountryCode), true).
		AddField("Level Progress",
			fmt.Sprintf("`%s`", xp.ProgressBar(medals.RemainingXP, settings.LevelCapacity, barWidth)), false).
		AddField("Overall Progress",
			fmt.Sprintf("`%s` %.1f%%", xp.FractionBar(overall, barWidth), overall*100), false).
		SetColor(checkColor).
		SetFooter("Check "+correlationID, "")

	if medals.CSGOLevel < settings.MaxLevel {
		nextGames, nextTime := xp.Estimate(medals.RemainingXP, settings.AvgXPPerGame, settings.AvgGameDuration)
		maxGames, maxTime := xp.EstimateToMax(
			medals.CSGOLevel, xpInLevel, settings.LevelCapacity, settings.MaxLevel,
			settings.AvgXPPerGame, settings.AvgGameDuration,
		)
		embed.AddField("Next Level", fmt.Sprintf("~%d games (%s)", nextGames, xp.FormatDuration(nextTime)), true)
		embed.AddField("Max Level", fmt.Sprintf("~%d games (%s)", maxGames, xp.FormatDuration(maxTime)), true)
	}

	if len(medals.Medals) > 0 {
		embed.AddField(fmt.Sprintf("Medals (%d)", len(medals.Medals)), medalList(medals.Medals), false)
	}

	avatar := report.Player.Avatar
	if avatar == "" {
		avatar = report.Profile.Avatar
	}

	if avatar != "" {
		embed.SetThumbnail(avatar)
	}

	return embed.Build()
}

// BuildEarnedEmbed renders the counters of a tracked user.
func BuildEarnedEmbed(user *types.TrackedUser) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("Earned XP · %d", user.SteamID)).
		SetURL(fmt.Sprintf("https://steamcommunity.com/profiles/%d", user.SteamID)).
		AddField("Level", fmt.Sprintf("%d", user.CurrentLevel), true).
		AddField("XP", fmt.Sprintf("%d", user.CurrentXP), true).
		AddField("Owner", fmt.Sprintf("<@%d>", user.DiscordID), true).
		AddField("Monthly", fmt.Sprintf("%d XP", user.TotalEarned), true).
		AddField("Global", fmt.Sprintf("%d XP", user.GlobalEarned), true).
		SetColor(earnedColor).
		Build()
}

func medalList(medals stats.MedalList) string {
	names := make([]string, 0, maxMedalList+1)
	for i, medal := range medals {
		if i == maxMedalList {
			names = append(names, fmt.Sprintf("+%d more", len(medals)-maxMedalList))
			break
		}

		names = append(names, medal.Name)
	}

	return strings.Join(names, ", ")
}

func countryLabel(code string) string {
	if code == "" {
		return "Unknown"
	}

	return strings.ToUpper(code)
}

// BuildTotalUsersEmbed shows how many profiles are tracked overall and in the current server.
func BuildTotalUsersEmbed(total, guild int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Tracked users").
		AddField("Total", fmt.Sprintf("%d", total), true).
		AddField("This server", fmt.Sprintf("%d", guild), true).
		SetColor(earnedColor).
		Build()
}
