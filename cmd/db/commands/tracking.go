package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// TrackingCommands returns the maintenance commands for tracked users.
func TrackingCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "users",
			Usage:  "List tracked users by monthly earned XP",
			Action: handleListUsers(deps),
		},
		{
			Name:      "reset-counters",
			Usage:     "Reset the earned XP counters of one tracked user",
			ArgsUsage: "STEAM_ID",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Value:   types.ResetScopeMonthly.String(),
					Usage:   "Counters to reset (monthly, global or both)",
				},
			},
			Action: handleResetCounters(deps),
		},
		{
			Name:  "reset-monthly",
			Usage: "Force the monthly reset of every tracked user",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "yes",
					Aliases: []string{"y"},
					Usage:   "Confirm the reset",
				},
			},
			Action: handleResetMonthly(deps),
		},
		{
			Name:   "purge-cooldowns",
			Usage:  "Remove elapsed check cooldowns",
			Action: handlePurgeCooldowns(deps),
		},
	}
}

func handleListUsers(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		users, err := deps.DB.Model().TrackedUser().List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEAM ID\tOWNER\tGUILD\tLEVEL\tXP\tMONTHLY\tGLOBAL")

		for _, user := range users {
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
				user.SteamID, user.DiscordID, user.GuildID,
				user.CurrentLevel, user.CurrentXP, user.TotalEarned, user.GlobalEarned)
		}

		return w.Flush()
	}
}

func handleResetCounters(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrSteamIDRequired
		}

		steamID, err := strconv.ParseUint(c.Args().First(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid steam id: %w", err)
		}

		var scope types.ResetScope

		switch c.String("scope") {
		case types.ResetScopeMonthly.String():
			scope = types.ResetScopeMonthly
		case types.ResetScopeGlobal.String():
			scope = types.ResetScopeGlobal
		case types.ResetScopeBoth.String():
			scope = types.ResetScopeBoth
		default:
			return fmt.Errorf("%w: %s", ErrInvalidScope, c.String("scope"))
		}

		if err := deps.DB.Model().TrackedUser().ResetCounters(ctx, steamID, scope); err != nil {
			return err
		}

		deps.Logger.Info("Counters reset",
			zap.Uint64("steamID", steamID),
			zap.Stringer("scope", scope))

		return nil
	}
}

func handleResetMonthly(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if !c.Bool("yes") {
			return ErrNotConfirmed
		}

		location, err := time.LoadLocation(deps.Config.Worker.Reset.Timezone)
		if err != nil {
			return fmt.Errorf("invalid reset timezone: %w", err)
		}

		applied, err := deps.DB.Service().Tracking().ResetMonthlyIf(
			ctx, time.Now().In(location), func(time.Month) bool { return true },
		)
		if err != nil {
			return err
		}

		if !applied {
			deps.Logger.Info("Reset marker initialized, no counters were reset")
			return nil
		}

		deps.Logger.Info("Monthly counters reset")

		return nil
	}
}

func handlePurgeCooldowns(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		window := time.Duration(deps.Config.Bot.Cooldown) * time.Second

		purged, err := deps.DB.Model().Cooldown().DeleteStartedBefore(ctx, time.Now().Add(-window))
		if err != nil {
			return err
		}

		deps.Logger.Info("Purged cooldowns", zap.Int64("count", purged))

		return nil
	}
}
