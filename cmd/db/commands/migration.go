package commands

import (
	"context"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MigrationCommands returns all migration-related commands.
func MigrationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Initialize migration tables",
			Action: handleInit(deps),
		},
		{
			Name:   "migrate",
			Usage:  "Run pending migrations",
			Action: handleMigrate(deps),
		},
		{
			Name:   "rollback",
			Usage:  "Rollback the last migration group",
			Action: handleRollback(deps),
		},
		{
			Name:   "status",
			Usage:  "Show migration status",
			Action: handleStatus(deps),
		},
		{
			Name:      "create",
			Usage:     "Create a new Go migration file",
			ArgsUsage: "NAME",
			Action:    handleCreate(deps),
		},
	}
}

func handleInit(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}

		deps.Logger.Info("Migration tables initialized")

		return nil
	}
}

// withLock runs fn while holding the migration lock.
func withLock(ctx context.Context, deps *CLIDependencies, fn func() error) error {
	if err := deps.Migrator.Lock(ctx); err != nil {
		return err
	}
	defer deps.Migrator.Unlock(ctx) //nolint:errcheck // -

	return fn()
}

func handleMigrate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		return withLock(ctx, deps, func() error {
			group, err := deps.Migrator.Migrate(ctx)
			if err != nil {
				return err
			}

			if group.IsZero() {
				deps.Logger.Info("Database is up to date")
				return nil
			}

			deps.Logger.Info("Migrated", zap.String("group", group.String()))

			return nil
		})
	}
}

func handleRollback(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		return withLock(ctx, deps, func() error {
			group, err := deps.Migrator.Rollback(ctx)
			if err != nil {
				return err
			}

			if group.IsZero() {
				deps.Logger.Info("Nothing to roll back")
				return nil
			}

			deps.Logger.Info("Rolled back", zap.String("group", group.String()))

			return nil
		})
	}
}

func handleStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		deps.Logger.Info("Migration status",
			zap.String("migrations", ms.String()),
			zap.String("unapplied", ms.Unapplied().String()),
			zap.String("lastGroup", ms.LastGroup().String()))

		return nil
	}
}

func handleCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.Migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.Logger.Info("Created Go migration",
			zap.String("name", mf.Name),
			zap.String("path", mf.Path))

		return nil
	}
}
