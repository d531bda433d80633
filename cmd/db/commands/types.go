package commands

import (
	"errors"

	"github.com/kwservices/xptracker/internal/database"
	"github.com/kwservices/xptracker/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired    = errors.New("NAME argument required")
	ErrSteamIDRequired = errors.New("STEAM_ID argument required")
	ErrInvalidScope    = errors.New("invalid reset scope")
	ErrNotConfirmed    = errors.New("operation not confirmed, pass --yes to proceed")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	Config   *config.Config
	DB       database.Client
	Migrator *migrate.Migrator
	Logger   *zap.Logger
}
