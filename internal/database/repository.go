package database

import (
	"github.com/kwservices/xptracker/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	trackedUser  *models.TrackedUserModel
	guildChannel *models.GuildChannelModel
	adminMode    *models.AdminModeModel
	cooldown     *models.CooldownModel
	resetMarker  *models.ResetMarkerModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		trackedUser:  models.NewTrackedUser(db, logger),
		guildChannel: models.NewGuildChannel(db, logger),
		adminMode:    models.NewAdminMode(db, logger),
		cooldown:     models.NewCooldown(db, logger),
		resetMarker:  models.NewResetMarker(db, logger),
	}
}

// TrackedUser returns the tracked user model repository.
func (r *Repository) TrackedUser() *models.TrackedUserModel {
	return r.trackedUser
}

// GuildChannel returns the guild channel model repository.
func (r *Repository) GuildChannel() *models.GuildChannelModel {
	return r.guildChannel
}

// AdminMode returns the admin mode model repository.
func (r *Repository) AdminMode() *models.AdminModeModel {
	return r.adminMode
}

// Cooldown returns the cooldown model repository.
func (r *Repository) Cooldown() *models.CooldownModel {
	return r.cooldown
}

// ResetMarker returns the reset marker model repository.
func (r *Repository) ResetMarker() *models.ResetMarkerModel {
	return r.resetMarker
}
