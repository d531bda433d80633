package database

import (
	"github.com/kwservices/xptracker/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	tracking *service.TrackingService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		tracking: service.NewTracking(db, repository.TrackedUser(), repository.ResetMarker(), logger),
	}
}

// Tracking returns the tracking service.
func (s *Service) Tracking() *service.TrackingService {
	return s.tracking
}
