package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kwservices/xptracker/internal/database/dbretry"
	"github.com/kwservices/xptracker/internal/database/models"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TrackingService handles multi-statement tracking operations.
type TrackingService struct {
	db     *bun.DB
	users  *models.TrackedUserModel
	marker *models.ResetMarkerModel
	logger *zap.Logger
}

// NewTracking creates a new tracking service.
func NewTracking(
	db *bun.DB, users *models.TrackedUserModel, marker *models.ResetMarkerModel, logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		db:     db,
		users:  users,
		marker: marker,
		logger: logger.Named("tracking_service"),
	}
}

// ApplyProgress persists one reconcile tick for a user atomically.
func (s *TrackingService) ApplyProgress(ctx context.Context, update types.ProgressUpdate) error {
	return dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		return s.users.ApplyProgress(ctx, tx, update)
	})
}

// ResetMonthlyIf zeroes every monthly counter and stores the new marker when due
// reports true for the stored marker month. A missing marker is initialized to
// the current month without resetting. Returns whether a reset happened.
func (s *TrackingService) ResetMonthlyIf(
	ctx context.Context, now time.Time, due func(marker time.Month) bool,
) (bool, error) {
	var (
		applied  bool
		affected int64
	)

	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		applied = false

		// The row lock serializes the tracking worker's pre-sweep check with the reset worker
		marker, err := s.marker.GetForUpdate(ctx, tx)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return s.marker.Save(ctx, tx, now.Month(), time.Time{})
			}

			return err
		}

		if !due(marker.Month) {
			return nil
		}

		affected, err = s.users.ResetAllMonthly(ctx, tx)
		if err != nil {
			return err
		}

		if err := s.marker.Save(ctx, tx, now.Month(), now); err != nil {
			return err
		}

		applied = true

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply monthly reset: %w", err)
	}

	if applied {
		s.logger.Info("Monthly counters reset",
			zap.Stringer("month", now.Month()),
			zap.Int64("users", affected))
	}

	return applied, nil
}

// ResetMarker returns the month of the last monthly reset.
func (s *TrackingService) ResetMarker(ctx context.Context) (time.Month, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (time.Month, error) {
		marker, err := s.marker.Get(ctx, s.db)
		if err != nil {
			return 0, err
		}

		return marker.Month, nil
	})
}
