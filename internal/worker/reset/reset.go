// Package reset applies the monthly counter reset on a calendar schedule.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kwservices/xptracker/internal/database/types"
	"go.uber.org/zap"
)

// Store applies the reset atomically with the month marker.
type Store interface {
	ResetMonthlyIf(ctx context.Context, now time.Time, due func(marker time.Month) bool) (bool, error)
	ResetMarker(ctx context.Context) (time.Month, error)
}

// ShouldReset reports whether a reset is due on the first day of a month
// that differs from the marker.
func ShouldReset(now time.Time, marker time.Month) bool {
	return now.Day() == 1 && marker != now.Month()
}

// IsDue is ShouldReset, except that with catchUp any day of a month that
// differs from the marker is due.
func IsDue(now time.Time, marker time.Month, catchUp bool) bool {
	if catchUp {
		return marker != now.Month()
	}

	return ShouldReset(now, marker)
}

// Service evaluates calendar dates in a fixed location.
type Service struct {
	store    Store
	location *time.Location
	logger   *zap.Logger
}

// NewService creates a reset service evaluating dates in location.
func NewService(store Store, location *time.Location, logger *zap.Logger) *Service {
	if location == nil {
		location = time.UTC
	}

	return &Service{
		store:    store,
		location: location,
		logger:   logger.Named("monthly_reset"),
	}
}

// Location returns the location used to evaluate dates.
func (s *Service) Location() *time.Location {
	return s.location
}

// ShouldReset reports whether a strict reset is due at now.
// A missing marker is never due.
func (s *Service) ShouldReset(ctx context.Context, now time.Time) (bool, error) {
	marker, err := s.store.ResetMarker(ctx)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read reset marker: %w", err)
	}

	return ShouldReset(now.In(s.location), marker), nil
}

// ApplyIfDue zeroes every monthly counter when a reset is due at now and
// stores the new marker. Calling it again in the same month is a no-op.
func (s *Service) ApplyIfDue(ctx context.Context, now time.Time, catchUp bool) (bool, error) {
	local := now.In(s.location)

	applied, err := s.store.ResetMonthlyIf(ctx, local, func(marker time.Month) bool {
		return IsDue(local, marker, catchUp)
	})
	if err != nil {
		return false, err
	}

	if applied {
		s.logger.Info("Applied monthly reset",
			zap.Time("at", local),
			zap.Bool("catchUp", catchUp))
	}

	return applied, nil
}
