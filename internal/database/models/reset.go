package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ResetMarkerModel handles the singleton monthly reset marker.
type ResetMarkerModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewResetMarker creates a ResetMarkerModel.
func NewResetMarker(db *bun.DB, logger *zap.Logger) *ResetMarkerModel {
	return &ResetMarkerModel{
		db:     db,
		logger: logger.Named("db_reset_marker"),
	}
}

// Get returns the reset marker using the given connection or transaction.
func (r *ResetMarkerModel) Get(ctx context.Context, tx bun.IDB) (*types.ResetMarker, error) {
	marker := &types.ResetMarker{ID: types.ResetMarkerID}

	err := tx.NewSelect().Model(marker).WherePK().Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get reset marker: %w", err)
	}

	return marker, nil
}

// GetForUpdate returns the reset marker and locks its row until tx ends, so
// concurrent resets in other processes wait and then see the new month.
func (r *ResetMarkerModel) GetForUpdate(ctx context.Context, tx bun.Tx) (*types.ResetMarker, error) {
	marker := &types.ResetMarker{ID: types.ResetMarkerID}

	err := r.LockQuery(tx, marker).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}

		return nil, fmt.Errorf("failed to lock reset marker: %w", err)
	}

	return marker, nil
}

// LockQuery builds the row-locking select used by GetForUpdate.
func (r *ResetMarkerModel) LockQuery(idb bun.IDB, marker *types.ResetMarker) *bun.SelectQuery {
	return idb.NewSelect().Model(marker).WherePK().For("UPDATE")
}

// Save stores the reset marker using the given connection or transaction.
func (r *ResetMarkerModel) Save(ctx context.Context, tx bun.IDB, month time.Month, resetAt time.Time) error {
	marker := &types.ResetMarker{
		ID:      types.ResetMarkerID,
		Month:   month,
		ResetAt: resetAt,
	}

	_, err := tx.NewInsert().Model(marker).
		On("CONFLICT (id) DO UPDATE").
		Set("month = EXCLUDED.month").
		Set("reset_at = EXCLUDED.reset_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: save reset marker: %w", types.ErrPersistence, err)
	}

	return nil
}
