// Package sync provides database operations for progress tracking of
// long-running maintenance jobs.
//
// This package implements the ProgressReporter interface used by the
// last-event reconciliation.
//
// # Interface Implementation
//
//	var _ readingevents.ProgressReporter = (*Repository)(nil)
//
// # Usage
//
//	repo := sync.NewRepository(db)
//	err := repo.StartSync(ctx, 100)
package sync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/repoerr"
)

// staleAfter is how long a running job may go without a progress update
// before it is considered interrupted.
const staleAfter = 10 * time.Minute

// Repository handles all sync progress database operations.
type Repository struct {
	db       *gorm.DB
	syncType entities.SyncType
	now      func() time.Time
}

// NewRepository creates a sync repository for last-event reconciliation.
func NewRepository(db *gorm.DB) *Repository {
	return NewRepositoryWithType(db, entities.SyncTypeLastEvents)
}

// NewRepositoryWithType creates a sync repository for a specific sync type.
func NewRepositoryWithType(db *gorm.DB, syncType entities.SyncType) *Repository {
	return &Repository{
		db:       db,
		syncType: syncType,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetSyncProgress retrieves the sync progress for the configured sync type.
func (r *Repository) GetSyncProgress(ctx context.Context) (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	err := r.db.WithContext(ctx).Where("sync_type = ?", r.syncType).Take(&progress).Error
	if err != nil {
		return nil, repoerr.FromGorm("get sync progress", "sync_progress", r.syncType, err)
	}
	return &progress, nil
}

// StartSync creates or resets the progress record.
func (r *Repository) StartSync(ctx context.Context, totalItems int) error {
	var progress entities.SyncProgress
	err := r.db.WithContext(ctx).Where("sync_type = ?", r.syncType).Take(&progress).Error

	now := r.now()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = entities.SyncProgress{
			SyncType:   r.syncType,
			Status:     entities.SyncStatusRunning,
			TotalItems: totalItems,
			StartedAt:  now,
			UpdatedAt:  now,
		}
		return repoerr.FromGorm("start sync", "sync_progress", r.syncType, r.db.WithContext(ctx).Create(&progress).Error)
	} else if err != nil {
		return repoerr.FromGorm("start sync", "sync_progress", r.syncType, err)
	}

	// Reset existing record
	progress.Status = entities.SyncStatusRunning
	progress.TotalItems = totalItems
	progress.Processed = 0
	progress.Changed = 0
	progress.Failed = 0
	progress.Error = ""
	progress.StartedAt = now
	progress.UpdatedAt = now
	progress.CompletedAt = nil

	return repoerr.FromGorm("start sync", "sync_progress", r.syncType, r.db.WithContext(ctx).Save(&progress).Error)
}

// UpdateProgress updates the counters of an ongoing sync.
func (r *Repository) UpdateProgress(ctx context.Context, processed, changed, failed int) error {
	err := r.db.WithContext(ctx).Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		UpdateColumns(map[string]any{
			"processed":  processed,
			"changed":    changed,
			"failed":     failed,
			"updated_at": r.now(),
		}).Error
	return repoerr.FromGorm("update sync progress", "sync_progress", r.syncType, err)
}

// CompleteSync marks a sync as completed or failed.
func (r *Repository) CompleteSync(ctx context.Context, succeeded bool, errorMsg string) error {
	now := r.now()
	status := entities.SyncStatusCompleted
	if !succeeded {
		status = entities.SyncStatusFailed
	}

	updates := map[string]any{
		"status":       status,
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	err := r.db.WithContext(ctx).Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		UpdateColumns(updates).Error
	return repoerr.FromGorm("complete sync", "sync_progress", r.syncType, err)
}

// IsSyncRunning checks if a sync is currently in progress. A running sync
// with no update for staleAfter is marked failed and reported as not running.
func (r *Repository) IsSyncRunning(ctx context.Context) (bool, error) {
	var progress entities.SyncProgress
	err := r.db.WithContext(ctx).
		Where("sync_type = ? AND status = ?", r.syncType, entities.SyncStatusRunning).
		Take(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, repoerr.FromGorm("check sync", "sync_progress", r.syncType, err)
	}

	if progress.UpdatedAt.Before(r.now().Add(-staleAfter)) {
		_ = r.CompleteSync(ctx, false, "sync was interrupted")
		return false, nil
	}

	return true, nil
}
