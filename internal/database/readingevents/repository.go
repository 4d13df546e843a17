// Package readingevents records reading events and keeps the last-event cache
// of each UserBook in step with them.
//
// The recorder never loads or saves a whole UserBook. It is handed an
// entities.LastEventHandle and writes only the two cache columns.
//
// # Interface Implementation
//
//	var _ userbooks.EventRecorder = (*Repository)(nil)
//
// # Usage
//
//	repo := readingevents.NewRepository(db)
//	event, err := repo.RecordEvent(ctx, userBook.LastEvent(), entities.ReadingEventFinished)
package readingevents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelf/internal/database/store"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/repoerr"
)

// ProgressReporter receives progress of a reconciliation run.
type ProgressReporter interface {
	StartSync(ctx context.Context, totalItems int) error
	UpdateProgress(ctx context.Context, processed, changed, failed int) error
	CompleteSync(ctx context.Context, succeeded bool, errorMsg string) error
	IsSyncRunning(ctx context.Context) (bool, error)
}

// ReconcileResult summarizes one reconciliation run.
type ReconcileResult struct {
	Checked int
	Changed int
	Skipped bool // another run was in progress
}

// Repository handles reading event database operations.
type Repository struct {
	db        *gorm.DB
	now       func() time.Time
	events    *store.Store[entities.ReadingEvent]
	userBooks *store.Store[entities.UserBook]
}

// NewRepository creates a new reading events repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:        db,
		now:       func() time.Time { return time.Now().UTC() },
		events:    store.New[entities.ReadingEvent](db, "reading_event"),
		userBooks: store.New[entities.UserBook](db, "user_book"),
	}
}

// WithTx returns a repository whose statements run on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{
		db:        tx,
		now:       r.now,
		events:    r.events.WithTx(tx),
		userBooks: r.userBooks.WithTx(tx),
	}
}

// RecordEvent persists a new event for the handle's UserBook and writes its
// type and time into the last-event cache, in one transaction.
func (r *Repository) RecordEvent(ctx context.Context, handle entities.LastEventHandle, eventType entities.ReadingEventType) (*entities.ReadingEvent, error) {
	if !eventType.Valid() {
		return nil, repoerr.Validation("event_type", fmt.Sprintf("unknown reading event type %q, expected one of %v", eventType, entities.ReadingEventTypes()))
	}

	var event *entities.ReadingEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx)
		if _, err := txr.userBooks.GetByID(ctx, handle.UserBookID); err != nil {
			return err
		}

		at := txr.now()
		event = &entities.ReadingEvent{
			UserBookID: handle.UserBookID,
			EventType:  eventType,
			OccurredAt: at,
			CreatedAt:  at,
			UpdatedAt:  at,
		}
		if err := txr.events.Create(ctx, event); err != nil {
			return err
		}
		return txr.userBooks.UpdateColumns(ctx, handle.UserBookID, handle.Set(eventType, at))
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// FindEventsForUserBook lists events newest first.
func (r *Repository) FindEventsForUserBook(ctx context.Context, userBookID uuid.UUID) ([]entities.ReadingEvent, error) {
	events := []entities.ReadingEvent{}
	err := r.db.WithContext(ctx).
		Where("user_book_id = ?", userBookID).
		Order("occurred_at DESC, created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, repoerr.FromGorm("list reading events", "reading_event", userBookID, err)
	}
	return events, nil
}

// LatestEvent returns the newest event of a UserBook, or NotFound.
func (r *Repository) LatestEvent(ctx context.Context, userBookID uuid.UUID) (*entities.ReadingEvent, error) {
	var event entities.ReadingEvent
	err := r.db.WithContext(ctx).
		Where("user_book_id = ?", userBookID).
		Order("occurred_at DESC, created_at DESC").
		Take(&event).Error
	if err != nil {
		return nil, repoerr.FromGorm("latest reading event", "reading_event", userBookID, err)
	}
	return &event, nil
}

// ReconcileLastEvents rebuilds the last-event cache of every UserBook from
// the event history. Progress goes to reporter when it is not nil.
func (r *Repository) ReconcileLastEvents(ctx context.Context, reporter ProgressReporter) (ReconcileResult, error) {
	var result ReconcileResult

	if reporter != nil {
		running, err := reporter.IsSyncRunning(ctx)
		if err != nil {
			return result, err
		}
		if running {
			log.Printf("Last-event reconciliation already running, skipping")
			result.Skipped = true
			return result, nil
		}
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entities.UserBook{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return result, repoerr.FromGorm("list user books", "user_book", nil, err)
	}

	if reporter != nil {
		if err := reporter.StartSync(ctx, len(ids)); err != nil {
			return result, err
		}
	}

	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			r.complete(ctx, reporter, false, err.Error())
			return result, err
		}

		changed, err := r.reconcileOne(ctx, id)
		result.Checked++
		if err != nil {
			failed++
			log.Printf("Failed to reconcile last event for user book %s: %v", id, err)
		} else if changed {
			result.Changed++
		}

		if reporter != nil {
			if err := reporter.UpdateProgress(ctx, result.Checked, result.Changed, failed); err != nil {
				log.Printf("Failed to update reconciliation progress: %v", err)
			}
		}
	}

	if failed > 0 {
		msg := fmt.Sprintf("%d user books could not be reconciled", failed)
		r.complete(ctx, reporter, false, msg)
		return result, repoerr.Store("reconcile last events", errors.New(msg))
	}
	r.complete(ctx, reporter, true, "")

	log.Printf("Reconciled last events: %d checked, %d changed", result.Checked, result.Changed)
	return result, nil
}

// reconcileOne locks the UserBook row, then reads the latest event and writes
// the cache in the same transaction.
func (r *Repository) reconcileOne(ctx context.Context, id uuid.UUID) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx)

		var ub entities.UserBook
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "last_reading_event", "last_reading_event_date").
			Where("id = ?", id).
			Take(&ub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// deleted since the run started
			return nil
		}
		if err != nil {
			return repoerr.FromGorm("get user book", "user_book", id, err)
		}

		latest, err := txr.LatestEvent(ctx, id)
		switch {
		case errors.Is(err, repoerr.ErrNotFound):
			if ub.LastReadingEvent == nil && ub.LastReadingEventDate == nil {
				return nil
			}
			changed = true
			return txr.userBooks.UpdateColumns(ctx, id, ub.LastEvent().Clear())
		case err != nil:
			return err
		}

		if cacheMatches(ub.LastEventCache, latest) {
			return nil
		}
		changed = true
		return txr.userBooks.UpdateColumns(ctx, id, ub.LastEvent().Set(latest.EventType, latest.OccurredAt))
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *Repository) complete(ctx context.Context, reporter ProgressReporter, ok bool, msg string) {
	if reporter == nil {
		return
	}
	if err := reporter.CompleteSync(ctx, ok, msg); err != nil {
		log.Printf("Failed to complete reconciliation progress: %v", err)
	}
}

func cacheMatches(cache entities.LastEventCache, event *entities.ReadingEvent) bool {
	if cache.LastReadingEvent == nil || cache.LastReadingEventDate == nil {
		return false
	}
	return *cache.LastReadingEvent == event.EventType && cache.LastReadingEventDate.Equal(event.OccurredAt)
}
