// Package userbooks provides database operations for per-user tracking
// records.
//
// Updates follow a patch policy, unlike books which replace their scalar
// fields. A nested book payload is delegated to the books repository and a
// reading event type to the EventRecorder, both inside the same transaction.
//
// # Usage
//
//	repo := userbooks.NewRepository(db, booksRepo, func(tx *gorm.DB) userbooks.EventRecorder {
//	    return readingevents.NewRepository(tx)
//	})
//	ub, err := repo.CreateUserBook(ctx, bookID, userID, userbooks.CreateUserBookRequest{ToRead: true})
package userbooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/database/store"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/normalize"
	"github.com/mrlokans/shelf/internal/repoerr"
)

// lastEventOrder puts records with a recorded event first, newest first.
const lastEventOrder = "last_reading_event_date IS NULL ASC, last_reading_event_date DESC, created_at DESC"

// EventRecorder records a reading event and writes the last-event cache
// through the handle it is given.
type EventRecorder interface {
	RecordEvent(ctx context.Context, handle entities.LastEventHandle, eventType entities.ReadingEventType) (*entities.ReadingEvent, error)
}

// RecorderFactory binds an EventRecorder to a transaction.
type RecorderFactory func(tx *gorm.DB) EventRecorder

// Repository handles all user book database operations.
type Repository struct {
	db        *gorm.DB
	now       func() time.Time
	books     *books.Repository
	recorder  RecorderFactory
	userBooks *store.Store[entities.UserBook]
	users     *store.Store[entities.User]
}

// NewRepository creates a new user books repository.
func NewRepository(db *gorm.DB, bookRepo *books.Repository, recorder RecorderFactory) *Repository {
	return &Repository{
		db:        db,
		now:       func() time.Time { return time.Now().UTC() },
		books:     bookRepo,
		recorder:  recorder,
		userBooks: store.New[entities.UserBook](db, "user_book"),
		users:     store.New[entities.User](db, "user"),
	}
}

// WithTx returns a repository whose statements run on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{
		db:        tx,
		now:       r.now,
		books:     r.books.WithTx(tx),
		recorder:  r.recorder,
		userBooks: r.userBooks.WithTx(tx),
		users:     r.users.WithTx(tx),
	}
}

// CreateUserBook starts tracking a book for a user. A second record for the
// same pair is rejected with a Conflict error.
func (r *Repository) CreateUserBook(ctx context.Context, bookID, userID uuid.UUID, req CreateUserBookRequest) (*entities.UserBook, error) {
	if err := validatePercent(req.PercentRead); err != nil {
		return nil, err
	}

	var created *entities.UserBook
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx)
		if _, err := txr.users.GetByID(ctx, userID); err != nil {
			return err
		}
		if _, err := txr.books.FindBookByID(ctx, bookID); err != nil {
			return err
		}

		existing, err := txr.FindByUserAndBook(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return repoerr.Conflict("user_book", fmt.Sprintf("book %s is already tracked by user %s", bookID, userID))
		}

		now := txr.now()
		ub := &entities.UserBook{
			UserID:        userID,
			BookID:        bookID,
			Owned:         req.Owned,
			ToRead:        req.ToRead,
			PercentRead:   req.PercentRead,
			PersonalNotes: req.PersonalNotes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := txr.userBooks.Create(ctx, ub); err != nil {
			return err
		}
		created = ub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindUserBookByID(ctx, created.ID)
}

// UpdateUserBook patches a tracking record. The nested book update and the
// new reading event, when present, are applied in the same transaction.
func (r *Repository) UpdateUserBook(ctx context.Context, id uuid.UUID, req UpdateUserBookRequest) (*entities.UserBook, error) {
	if err := validatePercent(req.PercentRead.Ptr()); err != nil {
		return nil, err
	}
	if eventType, ok := req.LastReadingEvent.Get(); ok && !eventType.Valid() {
		return nil, repoerr.Validation("last_reading_event", fmt.Sprintf("unknown reading event type %q, expected one of %v", eventType, entities.ReadingEventTypes()))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx)
		ub, err := txr.userBooks.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if v, ok := req.Owned.Get(); ok {
			ub.Owned = v
		}
		if v, ok := req.ToRead.Get(); ok {
			ub.ToRead = v
		}
		if v, ok := req.PercentRead.Get(); ok {
			ub.PercentRead = &v
		}
		if v, ok := req.PersonalNotes.Get(); ok && !normalize.Blank(v) {
			notes := strings.TrimSpace(v)
			ub.PersonalNotes = &notes
		}
		ub.UpdatedAt = txr.now()

		// the last-event cache belongs to the event recorder
		if err := txr.userBooks.Save(ctx, ub, "last_reading_event", "last_reading_event_date", "created_at"); err != nil {
			return err
		}

		if bookReq, ok := req.Book.Get(); ok {
			if _, err := txr.books.UpdateBook(ctx, ub.BookID, bookReq); err != nil {
				return err
			}
		}

		if eventType, ok := req.LastReadingEvent.Get(); ok {
			if r.recorder == nil {
				return repoerr.Validation("last_reading_event", "reading events are not enabled")
			}
			if _, err := r.recorder(tx).RecordEvent(ctx, ub.LastEvent(), eventType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindUserBookByID(ctx, id)
}

// FindUserBookByID returns a tracking record with its hydrated book.
func (r *Repository) FindUserBookByID(ctx context.Context, id uuid.UUID) (*entities.UserBook, error) {
	ub, err := r.userBooks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.attachBooks(ctx, ub); err != nil {
		return nil, err
	}
	return ub, nil
}

// FindAllForUser lists a user's records by last event date, newest first.
// Records without any event come last.
func (r *Repository) FindAllForUser(ctx context.Context, userID uuid.UUID) ([]entities.UserBook, error) {
	return r.FindByCriteria(ctx, userID, Criteria{})
}

// FindByCriteria narrows a user's records by last event type and to-read
// flag. Omitted criteria match everything.
func (r *Repository) FindByCriteria(ctx context.Context, userID uuid.UUID, criteria Criteria) ([]entities.UserBook, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if criteria.LastEventType != nil {
		query = query.Where("last_reading_event = ?", *criteria.LastEventType)
	}
	if criteria.ToRead != nil {
		query = query.Where("to_read = ?", *criteria.ToRead)
	}

	found := []entities.UserBook{}
	if err := query.Order(lastEventOrder).Find(&found).Error; err != nil {
		return nil, repoerr.FromGorm("list user books", "user_book", userID, err)
	}

	ptrs := make([]*entities.UserBook, len(found))
	for i := range found {
		ptrs[i] = &found[i]
	}
	if err := r.attachBooks(ctx, ptrs...); err != nil {
		return nil, err
	}
	return found, nil
}

// FindByUserAndBook returns the record for a pair, or nil when the user does
// not track the book.
func (r *Repository) FindByUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (*entities.UserBook, error) {
	var ub entities.UserBook
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Take(&ub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, repoerr.FromGorm("find user book", "user_book", bookID, err)
	}
	return &ub, nil
}

// attachBooks loads the referenced books with their relations.
func (r *Repository) attachBooks(ctx context.Context, userBooks ...*entities.UserBook) error {
	if len(userBooks) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(userBooks))
	for _, ub := range userBooks {
		ids = append(ids, ub.BookID)
	}
	byID, err := r.books.FindBooksByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, ub := range userBooks {
		book, ok := byID[ub.BookID]
		if !ok {
			return repoerr.NotFound("book", ub.BookID)
		}
		ub.Book = *book
	}
	return nil
}

func validatePercent(p *int) error {
	if p != nil && (*p < 0 || *p > 100) {
		return repoerr.Validation("percent_read", "must be between 0 and 100")
	}
	return nil
}
