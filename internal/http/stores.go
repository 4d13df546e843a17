package http

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/database/readingevents"
	"github.com/mrlokans/shelf/internal/database/userbooks"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/metadata"
	"github.com/mrlokans/shelf/internal/optional"
)

// This file consolidates the store interfaces used by HTTP controllers.
// Each controller depends only on the methods it calls.

// BookStore provides book catalog operations.
type BookStore interface {
	CreateBook(ctx context.Context, req books.CreateBookRequest) (*entities.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, req books.UpdateBookRequest) (*entities.Book, error)
	FindBooks(ctx context.Context, searchTerm string) ([]entities.Book, error)
	FindBookByID(ctx context.Context, id uuid.UUID) (*entities.Book, error)
}

// AuthorStore provides author operations.
type AuthorStore interface {
	CreateAuthor(ctx context.Context, name string) (*entities.Author, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, name optional.Value[string]) (*entities.Author, error)
	FindAllAuthors(ctx context.Context) ([]entities.Author, error)
	FindAuthorsByName(ctx context.Context, name string) ([]entities.Author, error)
	FindAuthorByID(ctx context.Context, id uuid.UUID) (*entities.Author, error)
	FindBooksByAuthor(ctx context.Context, authorID uuid.UUID) ([]entities.Book, error)
}

// TagStore provides tag operations.
type TagStore interface {
	CreateTag(ctx context.Context, name string) (*entities.Tag, error)
	UpdateTag(ctx context.Context, id uuid.UUID, name optional.Value[string]) (*entities.Tag, error)
	FindAllTags(ctx context.Context) ([]entities.Tag, error)
	FindTagsByName(ctx context.Context, name string) ([]entities.Tag, error)
	FindTagByID(ctx context.Context, id uuid.UUID) (*entities.Tag, error)
	FindBooksByTag(ctx context.Context, tagID uuid.UUID) ([]entities.Book, error)
}

// UserBookStore provides per-user tracking record operations.
type UserBookStore interface {
	CreateUserBook(ctx context.Context, bookID, userID uuid.UUID, req userbooks.CreateUserBookRequest) (*entities.UserBook, error)
	UpdateUserBook(ctx context.Context, id uuid.UUID, req userbooks.UpdateUserBookRequest) (*entities.UserBook, error)
	FindUserBookByID(ctx context.Context, id uuid.UUID) (*entities.UserBook, error)
	FindByCriteria(ctx context.Context, userID uuid.UUID, criteria userbooks.Criteria) ([]entities.UserBook, error)
}

// EventStore lists reading events.
type EventStore interface {
	FindEventsForUserBook(ctx context.Context, userBookID uuid.UUID) ([]entities.ReadingEvent, error)
}

// UserProvisioner resolves the single-user mode account.
type UserProvisioner interface {
	GetOrCreateUser(ctx context.Context, username string) (*entities.User, error)
}

// CoverStore stores cover images.
type CoverStore interface {
	SaveUpload(ctx context.Context, bookID uuid.UUID, ext string, r io.Reader) (string, error)
	FetchRemote(ctx context.Context, bookID uuid.UUID, url string) (string, error)
	Path(name string) (string, error)
}

// MetadataLookup searches external catalogs.
type MetadataLookup interface {
	SearchByISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*metadata.BookMetadata, error)
}

// ReconcileStatus reports the progress of last-event reconciliation.
type ReconcileStatus interface {
	GetSyncProgress(ctx context.Context) (*entities.SyncProgress, error)
}

// Reconciler runs last-event reconciliation inline.
type Reconciler interface {
	ReconcileLastEvents(ctx context.Context, reporter readingevents.ProgressReporter) (readingevents.ReconcileResult, error)
}
