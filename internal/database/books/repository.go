// Package books provides database operations for the shared catalog: books,
// authors and tags.
//
// Authors and tags named in a create or update request are resolved by
// normalized name and created on first reference. On update they are merged
// into the book's current sets according to the configured MergePolicy.
//
// # Interface Implementation
//
//	var _ http.BookStore = (*Repository)(nil)
//	var _ covers.ImageSetter = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db, books.MergeAppend)
//	book, err := repo.CreateBook(ctx, books.CreateBookRequest{
//	    Title:   "Dune",
//	    Authors: []books.NameRequest{{Name: "Frank Herbert"}},
//	})
package books

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/database/store"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/normalize"
	"github.com/mrlokans/shelf/internal/optional"
	"github.com/mrlokans/shelf/internal/repoerr"
)

const bookOrder = "title ASC, created_at ASC"

// Repository handles all book, author and tag database operations.
type Repository struct {
	db      *gorm.DB
	policy  MergePolicy
	now     func() time.Time
	books   *store.Store[entities.Book]
	authors *store.Store[entities.Author]
	tags    *store.Store[entities.Tag]
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB, policy MergePolicy) *Repository {
	return &Repository{
		db:      db,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
		books:   store.New[entities.Book](db, "book"),
		authors: store.New[entities.Author](db, "author"),
		tags:    store.New[entities.Tag](db, "tag"),
	}
}

// WithTx returns a repository whose statements run on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{
		db:      tx,
		policy:  r.policy,
		now:     r.now,
		books:   r.books.WithTx(tx),
		authors: r.authors.WithTx(tx),
		tags:    r.tags.WithTx(tx),
	}
}

// Policy reports the relation merge policy in use.
func (r *Repository) Policy() MergePolicy {
	return r.policy
}

func (r *Repository) transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// CreateBook resolves or creates every named author and tag, then persists
// the book with those relations in one transaction.
func (r *Repository) CreateBook(ctx context.Context, req CreateBookRequest) (*entities.Book, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, repoerr.Validation("title", "is required")
	}

	var created *entities.Book
	err := r.transaction(ctx, func(tx *Repository) error {
		authorIDs, err := newAuthorResolver(tx.authors).ResolveAll(ctx, names(req.Authors))
		if err != nil {
			return err
		}
		tagIDs, err := newTagResolver(tx.tags).ResolveAll(ctx, names(req.Tags))
		if err != nil {
			return err
		}

		now := tx.now()
		book := &entities.Book{
			Title:     title,
			Image:     req.Image.Ptr(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		req.BookFields.replaceOn(book)
		if err := tx.books.Create(ctx, book); err != nil {
			return err
		}

		if err := tx.appendAuthorLinks(ctx, book.ID, 0, authorIDs); err != nil {
			return err
		}
		if err := tx.appendTagLinks(ctx, book.ID, 0, tagIDs); err != nil {
			return err
		}
		created = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.Hydrate(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateBook replaces the scalar fields of a book, applies a non-blank title
// and merges any named authors and tags into the current sets. The cover
// image is never touched here.
func (r *Repository) UpdateBook(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*entities.Book, error) {
	var updated *entities.Book
	err := r.transaction(ctx, func(tx *Repository) error {
		book, err := tx.books.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Hydrate(ctx, book); err != nil {
			return err
		}

		if title, ok := req.Title.Get(); ok && !normalize.Blank(title) {
			book.Title = strings.TrimSpace(title)
		}
		req.BookFields.replaceOn(book)
		book.UpdatedAt = tx.now()

		if err := tx.books.Save(ctx, book, "image", "created_at"); err != nil {
			return err
		}

		if len(req.Authors) > 0 {
			incoming, err := newAuthorResolver(tx.authors).ResolveAll(ctx, names(req.Authors))
			if err != nil {
				return err
			}
			current := book.AuthorIDs()
			_, added := merge(tx.policy, current, incoming)
			if err := tx.appendAuthorLinks(ctx, book.ID, len(current), added); err != nil {
				return err
			}
		}
		if len(req.Tags) > 0 {
			incoming, err := newTagResolver(tx.tags).ResolveAll(ctx, names(req.Tags))
			if err != nil {
				return err
			}
			current := book.TagIDs()
			_, added := merge(tx.policy, current, incoming)
			if err := tx.appendTagLinks(ctx, book.ID, len(current), added); err != nil {
				return err
			}
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.Hydrate(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// SetCoverImage stores the cover reference of a book. It is the only write
// path for the image field after creation.
func (r *Repository) SetCoverImage(ctx context.Context, id uuid.UUID, image string) error {
	return r.books.UpdateColumns(ctx, id, map[string]any{
		"image":      image,
		"updated_at": r.now(),
	})
}

// CreateAuthor creates an author. A name that normalizes to an existing
// author is a Conflict.
func (r *Repository) CreateAuthor(ctx context.Context, name string) (*entities.Author, error) {
	key := normalize.Name(name)
	if key == "" {
		return nil, repoerr.Validation("name", "is required")
	}
	now := r.now()
	author := &entities.Author{Name: displayName(name), NormalizedName: key, CreatedAt: now, UpdatedAt: now}
	if err := r.authors.Create(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

// CreateTag creates a tag. A name that normalizes to an existing tag is a
// Conflict.
func (r *Repository) CreateTag(ctx context.Context, name string) (*entities.Tag, error) {
	key := normalize.Name(name)
	if key == "" {
		return nil, repoerr.Validation("name", "is required")
	}
	now := r.now()
	tag := &entities.Tag{Name: displayName(name), NormalizedName: key, CreatedAt: now, UpdatedAt: now}
	if err := r.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateAuthor renames an author when a non-blank name is supplied and always
// refreshes its modification time.
func (r *Repository) UpdateAuthor(ctx context.Context, id uuid.UUID, name optional.Value[string]) (*entities.Author, error) {
	author, err := r.authors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n, ok := name.Get(); ok && !normalize.Blank(n) {
		author.Name = displayName(n)
		author.NormalizedName = normalize.Name(n)
	}
	author.UpdatedAt = r.now()
	if err := r.authors.Save(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

// UpdateTag has the same semantics as UpdateAuthor.
func (r *Repository) UpdateTag(ctx context.Context, id uuid.UUID, name optional.Value[string]) (*entities.Tag, error) {
	tag, err := r.tags.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n, ok := name.Get(); ok && !normalize.Blank(n) {
		tag.Name = displayName(n)
		tag.NormalizedName = normalize.Name(n)
	}
	tag.UpdatedAt = r.now()
	if err := r.tags.Save(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// ResolveAuthor returns the author whose normalized name equals name.
func (r *Repository) ResolveAuthor(ctx context.Context, name string) (*entities.Author, error) {
	return newAuthorResolver(r.authors).Resolve(ctx, name)
}

// ResolveTag returns the tag whose normalized name equals name.
func (r *Repository) ResolveTag(ctx context.Context, name string) (*entities.Tag, error) {
	return newTagResolver(r.tags).Resolve(ctx, name)
}

// FindBooks returns every book whose title contains searchTerm. A blank term
// returns the whole catalog.
func (r *Repository) FindBooks(ctx context.Context, searchTerm string) ([]entities.Book, error) {
	var (
		found []entities.Book
		err   error
	)
	if normalize.Blank(searchTerm) {
		found, err = r.books.All(ctx, bookOrder)
	} else {
		found, err = r.books.FindByPattern(ctx, "title", "%"+strings.TrimSpace(searchTerm)+"%", bookOrder)
	}
	if err != nil {
		return nil, err
	}
	return r.hydrated(ctx, found)
}

// FindBooksByTitle matches titles against a LIKE pattern used as given.
func (r *Repository) FindBooksByTitle(ctx context.Context, pattern string) ([]entities.Book, error) {
	found, err := r.books.FindByPattern(ctx, "title", pattern, bookOrder)
	if err != nil {
		return nil, err
	}
	return r.hydrated(ctx, found)
}

func (r *Repository) FindBookByID(ctx context.Context, id uuid.UUID) (*entities.Book, error) {
	book, err := r.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Hydrate(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// FindBooksByIDs returns the hydrated books for ids, keyed by id. Unknown ids
// are absent from the map.
func (r *Repository) FindBooksByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Book, error) {
	found, err := r.books.GetByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, err
	}
	found, err = r.hydrated(ctx, found)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*entities.Book, len(found))
	for i := range found {
		out[found[i].ID] = &found[i]
	}
	return out, nil
}

// FindBooksByAuthor lists the books linked to an author.
func (r *Repository) FindBooksByAuthor(ctx context.Context, authorID uuid.UUID) ([]entities.Book, error) {
	if _, err := r.authors.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	return r.findLinkedBooks(ctx, &entities.BookAuthor{}, "author_id", authorID)
}

// FindBooksByTag lists the books linked to a tag.
func (r *Repository) FindBooksByTag(ctx context.Context, tagID uuid.UUID) ([]entities.Book, error) {
	if _, err := r.tags.GetByID(ctx, tagID); err != nil {
		return nil, err
	}
	return r.findLinkedBooks(ctx, &entities.BookTag{}, "tag_id", tagID)
}

func (r *Repository) findLinkedBooks(ctx context.Context, link any, column string, id uuid.UUID) ([]entities.Book, error) {
	linked := r.db.WithContext(ctx).Model(link).Select("book_id").Where(column+" = ?", id)
	found := []entities.Book{}
	err := r.db.WithContext(ctx).Where("id IN (?)", linked).Order(bookOrder).Find(&found).Error
	if err != nil {
		return nil, repoerr.FromGorm("list linked books", "book", id, err)
	}
	return r.hydrated(ctx, found)
}

func (r *Repository) FindAllAuthors(ctx context.Context) ([]entities.Author, error) {
	return r.authors.All(ctx, "name ASC")
}

func (r *Repository) FindAllTags(ctx context.Context) ([]entities.Tag, error) {
	return r.tags.All(ctx, "name ASC")
}

// FindAuthorsByName returns authors whose name contains name.
func (r *Repository) FindAuthorsByName(ctx context.Context, name string) ([]entities.Author, error) {
	return r.authors.FindByPattern(ctx, "name", "%"+strings.TrimSpace(name)+"%", "name ASC")
}

// FindTagsByName returns tags whose name contains name.
func (r *Repository) FindTagsByName(ctx context.Context, name string) ([]entities.Tag, error) {
	return r.tags.FindByPattern(ctx, "name", "%"+strings.TrimSpace(name)+"%", "name ASC")
}

func (r *Repository) FindAuthorByID(ctx context.Context, id uuid.UUID) (*entities.Author, error) {
	return r.authors.GetByID(ctx, id)
}

func (r *Repository) FindTagByID(ctx context.Context, id uuid.UUID) (*entities.Tag, error) {
	return r.tags.GetByID(ctx, id)
}

func (r *Repository) hydrated(ctx context.Context, found []entities.Book) ([]entities.Book, error) {
	ptrs := make([]*entities.Book, len(found))
	for i := range found {
		ptrs[i] = &found[i]
	}
	if err := r.Hydrate(ctx, ptrs...); err != nil {
		return nil, err
	}
	return found, nil
}
