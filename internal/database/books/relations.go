package books

import (
	"context"

	"github.com/google/uuid"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/repoerr"
)

type linkRow struct {
	BookID   uuid.UUID
	TargetID uuid.UUID
}

// appendAuthorLinks writes one link per id, numbering positions after the
// offset existing links.
func (r *Repository) appendAuthorLinks(ctx context.Context, bookID uuid.UUID, offset int, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := r.now()
	links := make([]entities.BookAuthor, 0, len(ids))
	for i, id := range ids {
		links = append(links, entities.BookAuthor{BookID: bookID, AuthorID: id, Position: offset + i, CreatedAt: now})
	}
	err := r.db.WithContext(ctx).Create(&links).Error
	return repoerr.FromGorm("link authors", "book", bookID, err)
}

func (r *Repository) appendTagLinks(ctx context.Context, bookID uuid.UUID, offset int, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := r.now()
	links := make([]entities.BookTag, 0, len(ids))
	for i, id := range ids {
		links = append(links, entities.BookTag{BookID: bookID, TagID: id, Position: offset + i, CreatedAt: now})
	}
	err := r.db.WithContext(ctx).Create(&links).Error
	return repoerr.FromGorm("link tags", "book", bookID, err)
}

// Hydrate loads the authors and tags of every given book in link order,
// replacing whatever the slices held.
func (r *Repository) Hydrate(ctx context.Context, books ...*entities.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}

	authorLinks, err := r.links(ctx, &entities.BookAuthor{}, "author_id", ids)
	if err != nil {
		return err
	}
	tagLinks, err := r.links(ctx, &entities.BookTag{}, "tag_id", ids)
	if err != nil {
		return err
	}

	authors, err := r.authors.GetByIDs(ctx, targets(authorLinks))
	if err != nil {
		return err
	}
	tags, err := r.tags.GetByIDs(ctx, targets(tagLinks))
	if err != nil {
		return err
	}

	authorsByID := make(map[uuid.UUID]entities.Author, len(authors))
	for _, a := range authors {
		authorsByID[a.ID] = a
	}
	tagsByID := make(map[uuid.UUID]entities.Tag, len(tags))
	for _, t := range tags {
		tagsByID[t.ID] = t
	}

	for _, b := range books {
		b.Authors = []entities.Author{}
		for _, id := range authorLinks[b.ID] {
			if a, ok := authorsByID[id]; ok {
				b.Authors = append(b.Authors, a)
			}
		}
		b.Tags = []entities.Tag{}
		for _, id := range tagLinks[b.ID] {
			if t, ok := tagsByID[id]; ok {
				b.Tags = append(b.Tags, t)
			}
		}
	}
	return nil
}

// links returns the linked ids per book, ordered by position.
func (r *Repository) links(ctx context.Context, model any, column string, bookIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	var rows []linkRow
	err := r.db.WithContext(ctx).
		Model(model).
		Select("book_id, "+column+" AS target_id").
		Where("book_id IN ?", bookIDs).
		Order("position ASC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, repoerr.FromGorm("load links", "book", nil, err)
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(bookIDs))
	for _, row := range rows {
		out[row.BookID] = append(out[row.BookID], row.TargetID)
	}
	return out, nil
}

func targets(links map[uuid.UUID][]uuid.UUID) []uuid.UUID {
	var all []uuid.UUID
	for _, ids := range links {
		all = append(all, ids...)
	}
	return distinct(all)
}
