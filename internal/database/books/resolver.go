package books

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/shelf/internal/database/store"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/normalize"
	"github.com/mrlokans/shelf/internal/repoerr"
)

const normalizedNameColumn = "normalized_name"

// named is satisfied by the shared entities that are deduplicated by name.
type named interface {
	entities.Author | entities.Tag
}

// resolver finds an Author or Tag by its normalized name, creating it when
// missing. The unique index on normalized_name makes the lookup canonical:
// at most one entity can match a given name.
type resolver[T named] struct {
	store  *store.Store[T]
	entity string
	build  func(name, key string) *T
	id     func(*T) uuid.UUID
}

func newAuthorResolver(s *store.Store[entities.Author]) resolver[entities.Author] {
	return resolver[entities.Author]{
		store:  s,
		entity: "author",
		build: func(name, key string) *entities.Author {
			return &entities.Author{Name: name, NormalizedName: key}
		},
		id: func(a *entities.Author) uuid.UUID { return a.ID },
	}
}

func newTagResolver(s *store.Store[entities.Tag]) resolver[entities.Tag] {
	return resolver[entities.Tag]{
		store:  s,
		entity: "tag",
		build: func(name, key string) *entities.Tag {
			return &entities.Tag{Name: name, NormalizedName: key}
		},
		id: func(t *entities.Tag) uuid.UUID { return t.ID },
	}
}

// Resolve returns the entity matching name, or a NotFound error.
func (r resolver[T]) Resolve(ctx context.Context, name string) (*T, error) {
	key := normalize.Name(name)
	if key == "" {
		return nil, repoerr.Validation(r.entity+".name", "must not be blank")
	}
	return r.store.FindOneBy(ctx, normalizedNameColumn, key)
}

// ResolveOrCreate returns the entity matching name, creating it first when no
// match exists. created is true only when this call inserted the row.
func (r resolver[T]) ResolveOrCreate(ctx context.Context, name string) (entity *T, created bool, err error) {
	found, err := r.Resolve(ctx, name)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, repoerr.ErrNotFound) {
		return nil, false, err
	}

	key := normalize.Name(name)
	candidate := r.build(displayName(name), key)
	inserted, err := r.store.CreateOrIgnore(ctx, candidate, normalizedNameColumn)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return candidate, true, nil
	}

	// Lost a race with a concurrent insert of the same name.
	found, err = r.store.FindOneBy(ctx, normalizedNameColumn, key)
	if err != nil {
		return nil, false, err
	}
	return found, false, nil
}

// ResolveAll resolves every name in order and returns the distinct ids.
// Repeating a name within one call yields a single id.
func (r resolver[T]) ResolveAll(ctx context.Context, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		entity, _, err := r.ResolveOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, r.id(entity))
	}
	return distinct(ids), nil
}

// displayName tidies whitespace in the stored name; case is preserved.
func displayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
