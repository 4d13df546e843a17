// Package store provides the generic persistence primitive shared by the
// repositories: create, fetch by id, fetch all and pattern search for one
// entity kind. It holds no business rules.
//
// # Usage
//
//	authors := store.New[entities.Author](db, "author")
//	found, err := authors.FindByPattern(ctx, "name", "%herbert%")
//
// All errors are mapped through repoerr, so callers see NotFound, Conflict or
// StoreError kinds only.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelf/internal/repoerr"
)

// Store handles persistence for one entity kind.
type Store[T any] struct {
	db     *gorm.DB
	entity string
}

func New[T any](db *gorm.DB, entity string) *Store[T] {
	return &Store[T]{db: db, entity: entity}
}

// WithTx returns a Store bound to tx.
func (s *Store[T]) WithTx(tx *gorm.DB) *Store[T] {
	return &Store[T]{db: tx, entity: s.entity}
}

// Create persists v and fills its generated fields. Associations are never
// written by Create; relations are managed by their owning repository.
func (s *Store[T]) Create(ctx context.Context, v *T) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error
	return repoerr.FromGorm("create "+s.entity, s.entity, nil, err)
}

// CreateOrIgnore inserts v unless a row already holds the same value in
// conflictColumn. It reports whether a row was inserted.
func (s *Store[T]) CreateOrIgnore(ctx context.Context, v *T, conflictColumn string) (bool, error) {
	result := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: checkColumn(conflictColumn)}},
			DoNothing: true,
		}).
		Create(v)
	if result.Error != nil {
		return false, repoerr.FromGorm("create "+s.entity, s.entity, nil, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Save writes every column of v except the omitted ones. Columns owned by
// another write path must be listed in omit, or a stale copy of v overwrites
// them.
func (s *Store[T]) Save(ctx context.Context, v *T, omit ...string) error {
	columns := []string{clause.Associations}
	for _, c := range omit {
		columns = append(columns, checkColumn(c))
	}
	err := s.db.WithContext(ctx).Omit(columns...).Save(v).Error
	return repoerr.FromGorm("save "+s.entity, s.entity, nil, err)
}

func (s *Store[T]) GetByID(ctx context.Context, id any) (*T, error) {
	var v T
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if err != nil {
		return nil, repoerr.FromGorm("get "+s.entity, s.entity, id, err)
	}
	return &v, nil
}

// GetByIDs returns the matching rows in no particular order. Missing ids are
// skipped.
func (s *Store[T]) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	out := []T{}
	if len(ids) == 0 {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	if err != nil {
		return nil, repoerr.FromGorm("list "+s.entity, s.entity, nil, err)
	}
	return out, nil
}

// All returns every row. Order is unspecified unless order clauses are given.
func (s *Store[T]) All(ctx context.Context, order ...string) ([]T, error) {
	query := s.db.WithContext(ctx)
	for _, o := range order {
		query = query.Order(o)
	}
	out := []T{}
	if err := query.Find(&out).Error; err != nil {
		return nil, repoerr.FromGorm("list "+s.entity, s.entity, nil, err)
	}
	return out, nil
}

// FindByPattern runs a case-insensitive LIKE on column. The pattern is used
// as given; callers add their own wildcards.
func (s *Store[T]) FindByPattern(ctx context.Context, column, pattern string, order ...string) ([]T, error) {
	query := s.db.WithContext(ctx).
		Where(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", checkColumn(column)), pattern)
	for _, o := range order {
		query = query.Order(o)
	}
	out := []T{}
	if err := query.Find(&out).Error; err != nil {
		return nil, repoerr.FromGorm("search "+s.entity, s.entity, nil, err)
	}
	return out, nil
}

// FindOneBy returns the first row whose column equals value.
func (s *Store[T]) FindOneBy(ctx context.Context, column string, value any) (*T, error) {
	var v T
	err := s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Take(&v).Error
	if err != nil {
		return nil, repoerr.FromGorm("find "+s.entity, s.entity, value, err)
	}
	return &v, nil
}

// UpdateColumns writes only the given columns of the row with id.
func (s *Store[T]) UpdateColumns(ctx context.Context, id any, columns map[string]any) error {
	var v T
	result := s.db.WithContext(ctx).Model(&v).Where("id = ?", id).UpdateColumns(columns)
	if result.Error != nil {
		return repoerr.FromGorm("update "+s.entity, s.entity, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repoerr.NotFound(s.entity, id)
	}
	return nil
}

func checkColumn(column string) string {
	for _, r := range column {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			panic(fmt.Sprintf("store: invalid column name %q", column))
		}
	}
	return column
}
