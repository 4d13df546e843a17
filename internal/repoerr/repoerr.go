// Package repoerr defines the error kinds returned by the repositories.
//
// Callers branch on the kind with errors.Is:
//
//	book, err := booksRepo.FindBookByID(ctx, id)
//	if errors.Is(err, repoerr.ErrNotFound) {
//	    respondNotFound(c, "Book not found")
//	    return
//	}
//
// No repository retries; every error is surfaced once to the caller.
package repoerr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store failure")
)

// NotFoundError reports an id that does not resolve to an entity.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a structurally incomplete request. It is returned
// before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError reports a write rejected by a uniqueness rule.
type ConflictError struct {
	Entity  string
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func Conflict(entity, message string) error {
	return &ConflictError{Entity: entity, Message: message}
}

func Store(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// FromGorm maps a gorm error to a repository error kind. Errors that already
// carry a kind pass through untouched. It returns nil for a nil error.
func FromGorm(op, entity string, id any, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict), errors.Is(err, ErrStore):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Entity: entity, Message: "already exists", Err: err}
	default:
		return Store(op, err)
	}
}
