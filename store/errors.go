package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound reports an unknown id, slug or username.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation reports a write that would break a uniqueness
	// invariant. Nothing is persisted when it is returned.
	ErrConstraintViolation = errors.New("constraint violation")
)

// translate maps gorm errors onto the store taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConstraintViolation
	default:
		return err
	}
}
