// Package repositories holds what the domain repositories share: their
// sentinel errors and the mapping from store errors onto them.
package repositories

import (
	"errors"
	"fmt"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate field value entered")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("not authorized")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("invalid credentials")
)

// StoreError maps docstore errors onto repository sentinels and wraps the
// rest with op.
func StoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, docstore.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Failure is a sentinel error with a message meant for the caller.
type Failure struct {
	Kind    error
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

// Fail builds a Failure of kind.
func Fail(kind error, format string, args ...any) error {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Actor is the authenticated user a write is performed for.
type Actor struct {
	ID    string
	Admin bool
}

// Owns reports whether the actor may change a record owned by ownerID.
func (a Actor) Owns(ownerID string) bool {
	return a.Admin || a.ID == ownerID
}
