/*
store.go - Persistence interface for invoicing profiles

PURPOSE:
  Defines the interface between the invoicing service and the database.
  Implementations: store/memory (tests, dev) and store/sqlite (production).

CONCURRENCY:
  UpdateProfile is the only way to mutate a stored profile. Implementations
  must run the read-modify-write atomically so concurrent recordings of
  periods off or expenses never lose an update.

SEE ALSO:
  - service.go: the only caller
*/
package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/period-engine/billing"
)

var (
	// ErrProfileNotFound is returned when no profile has the requested ID.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists is returned when creating a profile whose ID is taken.
	ErrProfileExists = errors.New("profile already exists")
)

// ProfileStore persists billing profiles keyed by Profile.ID.
type ProfileStore interface {
	// CreateProfile stores a new profile, failing with ErrProfileExists.
	CreateProfile(ctx context.Context, p billing.Profile) error

	// GetProfile fails with ErrProfileNotFound.
	GetProfile(ctx context.Context, id string) (billing.Profile, error)

	// ListProfiles returns all profiles ordered by ID.
	ListProfiles(ctx context.Context) ([]billing.Profile, error)

	DeleteProfile(ctx context.Context, id string) error

	// UpdateProfile loads the profile, applies fn and saves the result
	// atomically. Nothing is saved if fn returns an error.
	UpdateProfile(ctx context.Context, id string, fn func(*billing.Profile) error) (billing.Profile, error)
}

// NotFoundError carries the missing profile ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("profile not found: %s", e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrProfileNotFound }

// IsNotFound returns true if the error indicates a missing profile.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

// IsConflict returns true if the error indicates a clash with stored state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrProfileExists)
}
