// Package memory provides an in-memory invoicing.ProfileStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/invoicing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store copies profiles on the way in and out, so callers never share
// state with it.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]billing.Profile
}

var _ invoicing.ProfileStore = (*Store)(nil)

func New() *Store {
	return &Store{profiles: make(map[string]billing.Profile)}
}

func (s *Store) CreateProfile(_ context.Context, p billing.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; ok {
		return invoicing.ErrProfileExists
	}
	s.profiles[p.ID] = p.Clone()
	return nil
}

func (s *Store) GetProfile(_ context.Context, id string) (billing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return billing.Profile{}, &invoicing.NotFoundError{ID: id}
	}
	return p.Clone(), nil
}

func (s *Store) ListProfiles(_ context.Context) ([]billing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]billing.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return &invoicing.NotFoundError{ID: id}
	}
	delete(s.profiles, id)
	return nil
}

// UpdateProfile holds the write lock for the whole read-modify-write.
func (s *Store) UpdateProfile(_ context.Context, id string, fn func(*billing.Profile) error) (billing.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[id]
	if !ok {
		return billing.Profile{}, &invoicing.NotFoundError{ID: id}
	}
	working := current.Clone()
	if err := fn(&working); err != nil {
		return billing.Profile{}, err
	}
	working.ID = id
	s.profiles[id] = working.Clone()
	return working, nil
}
