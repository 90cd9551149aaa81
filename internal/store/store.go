// Package store keeps the parcels selected in a session, in click order.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// ErrIndexOutOfRange is returned when removing a position the store does not hold.
var ErrIndexOutOfRange = errors.New("index out of range")

// Store is an ordered list of selected parcels. Repeated clicks on the same parcel
// are kept as separate entries; merging happens in the aggregate package.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	parcels []models.Parcel
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Append adds p at the end and returns its index.
func (s *Store) Append(p models.Parcel) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parcels = append(s.parcels, p)
	return len(s.parcels) - 1
}

// RemoveAt deletes the parcel at index, shifting later entries down by one.
func (s *Store) RemoveAt(index int) (models.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.parcels) {
		return models.Parcel{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(s.parcels))
	}

	removed := s.parcels[index]
	s.parcels = append(s.parcels[:index], s.parcels[index+1:]...)
	return removed, nil
}

// Snapshot returns a copy of the current sequence.
func (s *Store) Snapshot() []models.Parcel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Parcel, len(s.parcels))
	copy(out, s.parcels)
	return out
}

// Len returns the number of stored parcels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parcels)
}

// Clear removes every parcel.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parcels = nil
}
