package store

import (
	"context"
	"sync"
	"time"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// DefaultSession is used when a client does not send a session ID.
const DefaultSession = "default"

type session struct {
	store    *Store
	lastSeen time.Time
}

// Registry hands out one Store per session ID. Sessions live in memory only and
// are dropped by Evict once idle.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock replaces time.Now as the source of session activity times.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the store of id, creating it on first use. Only writes should call Get.
func (r *Registry) Get(id string) *Store {
	if id == "" {
		id = DefaultSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = &session{store: New()}
		r.sessions[id] = s
	}
	s.lastSeen = r.now()
	return s.store
}

// Lookup returns the store of id without creating one.
func (r *Registry) Lookup(id string) (*Store, bool) {
	if id == "" {
		id = DefaultSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.store, true
}

// Snapshot returns the parcels of id, or nil for an unknown session.
func (r *Registry) Snapshot(id string) []models.Parcel {
	if s, ok := r.Lookup(id); ok {
		return s.Snapshot()
	}
	return nil
}

// Evict drops every session idle for longer than ttl and returns how many went.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done.
// onEvict, when set, is called after each sweep that removed something.
func (r *Registry) RunJanitor(ctx context.Context, ttl, interval time.Duration, onEvict func(evicted, remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(ttl); n > 0 && onEvict != nil {
				onEvict(n, r.Sessions())
			}
		}
	}
}

// Sessions returns the number of live sessions.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
