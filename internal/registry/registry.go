package registry

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"hostlink/internal/session"
)

// ErrFull is returned by Insert when the session limit is reached.
var ErrFull = errors.New("registry: session limit reached")

// Registry maps session IDs to live sessions.
type Registry struct {
	mu       sync.Mutex
	max      int
	sessions map[uint64]*session.Session
	rand     func() (uint64, error)
}

// New returns a registry holding at most max sessions. max <= 0 means no
// limit.
func New(max int) *Registry {
	return &Registry{
		max:      max,
		sessions: make(map[uint64]*session.Session),
		rand:     randomID,
	}
}

// Insert assigns s a fresh ID and adds it.
func (r *Registry) Insert(s *session.Session) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.sessions) >= r.max {
		return 0, ErrFull
	}
	for {
		id, err := r.rand()
		if err != nil {
			return 0, fmt.Errorf("registry: generate id: %w", err)
		}
		if id == 0 {
			continue
		}
		if _, taken := r.sessions[id]; taken {
			continue
		}
		s.SetID(id)
		r.sessions[id] = s
		return id, nil
	}
}

// Lookup returns the session with id.
func (r *Registry) Lookup(id uint64) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes id. Removing an absent ID is a no-op.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Full reports whether Insert would fail with ErrFull.
func (r *Registry) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.max > 0 && len(r.sessions) >= r.max
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ForEach calls fn for every session while holding the registry lock.
// fn must not call back into the registry.
func (r *Registry) ForEach(fn func(id uint64, s *session.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		fn(id, s)
	}
}

// Snapshot returns the sessions ordered by ID.
func (r *Registry) Snapshot() []*session.Session {
	r.mu.Lock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// randomID returns a uniformly random value below 2^63.
func randomID() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]) >> 1, nil
}
