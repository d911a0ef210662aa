package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

// Registry is the single source of truth for live sessions. The map
// mutex only guards lookups and membership; per-session work is
// serialized by each Session's own mutex, so unrelated sessions never
// block each other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*Session),
	}
}

// Join creates the session on first sight and is idempotent for the
// owner. A join on a session owned by another identity is rejected
// without touching its state.
func (r *Registry) Join(id domain.SessionID, ident domain.Identity) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		if s.Owner().UserID != ident.UserID {
			return nil, domain.ErrUnauthorized
		}
		return s, nil
	}
	s := newSession(id, ident)
	r.sessions[id] = s
	log.Info().Str("module", "app.registry").Str("session", string(id)).
		Str("user", string(ident.UserID)).Msg("session created")
	return s, nil
}

func (r *Registry) Get(id domain.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close releases the session's negotiation object and removes it from
// the registry. Unknown or already-closed sessions are a no-op; a
// close attempt by a non-owner is rejected.
func (r *Registry) Close(id domain.SessionID, ident domain.Identity) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok && s.Owner().UserID != ident.UserID {
		r.mu.Unlock()
		return domain.ErrUnauthorized
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.close()
	}
	return nil
}

// CloseAllOwnedBy tears down every session the given user owns. Called
// synchronously when the owning connection closes.
func (r *Registry) CloseAllOwnedBy(uid domain.UserID) int {
	r.mu.Lock()
	var owned []*Session
	for id, s := range r.sessions {
		if s.Owner().UserID == uid {
			owned = append(owned, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range owned {
		s.close()
	}
	if len(owned) > 0 {
		log.Info().Str("module", "app.registry").Str("user", string(uid)).
			Int("count", len(owned)).Msg("closed sessions on disconnect")
	}
	return len(owned)
}

// Sweep closes sessions older than maxAge and reports how many.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.CreatedAt().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	if len(stale) > 0 {
		log.Info().Str("module", "app.registry").Int("count", len(stale)).Msg("swept stale sessions")
	}
	return len(stale)
}

// RunSweeper periodically sweeps stale sessions until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxAge)
		}
	}
}
