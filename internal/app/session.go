package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

// Negotiator is the server-side half of one media negotiation.
// Owned exclusively by its Session; released exactly once on close.
type Negotiator interface {
	// Answer consumes the remote offer and produces the local answer.
	Answer(offer domain.SessionDescription) (domain.SessionDescription, error)
	// ApplyAnswer consumes a remote answer during renegotiation.
	ApplyAnswer(answer domain.SessionDescription) error
	AddCandidate(c domain.Candidate) error
	Close()
}

// NegotiatorFactory builds the negotiation object for a session when
// its first offer arrives.
type NegotiatorFactory func(id domain.SessionID) (Negotiator, error)

// Session is one negotiation between a client and the server peer.
// All operations are serialized by the session's own mutex; different
// sessions never contend with each other.
type Session struct {
	mu sync.Mutex

	id        domain.SessionID
	owner     domain.Identity
	state     domain.NegotiationState
	peer      Negotiator
	createdAt time.Time
}

func newSession(id domain.SessionID, owner domain.Identity) *Session {
	return &Session{
		id:        id,
		owner:     owner,
		state:     domain.StateCreated,
		createdAt: time.Now(),
	}
}

func (s *Session) ID() domain.SessionID   { return s.id }
func (s *Session) Owner() domain.Identity { return s.owner }
func (s *Session) CreatedAt() time.Time   { return s.createdAt }

func (s *Session) State() domain.NegotiationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// checkOwner must be called with s.mu held.
func (s *Session) checkOwner(ident domain.Identity) error {
	if ident.UserID != s.owner.UserID {
		return domain.ErrUnauthorized
	}
	return nil
}

// Offer consumes the caller's offer, builds the negotiation object via
// factory and returns the local answer. The factory call happens under
// the session mutex so a racing close cannot interleave; only messages
// for this session wait on it.
func (s *Session) Offer(ident domain.Identity, offer domain.SessionDescription, factory NegotiatorFactory) (domain.SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwner(ident); err != nil {
		return domain.SessionDescription{}, err
	}
	if s.state == domain.StateClosed {
		return domain.SessionDescription{}, domain.ErrSessionClosed
	}
	if s.state != domain.StateCreated {
		return domain.SessionDescription{}, domain.ErrInvalidState
	}

	peer, err := factory(s.id)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	answer, err := peer.Answer(offer)
	if err != nil {
		peer.Close()
		return domain.SessionDescription{}, err
	}

	s.peer = peer
	s.state = domain.StateOffered
	log.Info().Str("module", "app.session").Str("session", string(s.id)).Msg("offer negotiated")
	return answer, nil
}

// ApplyAnswer feeds a remote answer to the negotiation object. The
// first answer moves the session to Answered; later ones (renegotiation)
// leave the state alone.
func (s *Session) ApplyAnswer(ident domain.Identity, answer domain.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwner(ident); err != nil {
		return err
	}
	if s.state != domain.StateOffered && s.state != domain.StateAnswered {
		return domain.ErrInvalidState
	}
	if err := s.peer.ApplyAnswer(answer); err != nil {
		return err
	}
	if s.state == domain.StateOffered {
		s.state = domain.StateAnswered
	}
	return nil
}

// AddCandidate applies connectivity metadata to the negotiation object.
// Valid only once an offer has been processed.
func (s *Session) AddCandidate(ident domain.Identity, c domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwner(ident); err != nil {
		return err
	}
	if s.state != domain.StateOffered && s.state != domain.StateAnswered {
		return domain.ErrInvalidState
	}
	return s.peer.AddCandidate(c)
}

// close releases the negotiation object. Idempotent.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateClosed {
		return
	}
	s.state = domain.StateClosed
	if s.peer != nil {
		s.peer.Close()
		s.peer = nil
	}
	log.Info().Str("module", "app.session").Str("session", string(s.id)).Msg("session closed")
}
