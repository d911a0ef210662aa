package domain

import "errors"

type SessionID string

// NegotiationState tracks how far a session's offer/answer exchange
// has progressed. A session is created by join and removed on close;
// there are no tombstones.
type NegotiationState int

const (
	StateCreated NegotiationState = iota
	StateOffered
	StateAnswered
	StateClosed
)

func (s NegotiationState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOffered:
		return "offered"
	case StateAnswered:
		return "answered"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnknownSession = errors.New("unknown session")
	ErrInvalidState   = errors.New("invalid session state")
	ErrSessionClosed  = errors.New("session closed")
)

// SessionDescription mirrors the browser's RTCSessionDescription
// as it arrives on the signaling channel.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Candidate mirrors the browser's RTCIceCandidateInit.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}
