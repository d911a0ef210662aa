package signal

import (
	"github.com/interviewly/voicegate/internal/domain"
)

// Wire-level error strings, part of the client contract.
const (
	errInvalidFormat  = "Invalid message format"
	errUnknownType    = "Unknown message type"
	errUnauthorized   = "Unauthorized"
	errUnknownSession = "Unknown session"
	errInvalidState   = "Invalid session state"
	errInternal       = "Internal error"
)

// message is the inbound envelope, decoded exactly once at the
// boundary. Which fields are meaningful depends on Type.
type message struct {
	Type      string                     `json:"type"`
	SessionID string                     `json:"sessionId"`
	SDP       *domain.SessionDescription `json:"sdp,omitempty"`
	Candidate *domain.Candidate          `json:"candidate,omitempty"`
}

type joinedReply struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type answerReply struct {
	Type string                    `json:"type"`
	SDP  domain.SessionDescription `json:"sdp"`
}

type candidateReply struct {
	Type      string           `json:"type"`
	Candidate domain.Candidate `json:"candidate"`
}

type closedReply struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type errorReply struct {
	Error string `json:"error"`
}
