package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/app"
	"github.com/interviewly/voicegate/internal/domain"
)

func (g *Gateway) handleJoin(c *wsConn, ident domain.Identity, msg message) {
	if msg.SessionID == "" {
		g.sendError(c, errInvalidFormat)
		return
	}
	sess, err := g.Registry.Join(domain.SessionID(msg.SessionID), ident)
	if err != nil {
		g.replyError(c, err)
		return
	}
	log.Info().Str("module", "signal").Str("session", string(sess.ID())).
		Str("user", string(ident.UserID)).Msg("join")
	g.sendJSON(c, joinedReply{
		Type:      "joined",
		SessionID: msg.SessionID,
		UserID:    string(ident.UserID),
	})
}

func (g *Gateway) handleOffer(c *wsConn, ident domain.Identity, msg message) {
	if msg.SDP == nil {
		g.sendError(c, errInvalidFormat)
		return
	}
	sess, ok := g.Registry.Get(domain.SessionID(msg.SessionID))
	if !ok {
		g.sendError(c, errUnknownSession)
		return
	}

	factory := func(id domain.SessionID) (app.Negotiator, error) {
		return g.Peers(id, func(cand domain.Candidate) {
			g.sendJSON(c, candidateReply{Type: "candidate", Candidate: cand})
		})
	}

	answer, err := sess.Offer(ident, *msg.SDP, factory)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").
			Str("session", msg.SessionID).Msg("offer failed")
		g.replyError(c, err)
		return
	}
	g.sendJSON(c, answerReply{Type: "answer", SDP: answer})
}

func (g *Gateway) handleAnswer(c *wsConn, ident domain.Identity, msg message) {
	if msg.SDP == nil {
		g.sendError(c, errInvalidFormat)
		return
	}
	sess, ok := g.Registry.Get(domain.SessionID(msg.SessionID))
	if !ok {
		g.sendError(c, errUnknownSession)
		return
	}
	if err := sess.ApplyAnswer(ident, *msg.SDP); err != nil {
		g.replyError(c, err)
	}
}

// handleCandidate applies connectivity metadata silently; only
// failures earn a reply.
func (g *Gateway) handleCandidate(c *wsConn, ident domain.Identity, msg message) {
	if msg.Candidate == nil {
		g.sendError(c, errInvalidFormat)
		return
	}
	sess, ok := g.Registry.Get(domain.SessionID(msg.SessionID))
	if !ok {
		g.sendError(c, errUnknownSession)
		return
	}
	if err := sess.AddCandidate(ident, *msg.Candidate); err != nil {
		g.replyError(c, err)
	}
}

func (g *Gateway) handleClose(c *wsConn, ident domain.Identity, msg message) {
	if err := g.Registry.Close(domain.SessionID(msg.SessionID), ident); err != nil {
		g.replyError(c, err)
		return
	}
	g.sendJSON(c, closedReply{Type: "closed", SessionID: msg.SessionID})
}

// replyError maps registry and session errors onto the wire contract.
func (g *Gateway) replyError(c *wsConn, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		g.sendError(c, errUnauthorized)
	case errors.Is(err, domain.ErrUnknownSession):
		g.sendError(c, errUnknownSession)
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrSessionClosed):
		g.sendError(c, errInvalidState)
	default:
		g.sendError(c, errInternal)
	}
}
