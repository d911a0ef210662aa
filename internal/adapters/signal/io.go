package signal

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

const writeTimeout = 5 * time.Second

func (g *Gateway) writePump(c *wsConn, ident domain.Identity) {
	ticker := time.NewTicker(g.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").
					Str("user", string(ident.UserID)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").
					Str("user", string(ident.UserID)).Msg("writePump ping error")
				return
			}
		}
	}
}

// readPump processes inbound messages in arrival order. A transport
// error ends the connection and synchronously closes every session the
// identity owns; a bad message only earns an error reply.
func (g *Gateway) readPump(c *wsConn, ident domain.Identity) {
	defer func() {
		c.Close()
		c.workers.stop()
		n := g.Registry.CloseAllOwnedBy(ident.UserID)
		log.Info().Str("module", "signal").Str("user", string(ident.UserID)).
			Int("sessions_closed", n).Msg("connection closed")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "signal").
					Str("user", string(ident.UserID)).Msg("readPump read error")
			}
			return
		}
		g.dispatch(c, ident, data)
	}
}

// dispatch decodes the envelope once and routes it. Session messages
// go through the session's FIFO queue: a slow offer never stalls the
// read loop, yet a candidate sent right after it still runs after it.
func (g *Gateway) dispatch(c *wsConn, ident domain.Identity, data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		g.sendError(c, errInvalidFormat)
		return
	}

	switch msg.Type {
	case "join":
		g.handleJoin(c, ident, msg)
	case "offer":
		g.enqueue(c, msg.SessionID, func() { g.handleOffer(c, ident, msg) })
	case "answer":
		g.enqueue(c, msg.SessionID, func() { g.handleAnswer(c, ident, msg) })
	case "candidate":
		g.enqueue(c, msg.SessionID, func() { g.handleCandidate(c, ident, msg) })
	case "close":
		g.enqueue(c, msg.SessionID, func() { g.handleClose(c, ident, msg) })
	case "ping":
		g.sendJSON(c, map[string]string{"type": "pong"})
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("unknown signal")
		g.sendError(c, errUnknownType)
	}
}

// enqueue hands a session message to its FIFO runner. A refused
// enqueue only happens while the connection is tearing down, when no
// reply can be delivered anyway.
func (g *Gateway) enqueue(c *wsConn, sessionID string, fn func()) {
	if !c.workers.enqueue(sessionID, func() { g.guarded(c, fn) }) {
		log.Warn().Str("module", "signal").Str("session", sessionID).Msg("message after shutdown dropped")
	}
}

// guarded converts a handler panic into an error reply instead of
// letting it take down the process.
func (g *Gateway) guarded(c *wsConn, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").Msg("handler panic")
			g.sendError(c, errInternal)
		}
	}()
	fn()
}

func (g *Gateway) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (g *Gateway) sendError(c *wsConn, msg string) {
	g.sendJSON(c, errorReply{Error: msg})
}
