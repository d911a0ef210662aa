// Package signal is the connection gateway: it authenticates the
// websocket handshake, pins an identity to the connection and drives
// the per-session signaling protocol.
package signal

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/app"
	"github.com/interviewly/voicegate/internal/auth"
	"github.com/interviewly/voicegate/internal/domain"
)

// PeerFactory builds the negotiation object for a session. Locally
// gathered candidates are pushed through onCandidate.
type PeerFactory func(id domain.SessionID, onCandidate func(domain.Candidate)) (app.Negotiator, error)

// DefaultPingPeriod keeps idle connections alive through proxies that
// cut silent streams after a minute.
const DefaultPingPeriod = 54 * time.Second

type Gateway struct {
	Registry *app.Registry
	Issuer   *auth.Issuer
	Peers    PeerFactory

	// PingPeriod is the keepalive interval of the write pump.
	PingPeriod time.Duration
}

func NewGateway(registry *app.Registry, issuer *auth.Issuer, peers PeerFactory) *Gateway {
	return &Gateway{
		Registry:   registry,
		Issuer:     issuer,
		Peers:      peers,
		PingPeriod: DefaultPingPeriod,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and authenticates the scoped token
// carried as a query parameter (the browser websocket API cannot set
// headers on the upgrade request). A bad token closes the socket with
// policy-violation code 1008 before any signaling happens.
func (g *Gateway) HandleSignal(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	raw := c.Query("token")
	if raw == "" {
		g.rejectHandshake(ws, "Authentication required")
		return
	}
	ident, err := g.Issuer.Verify(raw)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("handshake token rejected")
		g.rejectHandshake(ws, "Authentication failed")
		return
	}

	log.Info().Str("module", "signal").Str("user", string(ident.UserID)).Msg("connection open")

	conn := newWSConn(ws)
	go g.writePump(conn, ident)
	go g.readPump(conn, ident)
}

func (g *Gateway) rejectHandshake(ws *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = ws.WriteMessage(websocket.CloseMessage, msg)
	_ = ws.Close()
}
