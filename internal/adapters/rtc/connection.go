// Package rtc wraps the server-side peer connection that answers a
// client's media offer.
package rtc

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

// Connection is the negotiation object owned by one session. It holds
// the server's half of the audio exchange with the interviewer peer.
type Connection struct {
	pc    *webrtc.PeerConnection
	sid   domain.SessionID
	onICE func(domain.Candidate)
}

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

func NewConnection(cfg webrtc.Configuration, sid domain.SessionID) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	// The interviewer peer both receives the candidate's audio and
	// speaks back, so the answer needs a bidirectional audio section.
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		_ = pc.Close()
		return nil, err
	}

	c := &Connection{pc: pc, sid: sid}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("session", string(sid)).
			Str("ice_state", s.String()).Msg("ICE state")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("session", string(sid)).
			Str("peer_state", s.String()).Msg("peer state")
	})
	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(fromICEInit(cand.ToJSON()))
		}
	})

	return c, nil
}

// OnICECandidate sets the trickle callback for locally gathered
// candidates.
func (c *Connection) OnICECandidate(fn func(domain.Candidate)) {
	c.onICE = fn
}

// Answer consumes the remote offer and returns the local description
// once candidate gathering completes.
func (c *Connection) Answer(offer domain.SessionDescription) (domain.SessionDescription, error) {
	remote := webrtc.SessionDescription{
		Type: webrtc.NewSDPType(offer.Type),
		SDP:  offer.SDP,
	}
	if err := c.pc.SetRemoteDescription(remote); err != nil {
		return domain.SessionDescription{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return domain.SessionDescription{}, err
	}
	<-gatherComplete

	local := c.pc.LocalDescription()
	return domain.SessionDescription{Type: local.Type.String(), SDP: local.SDP}, nil
}

// ApplyAnswer consumes a remote answer during renegotiation.
func (c *Connection) ApplyAnswer(answer domain.SessionDescription) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(answer.Type),
		SDP:  answer.SDP,
	})
}

func (c *Connection) AddCandidate(cand domain.Candidate) error {
	return c.pc.AddICECandidate(toICEInit(cand))
}

func (c *Connection) Close() {
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("session", string(c.sid)).Msg("close error")
		return
	}
	log.Info().Str("module", "rtc").Str("session", string(c.sid)).Msg("closed")
}

func toICEInit(c domain.Candidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}

func fromICEInit(ci webrtc.ICECandidateInit) domain.Candidate {
	return domain.Candidate{
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	}
}
