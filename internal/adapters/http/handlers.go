package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/auth"
	"github.com/interviewly/voicegate/internal/domain"
	"github.com/interviewly/voicegate/internal/voice"
)

// handleToken derives a short-lived signaling credential from the
// caller's primary identity.
func (a *API) handleToken(c *gin.Context) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided."})
		return
	}
	token, err := a.Issuer.IssueScoped(ident)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("scoped token issue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate WebSocket token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresIn": int(auth.ScopedTokenTTL.Seconds()),
		"wsUrl":     a.Cfg.WSURL + "/voice-signal",
	})
}

// handleStart suggests a session id and the client-side negotiation
// parameters. Joining is still driven by the signaling channel.
func (a *API) handleStart(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	sessionID := fmt.Sprintf("voice_%s_%d", ident.UserID, time.Now().UnixMilli())
	log.Info().Str("module", "adapters.http").Str("user", string(ident.UserID)).
		Str("session", sessionID).Msg("voice session starting")
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"message":   "Voice session started",
		"config": gin.H{
			"iceServers": []gin.H{{"urls": "stun:stun.l.google.com:19302"}},
			"model":      a.Cfg.STTModel,
			"sampleRate": 16000,
		},
	})
}

func (a *API) handleUpload(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)

	// Over-limit callers are turned away before the body is read, so a
	// throttled identity cannot make the server buffer uploads.
	if !a.Limiter.Allow(ident.UserID) {
		retry := int(a.Limiter.RetryAfter(ident.UserID).Seconds()) + 1
		c.Header("Retry-After", fmt.Sprint(retry))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      "Too many transcription requests",
			"retryAfter": retry,
		})
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}
	defer file.Close()

	if form := c.Request.MultipartForm; form != nil && len(form.File["audio"]) > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one audio file per request"})
		return
	}

	if header.Size > a.Cfg.UploadLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Audio exceeds %dMB limit", a.Cfg.UploadLimit>>20),
		})
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, a.Cfg.UploadLimit+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}
	mime := header.Header.Get("Content-Type")

	result, err := a.Transcriber.Transcribe(c.Request.Context(), ident, audio, mime)
	if err != nil {
		a.transcribeError(c, ident, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcription": result.Text,
		"duration":      result.Duration,
		"userId":        ident.UserID,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) transcribeError(c *gin.Context, ident domain.Identity, err error) {
	switch {
	case errors.Is(err, voice.ErrNoAudio),
		errors.Is(err, voice.ErrPayloadTooLarge),
		errors.Is(err, voice.ErrUnsupportedMedia):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("module", "adapters.http").
			Str("user", string(ident.UserID)).Msg("transcription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
	}
}

func (a *API) handleTTS(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text required for TTS"})
		return
	}

	artifact, err := a.Synthesizer.Synthesize(c.Request.Context(), ident, req.Text)
	if err != nil {
		if errors.Is(err, voice.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Text required for TTS"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").
			Str("user", string(ident.UserID)).Msg("tts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "TTS generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audioUrl":  artifact.AudioURL,
		"duration":  artifact.Duration,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleEnd closes a session explicitly. Ending an unknown or
// already-ended session still acknowledges.
func (a *API) handleEnd(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID required"})
		return
	}

	if err := a.Registry.Close(domain.SessionID(req.SessionID), ident); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Voice session ended",
		"sessionId": req.SessionID,
		"userId":    ident.UserID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
