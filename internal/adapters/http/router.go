// Package http wires the REST surface consumed by the browser client.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/adapters/signal"
	"github.com/interviewly/voicegate/internal/app"
	"github.com/interviewly/voicegate/internal/auth"
	"github.com/interviewly/voicegate/internal/config"
	"github.com/interviewly/voicegate/internal/voice"
)

// API bundles the collaborators the voice endpoints need.
type API struct {
	Cfg         *config.Config
	Issuer      *auth.Issuer
	Registry    *app.Registry
	Transcriber *voice.Transcriber
	Synthesizer *voice.Synthesizer
	Limiter     *voice.RateLimiter
}

func SetupRouter(api *API, gateway *signal.Gateway) *gin.Engine {
	if api.Cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if api.Cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Staged synthesis artifacts.
	r.Static("/files", api.Cfg.UploadDir)

	vr := r.Group("/api/voice")
	vr.Use(auth.Middleware(api.Issuer))
	{
		vr.GET("/token", api.handleToken)
		vr.POST("/start", api.handleStart)
		vr.POST("/upload", api.handleUpload)
		vr.POST("/tts", api.handleTTS)
		vr.POST("/end", api.handleEnd)
	}

	// The scoped token travels as a query parameter; the gateway
	// verifies it itself during the handshake.
	r.GET("/voice-signal", gateway.HandleSignal)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
