package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/interviewly/voicegate/internal/adapters/http"
	"github.com/interviewly/voicegate/internal/adapters/rtc"
	wssignal "github.com/interviewly/voicegate/internal/adapters/signal"
	"github.com/interviewly/voicegate/internal/app"
	"github.com/interviewly/voicegate/internal/auth"
	"github.com/interviewly/voicegate/internal/config"
	"github.com/interviewly/voicegate/internal/domain"
	"github.com/interviewly/voicegate/internal/voice"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found; using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	issuer := auth.NewIssuer(cfg.Secret)
	registry := app.NewRegistry()
	go registry.RunSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionMaxAge)

	engine := voice.NewOpenAIEngine(cfg.OpenAIKey, cfg.STTModel, cfg.TTSModel, cfg.TTSVoice)
	limiter := voice.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	transcriber := voice.NewTranscriber(engine, cfg.UploadDir, cfg.UploadLimit, cfg.AllowedMIME)
	synthesizer := voice.NewSynthesizer(engine, cfg.UploadDir, "/files")

	peers := func(id domain.SessionID, onCandidate func(domain.Candidate)) (app.Negotiator, error) {
		conn, err := rtc.NewConnection(rtc.DefaultConfig(), id)
		if err != nil {
			return nil, err
		}
		conn.OnICECandidate(onCandidate)
		return conn, nil
	}
	gateway := wssignal.NewGateway(registry, issuer, peers)
	gateway.PingPeriod = cfg.PingPeriod

	api := &router.API{
		Cfg:         cfg,
		Issuer:      issuer,
		Registry:    registry,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Limiter:     limiter,
	}

	r := router.SetupRouter(api, gateway)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("voicegate server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
