package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	router "github.com/interviewly/voicegate/internal/adapters/http"
	"github.com/interviewly/voicegate/internal/adapters/signal"
	"github.com/interviewly/voicegate/internal/app"
	"github.com/interviewly/voicegate/internal/auth"
	"github.com/interviewly/voicegate/internal/config"
	"github.com/interviewly/voicegate/internal/domain"
	"github.com/interviewly/voicegate/internal/voice"
)

type stubEngine struct {
	transcript string
	audio      []byte
	err        error
}

func (s *stubEngine) Transcribe(ctx context.Context, path string) (string, error) {
	return s.transcript, s.err
}

func (s *stubEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.audio, s.err
}

type fixture struct {
	router  http.Handler
	issuer  *auth.Issuer
	limiter *voice.RateLimiter
}

func newFixture(t *testing.T, engine voice.Engine, rateLimit int) *fixture {
	t.Helper()

	cfg := &config.Config{
		Mode:        "release",
		Secret:      "test-secret",
		WSURL:       "ws://localhost:8080",
		UploadDir:   t.TempDir(),
		UploadLimit: 1 << 20,
		AllowedMIME: []string{"audio/webm", "audio/wav"},
		RateLimit:   rateLimit,
		RateWindow:  time.Minute,
		STTModel:    "whisper-1",
	}

	issuer := auth.NewIssuer(cfg.Secret)
	registry := app.NewRegistry()
	limiter := voice.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	api := &router.API{
		Cfg:         cfg,
		Issuer:      issuer,
		Registry:    registry,
		Transcriber: voice.NewTranscriber(engine, cfg.UploadDir, cfg.UploadLimit, cfg.AllowedMIME),
		Synthesizer: voice.NewSynthesizer(engine, cfg.UploadDir, "/files"),
		Limiter:     limiter,
	}
	gateway := signal.NewGateway(registry, issuer, func(id domain.SessionID, _ func(domain.Candidate)) (app.Negotiator, error) {
		return nil, errors.New("no media in tests")
	})

	return &fixture{
		router:  router.SetupRouter(api, gateway),
		issuer:  issuer,
		limiter: limiter,
	}
}

func (f *fixture) bearer(t *testing.T) string {
	t.Helper()
	token, err := f.issuer.IssueScoped(domain.Identity{UserID: "u1", Email: "u1@example.com", Role: "candidate"})
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func audioUpload(t *testing.T, field, mime string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="` + field + `"; filename="answer.webm"`},
		"Content-Type":        {mime},
	})
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, &stubEngine{}, 10)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/voice/token"},
		{http.MethodPost, "/api/voice/start"},
		{http.MethodPost, "/api/voice/upload"},
		{http.MethodPost, "/api/voice/tts"},
		{http.MethodPost, "/api/voice/end"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		require.Equal(t, http.StatusUnauthorized, f.do(t, req).Code, tc.path)
	}

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/voice/token", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		require.Equal(t, http.StatusUnauthorized, f.do(t, req).Code)
	})
}

func TestTokenEndpoint(t *testing.T) {
	f := newFixture(t, &stubEngine{}, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/voice/token", nil)
	req.Header.Set("Authorization", f.bearer(t))
	w := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
		WSURL     string `json:"wsUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 300, resp.ExpiresIn)
	require.Equal(t, "ws://localhost:8080/voice-signal", resp.WSURL)

	// The handed-out token authenticates as the same identity.
	ident, err := f.issuer.Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, domain.UserID("u1"), ident.UserID)
}

func TestStartEndpoint(t *testing.T) {
	f := newFixture(t, &stubEngine{}, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/voice/start", nil)
	req.Header.Set("Authorization", f.bearer(t))
	w := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.SessionID, "voice_u1_"))
}

func TestUpload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t, &stubEngine{transcript: "my answer"}, 10)
		body, contentType := audioUpload(t, "audio", "audio/webm", []byte("webm-bytes"))

		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", contentType)
		w := f.do(t, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Transcription string  `json:"transcription"`
			Duration      float64 `json:"duration"`
			Timestamp     string  `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "my answer", resp.Transcription)
		require.NotEmpty(t, resp.Timestamp)
	})

	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t, &stubEngine{}, 10)
		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", strings.NewReader(""))
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		require.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
	})

	t.Run("wrong mime", func(t *testing.T) {
		f := newFixture(t, &stubEngine{}, 10)
		body, contentType := audioUpload(t, "audio", "video/mp4", []byte("mp4"))
		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", contentType)
		require.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
	})

	t.Run("oversized payload rejected before engine", func(t *testing.T) {
		engine := &stubEngine{err: errors.New("engine must not be called")}
		f := newFixture(t, engine, 10)
		body, contentType := audioUpload(t, "audio", "audio/webm", make([]byte, 2<<20))
		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", contentType)
		require.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
	})

	t.Run("engine failure is 500", func(t *testing.T) {
		f := newFixture(t, &stubEngine{err: errors.New("down")}, 10)
		body, contentType := audioUpload(t, "audio", "audio/webm", []byte("webm"))
		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", contentType)
		require.Equal(t, http.StatusInternalServerError, f.do(t, req).Code)
	})

	t.Run("rate limit breach is 429 with retry hint", func(t *testing.T) {
		f := newFixture(t, &stubEngine{transcript: "ok"}, 2)
		auth := f.bearer(t)

		for i := 0; i < 2; i++ {
			body, contentType := audioUpload(t, "audio", "audio/webm", []byte("webm"))
			req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
			req.Header.Set("Authorization", auth)
			req.Header.Set("Content-Type", contentType)
			require.Equal(t, http.StatusOK, f.do(t, req).Code)
		}

		body, contentType := audioUpload(t, "audio", "audio/webm", []byte("webm"))
		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
		req.Header.Set("Authorization", auth)
		req.Header.Set("Content-Type", contentType)
		w := f.do(t, req)
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("rate limit checked before the body is read", func(t *testing.T) {
		f := newFixture(t, &stubEngine{transcript: "ok"}, 1)
		auth := f.bearer(t)

		body, contentType := audioUpload(t, "audio", "audio/webm", []byte("webm"))
		req := httptest.NewRequest(http.MethodPost, "/api/voice/upload", body)
		req.Header.Set("Authorization", auth)
		req.Header.Set("Content-Type", contentType)
		require.Equal(t, http.StatusOK, f.do(t, req).Code)

		// A request with no parseable body at all: were the limiter
		// consulted only after multipart parsing, this would be a 400.
		req = httptest.NewRequest(http.MethodPost, "/api/voice/upload", strings.NewReader("not multipart"))
		req.Header.Set("Authorization", auth)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		require.Equal(t, http.StatusTooManyRequests, f.do(t, req).Code)
	})
}

func TestTTS(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t, &stubEngine{audio: []byte("mp3")}, 10)
		req := httptest.NewRequest(http.MethodPost, "/api/voice/tts",
			strings.NewReader(`{"text":"What is a goroutine?"}`))
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", "application/json")
		w := f.do(t, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			AudioURL string `json:"audioUrl"`
			Duration int    `json:"duration"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.True(t, strings.HasPrefix(resp.AudioURL, "/files/tts_"))
		require.Equal(t, 2, resp.Duration)
	})

	t.Run("empty text", func(t *testing.T) {
		f := newFixture(t, &stubEngine{}, 10)
		req := httptest.NewRequest(http.MethodPost, "/api/voice/tts", strings.NewReader(`{"text":"  "}`))
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
	})

	t.Run("engine failure is 500", func(t *testing.T) {
		f := newFixture(t, &stubEngine{err: errors.New("down")}, 10)
		req := httptest.NewRequest(http.MethodPost, "/api/voice/tts", strings.NewReader(`{"text":"hello"}`))
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, http.StatusInternalServerError, f.do(t, req).Code)
	})
}

func TestEnd(t *testing.T) {
	f := newFixture(t, &stubEngine{}, 10)

	t.Run("idempotent acknowledgment", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/voice/end",
				strings.NewReader(`{"sessionId":"voice_u1_1"}`))
			req.Header.Set("Authorization", f.bearer(t))
			req.Header.Set("Content-Type", "application/json")
			w := f.do(t, req)
			require.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("missing session id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/voice/end", strings.NewReader(`{}`))
		req.Header.Set("Authorization", f.bearer(t))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
	})
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, &stubEngine{}, 10)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, f.do(t, req).Code)
}
