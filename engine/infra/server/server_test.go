package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/groupops/engine/infra/cache"
	"github.com/compozy/groupops/engine/infra/monitoring"
	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []int64
}

func (h *recordingHandler) HandleUpdate(_ context.Context, u *surface.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u.UpdateID)
	return nil
}

func (h *recordingHandler) seen() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.updates...)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Telegram.WebhookSecret = "s3cret"
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, mon *monitoring.Service) (*Server, *recordingHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &recordingHandler{}
	ctx := logger.ContextWithLogger(context.Background(), logger.NewForTests())
	s, err := NewServer(ctx, cfg, h, cache.NewMemoryDeduper(16, time.Minute), mon)
	require.NoError(t, err)
	return s, h
}

func postUpdate(s *Server, body, secret string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, webhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	s.Handler().ServeHTTP(w, req)
	return w
}

const updateBody = `{"update_id": 77, "message": {"message_id": 1, "from": {"id": 5}, "chat": {"id": 5}, "text": "/start"}}`

func TestServer_Webhook(t *testing.T) {
	t.Run("Should hand accepted updates to the handler", func(t *testing.T) {
		s, h := newTestServer(t, testConfig(), nil)
		w := postUpdate(s, updateBody, "s3cret")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{77}, h.seen())
	})

	t.Run("Should reject a wrong secret token", func(t *testing.T) {
		s, h := newTestServer(t, testConfig(), nil)
		assert.Equal(t, http.StatusUnauthorized, postUpdate(s, updateBody, "nope").Code)
		assert.Equal(t, http.StatusUnauthorized, postUpdate(s, updateBody, "").Code)
		assert.Empty(t, h.seen())
	})

	t.Run("Should accept any request when no secret is configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.Telegram.WebhookSecret = ""
		s, h := newTestServer(t, cfg, nil)
		assert.Equal(t, http.StatusOK, postUpdate(s, updateBody, "").Code)
		assert.Len(t, h.seen(), 1)
	})

	t.Run("Should reject invalid JSON", func(t *testing.T) {
		s, h := newTestServer(t, testConfig(), nil)
		assert.Equal(t, http.StatusBadRequest, postUpdate(s, "{not json", "s3cret").Code)
		assert.Empty(t, h.seen())
	})

	t.Run("Should drop redelivered updates", func(t *testing.T) {
		s, h := newTestServer(t, testConfig(), nil)
		assert.Equal(t, http.StatusOK, postUpdate(s, updateBody, "s3cret").Code)
		assert.Equal(t, http.StatusOK, postUpdate(s, updateBody, "s3cret").Code)
		assert.Equal(t, []int64{77}, h.seen())
	})

	t.Run("Should rate limit the webhook", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Rate = "1-M"
		s, _ := newTestServer(t, cfg, nil)
		assert.Equal(t, http.StatusOK, postUpdate(s, updateBody, "s3cret").Code)
		assert.Equal(t, http.StatusTooManyRequests, postUpdate(s, updateBody, "s3cret").Code)
	})

	t.Run("Should fail to build with a malformed rate", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Rate = "lots"
		_, err := NewServer(context.Background(), cfg, &recordingHandler{}, nil, nil)
		assert.Error(t, err)
	})
}

func TestServer_Operational(t *testing.T) {
	t.Run("Should report health", func(t *testing.T) {
		s, _ := newTestServer(t, testConfig(), nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, healthPath, http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("Should expose metrics when monitoring is enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Monitoring.Enabled = true
		mon, err := monitoring.NewMonitoringService(context.Background(), &cfg.Monitoring)
		require.NoError(t, err)
		defer func() { _ = mon.Shutdown(context.Background()) }()
		s, _ := newTestServer(t, cfg, mon)

		postUpdate(s, updateBody, "s3cret")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "groupops_http")
	})

	t.Run("Should stop serving when the context is cancelled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = freePort(t)
		s, _ := newTestServer(t, cfg, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	addr := srv.Listener.Addr().String()
	n, err := strconv.Atoi(addr[strings.LastIndex(addr, ":")+1:])
	require.NoError(t, err)
	return n
}
