package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/logging"
	"github.com/sakif/literary-diary/internal/repository/sqlstore"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *sqlstore.Store) {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		DSN: filepath.Join(t.TempDir(), "diary.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("server-test-secret-1234", time.Hour)
	require.NoError(t, err)

	logger := logging.Discard()
	return New(cfg, store, tokens, auth.NewPasswordServiceForTest(4), logger), store
}

func TestHealth(t *testing.T) {
	srv, store := newTestServer(t, Config{})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	require.NoError(t, store.Close())
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kuvempu.jpeg"), []byte("jpeg-bytes"), 0o600))
	srv, _ := newTestServer(t, Config{StaticDir: dir})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/kuvempu.jpeg", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "jpeg-bytes", rr.Body.String())

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Config{AuthRateLimitPerMinute: 2})

	login := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"secret1"}`))
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("203.0.113.7"))
	assert.Equal(t, http.StatusUnauthorized, login("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, login("203.0.113.7"))
	assert.Equal(t, http.StatusUnauthorized, login("203.0.113.8"), "another client has its own bucket")

	// Browsing is never throttled.
	for range 5 {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/works", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		srv.Handler().ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv, _ := newTestServer(t, Config{ShutdownTimeout: 5 * time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_ClosesStore(t *testing.T) {
	srv, store := newTestServer(t, Config{Port: 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, srv.Start(ctx))

	assert.Error(t, store.Ping(context.Background()), "store is closed after shutdown")
}
