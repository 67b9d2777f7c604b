package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/logging"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository/sqlstore"
	"github.com/sakif/literary-diary/internal/server"
)

// testAPI is the full router over a throwaway SQLite file.
type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   *sqlstore.Store
	tokens  *auth.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		DSN: filepath.Join(t.TempDir(), "diary.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-123", time.Hour)
	require.NoError(t, err)

	logger := logging.Discard()
	srv := server.New(server.Config{StaticDir: t.TempDir()}, store, tokens, auth.NewPasswordServiceForTest(4), logger)

	return &testAPI{t: t, handler: srv.Handler(), store: store, tokens: tokens}
}

// do sends body as JSON (a string is sent verbatim) with an optional bearer token.
func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers username with password "secret1" and returns the user
// and a session token.
func (a *testAPI) signUp(username string) (model.User, string) {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	}, "")
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    username + "@example.com",
		"password": "secret1",
	}, "")
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())

	var res struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	require.NoError(a.t, json.NewDecoder(rr.Body).Decode(&res))
	return res.User, res.Token
}

// seedWork creates an author and one of their works through the API.
func (a *testAPI) seedWork(token, authorName, title string, genres ...string) (authorID, workID int64) {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/api/authors", map[string]any{
		"nameKannada": authorName,
		"nameEnglish": authorName,
	}, token)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	author := decode[model.Author](a.t, rr)

	rr = a.do(http.MethodPost, "/api/works", map[string]any{
		"authorId":     author.ID,
		"titleKannada": title,
		"titleEnglish": title,
		"genres":       genres,
	}, token)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	work := decode[model.Work](a.t, rr)

	return author.ID, work.ID
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
