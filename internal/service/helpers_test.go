package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository/sqlstore"
)

// =========================================================================
// HELPERS
// =========================================================================

// testNow is the wall clock every service test runs at.
var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// newTestLogger only prints errors, so passing tests stay quiet.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestStore opens a migrated SQLite file whose clock starts at testNow.
// Services are exercised against the real store rather than mocks wherever
// the behavior depends on SQL.
func newTestStore(t *testing.T) (*sqlstore.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testNow}
	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		DSN: filepath.Join(t.TempDir(), "diary.db"),
		Now: clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func strPtr(s string) *string { return &s }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustUser(t *testing.T, store *sqlstore.Store, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func mustAuthor(t *testing.T, store *sqlstore.Store, en, kn string) *model.Author {
	t.Helper()
	a := &model.Author{NameEnglish: en, NameKannada: kn}
	require.NoError(t, store.Authors().Create(context.Background(), a))
	return a
}

func mustWork(t *testing.T, store *sqlstore.Store, authorID int64, en, kn string) *model.Work {
	t.Helper()
	w := &model.Work{AuthorID: authorID, TitleEnglish: en, TitleKannada: kn}
	require.NoError(t, store.Works().Create(context.Background(), w))
	return w
}

// mustReviewAt logs a review whose date_logged is the given instant.
func mustReviewAt(t *testing.T, store *sqlstore.Store, userID, workID int64, rating int, logged time.Time) {
	t.Helper()
	r := &model.Review{UserID: userID, WorkID: workID, Rating: rating, DateRead: logged, DateLogged: logged}
	require.NoError(t, store.Reviews().Create(context.Background(), r))
}
