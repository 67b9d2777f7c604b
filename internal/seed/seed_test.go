package seed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
	"github.com/sakif/literary-diary/internal/repository/sqlstore"
)

// =========================================================================
// HELPERS
// =========================================================================

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

const writersJSON = `{
  "authors": [
    {
      "name": "Kuvempu",
      "biography": "Leading poet of the Navodaya movement.",
      "genres": ["Novel", "Epic Poetry"],
      "famous_works": [
        {"title": "Kanooru Heggadithi", "short_description": "A saga of Malnad life.", "genre": "Novel / Social"},
        "Malegalalli Madumagalu"
      ]
    },
    {
      "name": "U. R. Ananthamurthy",
      "contribution": "Pioneer of the Navya movement.",
      "famous_works": ["Samskara"]
    },
    {
      "name": "Graama Seva Bhaagya (Bevina Seena Sharief)",
      "genres": ["Drama"],
      "famous_works": ["Village Tales"]
    }
  ]
}`

const poetsJSON = `[
  {"name": "Kuvempu", "famous_poems": ["Jaya Bharatha Jananiya Tanujate"]},
  {"name": "D. R. Bendre", "biography": "Navodaya poet from Dharwad.",
   "famous_poems": [{"title": "Naakutanti", "genre": "Poetry, Lyric"}]}
]`

func newTestSeeder(t *testing.T) (*Seeder, *sqlstore.Store) {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		DSN: filepath.Join(t.TempDir(), "diary.db"),
		Now: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := New(store, auth.NewPasswordServiceForTest(4), logger, WithClock(func() time.Time { return testNow }))
	return s, store
}

func parseFixtures(t *testing.T) (writers, poets []Entry) {
	t.Helper()
	writers, err := ParseEntries([]byte(writersJSON), "authors")
	require.NoError(t, err)
	poets, err = ParseEntries([]byte(poetsJSON), "poets", "authors")
	require.NoError(t, err)
	return writers, poets
}

// =========================================================================
// PARSING TESTS
// =========================================================================

func TestParseEntries(t *testing.T) {
	writers, poets := parseFixtures(t)

	require.Len(t, writers, 3)
	require.Len(t, writers[0].FamousWorks, 2)
	assert.Equal(t, Piece{Title: "Kanooru Heggadithi", ShortDescription: "A saga of Malnad life.", Genre: "Novel / Social"}, writers[0].FamousWorks[0])
	assert.Equal(t, Piece{Title: "Malegalalli Madumagalu"}, writers[0].FamousWorks[1], "bare strings become titles")

	require.Len(t, poets, 2)
	assert.Equal(t, "Naakutanti", poets[1].FamousPoems[0].Title)
}

func TestParseEntries_Errors(t *testing.T) {
	_, err := ParseEntries([]byte(`{"people": []}`), "authors")
	assert.Error(t, err, "object without a known key")

	_, err = ParseEntries([]byte(`not json`))
	assert.Error(t, err)

	entries, err := ParseEntries([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadEntries_MissingFileIsEmpty(t *testing.T) {
	entries, err := LoadEntries(context.Background(), filepath.Join(t.TempDir(), "writer.json"), "authors")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestLoadEntries_CanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), WritersFile)
	require.NoError(t, os.WriteFile(path, []byte(writersJSON), 0o600))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := LoadEntries(ctx, path, "authors")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, entries)
}

// =========================================================================
// DERIVATION TESTS
// =========================================================================

func TestImageFilename(t *testing.T) {
	tests := []struct{ name, want string }{
		{"D. R. Bendre", "d_r_bendre.jpg"},
		{"S. L. Bhyrappa", "s_l_bhyrappa.jpg"},
		{"Masti Venkatesha Iyengar", "masti_venkatesha_iyengar.jpg"},
		{"Kuvempu", "kuvempu.jpeg"},
		{"Poornachandra Tejaswi", "tejaswi.jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageFilename(tt.name))
		})
	}
}

func TestWorkType(t *testing.T) {
	tests := []struct {
		name         string
		piece        Piece
		authorGenres []string
		want         string
	}{
		{"poetry genre", Piece{Title: "X", Genre: "Epic Poetry"}, nil, model.WorkTypePoetry},
		{"poem genre", Piece{Title: "X", Genre: "Long poem"}, nil, model.WorkTypePoetry},
		{"drama genre", Piece{Title: "X", Genre: "Historical Drama"}, nil, model.WorkTypePlay},
		{"story genre", Piece{Title: "X", Genre: "Story collection"}, nil, model.WorkTypeShortStory},
		{"play in title", Piece{Title: "A Play in Three Acts"}, nil, model.WorkTypePlay},
		{"dramatist author", Piece{Title: "X"}, []string{"Drama"}, model.WorkTypePlay},
		{"short story author", Piece{Title: "X"}, []string{"Short Stories"}, model.WorkTypeShortStory},
		{"default novel", Piece{Title: "X", Genre: "Social"}, []string{"Novel"}, model.WorkTypeNovel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workType(tt.piece, tt.authorGenres))
		})
	}
}

func TestPieceGenres(t *testing.T) {
	assert.Equal(t, []string{"Novel", "Social"}, pieceGenres(Piece{Genre: "Novel / Social"}, []string{"ignored"}))
	assert.Equal(t, []string{"Poetry", "Lyric"}, pieceGenres(Piece{Genre: "Poetry, Lyric,"}, nil))
	assert.Equal(t, []string{"Drama"}, pieceGenres(Piece{}, []string{"Drama"}), "inherits the author's genres")
}

func TestMergeEntries(t *testing.T) {
	writers, poets := parseFixtures(t)
	authors := mergeEntries(writers, poets)

	require.Len(t, authors, 4, "Kuvempu appears once")
	kuvempu := authors[0]
	assert.Equal(t, "ಕುವೆಂಪು", kuvempu.NameKannada)
	assert.Equal(t, model.EraNavodaya, *kuvempu.Era)
	assert.Len(t, kuvempu.poems, 1, "poems from poets.json are merged in")

	ura := authors[1]
	assert.Equal(t, model.EraNavya, *ura.Era, "era read from contribution")
	assert.Equal(t, "Pioneer of the Navya movement.", *ura.Biography)

	bevina := authors[2]
	assert.Equal(t, "Bevina Seena Sharief", bevina.NameEnglish)
	assert.Equal(t, "ಬೆವಿನ ಸೀನ ಶರೀಫ್", bevina.NameKannada)
	assert.Equal(t, model.EraModern, *bevina.Era)
	assert.Nil(t, bevina.Biography)

	bendre := authors[3]
	assert.Equal(t, "ಡಿ. ಆರ್. ಬೇಂದ್ರೆ", bendre.NameKannada)
	assert.Equal(t, "d_r_bendre.jpg", *bendre.ImageURL)
}

// =========================================================================
// IMPORT TESTS
// =========================================================================

func TestImportCatalog(t *testing.T) {
	s, store := newTestSeeder(t)
	ctx := context.Background()
	writers, poets := parseFixtures(t)

	res, err := s.ImportCatalog(ctx, writers, poets)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Authors: 4, Works: 6}, res)

	kanooru, err := store.Works().GetByEnglishTitle(ctx, "Kanooru Heggadithi")
	require.NoError(t, err)
	assert.Equal(t, model.WorkTypeNovel, *kanooru.Type)
	assert.Equal(t, "A saga of Malnad life.", *kanooru.Synopsis)
	assert.Equal(t, []string{"Novel", "Social"}, kanooru.GenreList())

	madumagalu, err := store.Works().GetByEnglishTitle(ctx, "Malegalalli Madumagalu")
	require.NoError(t, err)
	assert.Equal(t, "A notable work by Kuvempu.", *madumagalu.Synopsis)
	assert.Equal(t, []string{"Novel", "Epic Poetry"}, madumagalu.GenreList())

	poem, err := store.Works().GetByEnglishTitle(ctx, "Jaya Bharatha Jananiya Tanujate")
	require.NoError(t, err)
	assert.Equal(t, model.WorkTypePoetry, *poem.Type)
	assert.Equal(t, "A famous poem by Kuvempu.", *poem.Synopsis)

	village, err := store.Works().GetByEnglishTitle(ctx, "Village Tales")
	require.NoError(t, err)
	assert.Equal(t, model.WorkTypePlay, *village.Type, "author writes drama")

	// Running it again changes nothing.
	again, err := s.ImportCatalog(ctx, writers, poets)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, again)

	all, err := store.Authors().List(ctx, repository.ListOptions{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestImportDir(t *testing.T) {
	s, _ := newTestSeeder(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, WritersFile), []byte(writersJSON), 0o600))

	res, err := s.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Authors, "poets.json is optional")
}

func TestImportDir_BadFileImportsNothing(t *testing.T) {
	s, store := newTestSeeder(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, WritersFile), []byte(writersJSON), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, PoetsFile), []byte(`[{"name":`), 0o600))

	_, err := s.ImportDir(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), PoetsFile)

	all, err := store.Authors().List(context.Background(), repository.ListOptions{Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, all)
}

// =========================================================================
// POPULATE / IMAGE TESTS
// =========================================================================

func TestPopulateReviews(t *testing.T) {
	s, store := newTestSeeder(t)
	ctx := context.Background()
	writers, poets := parseFixtures(t)
	_, err := s.ImportCatalog(ctx, writers, poets)
	require.NoError(t, err)

	res, err := s.PopulateReviews(ctx, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, len(DemoUsernames), res.UsersCreated)
	assert.Equal(t, 6, res.Works)
	assert.GreaterOrEqual(t, res.Reviews, res.Works, "every work gets at least one review")
	assert.LessOrEqual(t, res.Reviews, res.Works*maxReviewsPerWork)

	works, err := store.Works().List(ctx, repository.ListOptions{Limit: 100})
	require.NoError(t, err)
	total := 0
	for _, w := range works {
		reviews, err := store.Reviews().ListByWork(ctx, w.ID)
		require.NoError(t, err)

		seen := map[int64]bool{}
		for _, r := range reviews {
			assert.False(t, seen[r.UserID], "one review per demo user and work")
			seen[r.UserID] = true
			assert.Contains(t, []int{4, 5}, r.Rating)
			assert.False(t, r.DateLogged.After(testNow))
			assert.False(t, r.DateLogged.Before(testNow.AddDate(0, 0, -30)))
		}
		total += len(reviews)
	}
	assert.Equal(t, res.Reviews, total)

	// Demo accounts can log in with the documented password.
	u, err := store.Users().GetByUsername(ctx, "BookLover")
	require.NoError(t, err)
	assert.Equal(t, "booklover@example.com", u.Email)
	assert.NoError(t, auth.NewPasswordServiceForTest(4).Verify(u.PasswordHash, DemoPassword))

	// A rerun reuses the accounts and only fills gaps.
	again, err := s.PopulateReviews(ctx, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.Zero(t, again.UsersCreated)
}

func TestDemoReview_Distribution(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	recent, withText := 0, 0
	const n = 2000
	for range n {
		r := demoReview(rng, testNow, 1, 1)
		days := int(testNow.Sub(r.DateLogged).Hours() / 24)
		require.GreaterOrEqual(t, days, 0)
		require.LessOrEqual(t, days, 30)
		if days <= 7 {
			recent++
		}
		if r.ReviewText != nil {
			withText++
		}
	}
	assert.InDelta(t, recentShare, float64(recent)/n, 0.05)
	assert.InDelta(t, textShare, float64(withText)/n, 0.05)
}

func TestUpdateAuthorImages(t *testing.T) {
	s, store := newTestSeeder(t)
	ctx := context.Background()
	kuvempu := &model.Author{NameEnglish: "Kuvempu", NameKannada: "ಕುವೆಂಪು", ImageURL: strPtr("kuvempu.jpg")}
	require.NoError(t, store.Authors().Create(ctx, kuvempu))

	updates, err := s.UpdateAuthorImages(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, ImageUpdate{NameEnglish: "Kuvempu", ImageURL: "kuvempu.jpeg", Rows: 1}, updates[0])
	assert.Equal(t, ImageUpdate{NameEnglish: "Poornachandra Tejaswi", ImageURL: "tejaswi.jpeg", Rows: 0}, updates[1])

	got, err := store.Authors().GetByID(ctx, kuvempu.ID)
	require.NoError(t, err)
	assert.Equal(t, "kuvempu.jpeg", *got.ImageURL)
}

func strPtr(s string) *string { return &s }
