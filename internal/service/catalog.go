// Package service contains the business logic layer of the diary.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)      → parses requests, writes responses
//	Service (business)  → validates, enforces rules, orchestrates
//	Repository (data)   → reads/writes the database
//
// Services take repository interfaces, never *sqlstore.Store, so tests can
// run them against a real SQLite file or a fake. They return apperror values
// for anything the caller did wrong and wrap everything else with
// "service/<area>: ..." context. Nothing here knows about HTTP.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	MaxNameLength = 200

	// Home page.
	PopularLimit         = 12
	PopularMinimum       = 6
	DefaultPopularWindow = 7 * 24 * time.Hour

	// Autocomplete: exact matches first, then partial, authors before works.
	AutocompleteLimit       = 10
	autocompleteExactLimit  = 3
	autocompleteAuthorLimit = 5
	autocompleteWorkLimit   = 7

	SearchAuthorLimit = 20
	SearchWorkLimit   = 50
)

// AuthorInput is the editable part of an author.
type AuthorInput struct {
	NameKannada string
	NameEnglish string
	Biography   *string
	ImageURL    *string
	Era         *string
}

// WorkInput is the editable part of a work. Genres is serialized into the
// stored JSON-array text.
type WorkInput struct {
	AuthorID      int64
	TitleKannada  string
	TitleEnglish  string
	Synopsis      *string
	CoverImageURL *string
	Type          *string
	Genres        []string
}

// CatalogService manages authors and works and answers the browse and search
// pages.
type CatalogService struct {
	repos         repository.Repositories
	logger        *slog.Logger
	popularWindow time.Duration
	now           func() time.Time
}

// CatalogOption customizes a CatalogService.
type CatalogOption func(*CatalogService)

// WithPopularWindow sets how far back "popular this week" looks.
func WithPopularWindow(d time.Duration) CatalogOption {
	return func(s *CatalogService) {
		if d > 0 {
			s.popularWindow = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CatalogOption {
	return func(s *CatalogService) { s.now = now }
}

func NewCatalogService(repos repository.Repositories, logger *slog.Logger, opts ...CatalogOption) *CatalogService {
	s := &CatalogService{
		repos:         repos,
		logger:        logger,
		popularWindow: DefaultPopularWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =========================================================================
// AUTHORS
// =========================================================================

func (s *CatalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*model.Author, error) {
	author := &model.Author{}
	if err := applyAuthorInput(author, in); err != nil {
		return nil, err
	}
	if err := s.repos.Authors().Create(ctx, author); err != nil {
		return nil, fmt.Errorf("service/catalog: creating author %q: %w", author.NameEnglish, err)
	}
	s.logger.Info("author created",
		slog.Int64("authorID", author.ID),
		slog.String("name", author.NameEnglish),
	)
	return author, nil
}

// UpdateAuthor replaces every editable field of the author.
func (s *CatalogService) UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (*model.Author, error) {
	author, err := s.repos.Authors().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAuthorInput(author, in); err != nil {
		return nil, err
	}
	if err := s.repos.Authors().Update(ctx, author); err != nil {
		return nil, fmt.Errorf("service/catalog: updating author %d: %w", id, err)
	}
	s.logger.Info("author updated", slog.Int64("authorID", id))
	return author, nil
}

// GetAuthor returns the author page: the author and their works.
func (s *CatalogService) GetAuthor(ctx context.Context, id int64) (*model.AuthorDetail, error) {
	author, err := s.repos.Authors().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	works, err := s.repos.Works().ListByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing works of author %d: %w", id, err)
	}
	return &model.AuthorDetail{Author: author, Works: works}, nil
}

func (s *CatalogService) ListAuthors(ctx context.Context, limit, offset int) ([]model.Author, error) {
	authors, err := s.repos.Authors().List(ctx, pageOptions(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing authors: %w", err)
	}
	return authors, nil
}

// =========================================================================
// WORKS
// =========================================================================

// CreateWork adds a work. An unknown AuthorID fails with
// apperror.ErrReferentialIntegrity from the store.
func (s *CatalogService) CreateWork(ctx context.Context, in WorkInput) (*model.Work, error) {
	work := &model.Work{}
	if err := applyWorkInput(work, in); err != nil {
		return nil, err
	}
	if err := s.repos.Works().Create(ctx, work); err != nil {
		return nil, fmt.Errorf("service/catalog: creating work %q: %w", work.TitleEnglish, err)
	}
	s.logger.Info("work created",
		slog.Int64("workID", work.ID),
		slog.Int64("authorID", work.AuthorID),
		slog.String("title", work.TitleEnglish),
	)
	return work, nil
}

func (s *CatalogService) UpdateWork(ctx context.Context, id int64, in WorkInput) (*model.Work, error) {
	work, err := s.repos.Works().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyWorkInput(work, in); err != nil {
		return nil, err
	}
	if err := s.repos.Works().Update(ctx, work); err != nil {
		return nil, fmt.Errorf("service/catalog: updating work %d: %w", id, err)
	}
	s.logger.Info("work updated", slog.Int64("workID", id))
	return work, nil
}

// GetWork returns the work page: summary plus reviews, newest first.
func (s *CatalogService) GetWork(ctx context.Context, id int64) (*model.WorkDetail, error) {
	summary, err := s.repos.Works().GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repos.Reviews().ListByWork(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing reviews of work %d: %w", id, err)
	}
	return &model.WorkDetail{Summary: summary, Reviews: reviews}, nil
}

func (s *CatalogService) ListWorks(ctx context.Context, limit, offset int) ([]model.WorkSummary, error) {
	works, err := s.repos.Works().List(ctx, pageOptions(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing works: %w", err)
	}
	return works, nil
}

// =========================================================================
// BROWSE AND SEARCH
// =========================================================================

// PopularThisWeek ranks works by reviews logged inside the popularity window.
// When fewer than PopularMinimum works qualify, it falls back to all-time
// popularity so the home page is never sparse.
func (s *CatalogService) PopularThisWeek(ctx context.Context) ([]model.WorkSummary, error) {
	since := s.now().UTC().Add(-s.popularWindow)
	works, err := s.repos.Catalog().PopularWorks(ctx, since, PopularLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: popular works since %s: %w", since.Format(time.RFC3339), err)
	}
	if len(works) >= PopularMinimum {
		return works, nil
	}

	works, err = s.repos.Catalog().PopularWorks(ctx, time.Time{}, PopularLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: popular works of all time: %w", err)
	}
	return works, nil
}

// Autocomplete suggests at most AutocompleteLimit authors and works for a
// search-box prefix. Exact name/title matches (priority 1) come before
// partial ones (priority 2); within a priority, authors come first.
// An empty query yields an empty list.
func (s *CatalogService) Autocomplete(ctx context.Context, query string) ([]model.Suggestion, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []model.Suggestion{}, nil
	}

	catalog := s.repos.Catalog()
	exactAuthors, err := catalog.SuggestAuthors(ctx, q, repository.MatchExact, autocompleteExactLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: suggesting authors: %w", err)
	}
	exactWorks, err := catalog.SuggestWorks(ctx, q, repository.MatchExact, autocompleteExactLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: suggesting works: %w", err)
	}
	partialAuthors, err := catalog.SuggestAuthors(ctx, q, repository.MatchPartial, autocompleteAuthorLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: suggesting authors: %w", err)
	}
	partialWorks, err := catalog.SuggestWorks(ctx, q, repository.MatchPartial, autocompleteWorkLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: suggesting works: %w", err)
	}

	out := make([]model.Suggestion, 0, AutocompleteLimit)
	out = appendAuthorSuggestions(out, exactAuthors, 1)
	out = appendWorkSuggestions(out, exactWorks, 1)
	out = appendAuthorSuggestions(out, partialAuthors, 2)
	out = appendWorkSuggestions(out, partialWorks, 2)

	slices.SortStableFunc(out, func(a, b model.Suggestion) int { return cmp.Compare(a.Priority, b.Priority) })
	if len(out) > AutocompleteLimit {
		out = out[:AutocompleteLimit]
	}
	return out, nil
}

// Search runs the full search page query. An empty query returns empty
// results rather than the whole catalog.
func (s *CatalogService) Search(ctx context.Context, query string) (*model.SearchResults, error) {
	q := strings.TrimSpace(query)
	res := &model.SearchResults{Query: q, Authors: []model.Author{}, Works: []model.WorkSummary{}}
	if q == "" {
		return res, nil
	}

	authors, err := s.repos.Catalog().SearchAuthors(ctx, q, SearchAuthorLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: searching authors: %w", err)
	}
	works, err := s.repos.Catalog().SearchWorks(ctx, q, SearchWorkLimit)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: searching works: %w", err)
	}
	res.Authors, res.Works = authors, works
	return res, nil
}

// GenreSearch lists works whose type or genre list mentions genre. If none
// do, works whose title or synopsis mention it are returned instead and
// Fallback is set.
func (s *CatalogService) GenreSearch(ctx context.Context, genre string) (*model.GenreResults, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, apperror.ValidationFailed("genre", "please enter a genre to search")
	}

	works, err := s.repos.Catalog().WorksByGenre(ctx, genre)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: works of genre %q: %w", genre, err)
	}
	res := &model.GenreResults{Genre: genre, Works: works}
	if len(works) > 0 {
		return res, nil
	}

	works, err = s.repos.Catalog().WorksByText(ctx, genre)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: works mentioning %q: %w", genre, err)
	}
	res.Works, res.Fallback = works, true
	return res, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func pageOptions(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

func applyAuthorInput(a *model.Author, in AuthorInput) error {
	kn, en := strings.TrimSpace(in.NameKannada), strings.TrimSpace(in.NameEnglish)
	if err := requireName("nameKannada", kn); err != nil {
		return err
	}
	if err := requireName("nameEnglish", en); err != nil {
		return err
	}
	a.NameKannada, a.NameEnglish = kn, en
	a.Biography = trimOptional(in.Biography)
	a.ImageURL = trimOptional(in.ImageURL)
	a.Era = trimOptional(in.Era)
	return nil
}

func applyWorkInput(w *model.Work, in WorkInput) error {
	if in.AuthorID <= 0 {
		return apperror.ValidationFailed("authorId", "author id is required")
	}
	kn, en := strings.TrimSpace(in.TitleKannada), strings.TrimSpace(in.TitleEnglish)
	if err := requireName("titleKannada", kn); err != nil {
		return err
	}
	if err := requireName("titleEnglish", en); err != nil {
		return err
	}

	genres := make([]string, 0, len(in.Genres))
	for _, g := range in.Genres {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}

	w.AuthorID = in.AuthorID
	w.TitleKannada, w.TitleEnglish = kn, en
	w.Synopsis = trimOptional(in.Synopsis)
	w.CoverImageURL = trimOptional(in.CoverImageURL)
	w.Type = trimOptional(in.Type)
	w.Genres = model.EncodeGenres(genres)
	return nil
}

func requireName(field, v string) error {
	if v == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if len([]rune(v)) > MaxNameLength {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, MaxNameLength))
	}
	return nil
}

// trimOptional maps nil and blank strings to nil (NULL).
func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func appendAuthorSuggestions(out []model.Suggestion, authors []model.Author, priority int) []model.Suggestion {
	for _, a := range authors {
		out = append(out, model.Suggestion{
			Label:    fmt.Sprintf("Author: %s (%s)", a.NameEnglish, a.NameKannada),
			Type:     model.SuggestionAuthor,
			ID:       a.ID,
			URL:      fmt.Sprintf("/api/authors/%d", a.ID),
			Priority: priority,
		})
	}
	return out
}

func appendWorkSuggestions(out []model.Suggestion, works []model.Work, priority int) []model.Suggestion {
	for _, w := range works {
		out = append(out, model.Suggestion{
			Label:    fmt.Sprintf("Work: %s (%s)", w.TitleEnglish, w.TitleKannada),
			Type:     model.SuggestionWork,
			ID:       w.ID,
			URL:      fmt.Sprintf("/api/works/%d", w.ID),
			Priority: priority,
		})
	}
	return out
}
