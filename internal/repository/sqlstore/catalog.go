package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// CatalogDB implements repository.CatalogQueries.
//
// CASE-INSENSITIVE MATCHING:
// Both sides are lowered: LOWER(column) against a query lowered in Go.
// SQLite's LOWER only folds ASCII; Kannada script has no case, so nothing
// is lost for the names stored here.
type CatalogDB struct {
	c *conn
}

var _ repository.CatalogQueries = (*CatalogDB)(nil)

// PopularWorks ranks works by how many reviews were logged since the cutoff.
//
// The INNER JOIN on reviews drops works with no reviews in the window, so
// every returned summary has ReviewCount >= 1. ReviewCount and AvgRating
// describe the window, not all time.
func (cd *CatalogDB) PopularWorks(ctx context.Context, since time.Time, limit int) ([]model.WorkSummary, error) {
	join := `JOIN reviews r ON r.work_id = w.work_id`
	args := []any{}
	if !since.IsZero() {
		join += ` AND r.date_logged >= ?`
		args = append(args, since.UTC())
	}
	args = append(args, limit)

	rows, err := cd.c.query(ctx, `
		SELECT w.work_id, w.author_id, w.title_kannada, w.title_english, w.synopsis,
		       w.cover_image_url, w.type, w.genres,
		       a.name_kannada, a.name_english, a.image_url,
		       COUNT(r.review_id) AS review_count,
		       CAST(AVG(r.rating) AS DOUBLE PRECISION) AS avg_rating
		FROM works w
		JOIN authors a ON a.author_id = w.author_id
		`+join+`
		GROUP BY w.work_id, a.author_id
		ORDER BY review_count DESC, avg_rating DESC, w.work_id
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: querying popular works: %w", err)
	}
	return collectWorkSummaries(rows)
}

func (cd *CatalogDB) SearchAuthors(ctx context.Context, query string, limit int) ([]model.Author, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	rows, err := cd.c.query(ctx, `
		SELECT `+authorColumns+`
		FROM authors
		WHERE LOWER(name_english) LIKE ? ESCAPE '\' OR LOWER(name_kannada) LIKE ? ESCAPE '\'
		ORDER BY CASE
		             WHEN LOWER(name_english) = ? OR LOWER(name_kannada) = ? THEN 0
		             WHEN LOWER(name_english) LIKE ? ESCAPE '\' OR LOWER(name_kannada) LIKE ? ESCAPE '\' THEN 1
		             ELSE 2
		         END,
		         name_english, author_id
		LIMIT ?`,
		containsPattern(q), containsPattern(q),
		q, q,
		prefixPattern(q), prefixPattern(q),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: searching authors for %q: %w", query, err)
	}
	return collectAuthors(rows)
}

// SearchWorks matches titles in either script and the author's names.
func (cd *CatalogDB) SearchWorks(ctx context.Context, query string, limit int) ([]model.WorkSummary, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	contains, prefix := containsPattern(q), prefixPattern(q)
	rows, err := cd.c.query(ctx, workSummarySelect+`
		WHERE LOWER(w.title_english) LIKE ? ESCAPE '\'
		   OR LOWER(w.title_kannada) LIKE ? ESCAPE '\'
		   OR LOWER(a.name_english) LIKE ? ESCAPE '\'
		   OR LOWER(a.name_kannada) LIKE ? ESCAPE '\'`+workSummaryGroup+`
		ORDER BY CASE
		             WHEN LOWER(w.title_english) = ? OR LOWER(w.title_kannada) = ? THEN 0
		             WHEN LOWER(w.title_english) LIKE ? ESCAPE '\' OR LOWER(w.title_kannada) LIKE ? ESCAPE '\' THEN 1
		             ELSE 2
		         END,
		         COUNT(r.review_id) DESC,
		         CAST(COALESCE(AVG(r.rating), 0) AS DOUBLE PRECISION) DESC,
		         w.title_english, w.work_id
		LIMIT ?`,
		contains, contains, contains, contains,
		q, q,
		prefix, prefix,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: searching works for %q: %w", query, err)
	}
	return collectWorkSummaries(rows)
}

func (cd *CatalogDB) SuggestAuthors(ctx context.Context, query string, mode repository.MatchMode, limit int) ([]model.Author, error) {
	where, args := matchClause(query, mode, "name_english", "name_kannada")
	rows, err := cd.c.query(ctx, `
		SELECT `+authorColumns+`
		FROM authors
		WHERE `+where+`
		ORDER BY name_english, author_id
		LIMIT ?`, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: suggesting authors for %q: %w", query, err)
	}
	return collectAuthors(rows)
}

func (cd *CatalogDB) SuggestWorks(ctx context.Context, query string, mode repository.MatchMode, limit int) ([]model.Work, error) {
	where, args := matchClause(query, mode, "title_english", "title_kannada")
	rows, err := cd.c.query(ctx, `
		SELECT `+workColumns+`
		FROM works
		WHERE `+where+`
		ORDER BY title_english, work_id
		LIMIT ?`, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: suggesting works for %q: %w", query, err)
	}
	return collectWorks(rows)
}

// WorksByGenre matches the genre against the type column and the raw genres
// JSON text, ordered by English title.
func (cd *CatalogDB) WorksByGenre(ctx context.Context, genre string) ([]model.WorkSummary, error) {
	p := containsPattern(strings.TrimSpace(genre))
	rows, err := cd.c.query(ctx, workSummarySelect+`
		WHERE LOWER(w.type) LIKE ? ESCAPE '\' OR LOWER(w.genres) LIKE ? ESCAPE '\'`+workSummaryGroup+`
		ORDER BY w.title_english, w.work_id`, p, p)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing works of genre %q: %w", genre, err)
	}
	return collectWorkSummaries(rows)
}

func (cd *CatalogDB) WorksByText(ctx context.Context, text string) ([]model.WorkSummary, error) {
	p := containsPattern(strings.TrimSpace(text))
	rows, err := cd.c.query(ctx, workSummarySelect+`
		WHERE LOWER(w.title_english) LIKE ? ESCAPE '\'
		   OR LOWER(w.title_kannada) LIKE ? ESCAPE '\'
		   OR LOWER(w.synopsis) LIKE ? ESCAPE '\'`+workSummaryGroup+`
		ORDER BY w.title_english, w.work_id`, p, p, p)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing works matching %q: %w", text, err)
	}
	return collectWorkSummaries(rows)
}

// matchClause builds the WHERE condition comparing query against two columns.
func matchClause(query string, mode repository.MatchMode, colA, colB string) (string, []any) {
	q := strings.ToLower(strings.TrimSpace(query))
	exact := fmt.Sprintf(`(LOWER(%s) = ? OR LOWER(%s) = ?)`, colA, colB)
	like := fmt.Sprintf(`(LOWER(%s) LIKE ? ESCAPE '\' OR LOWER(%s) LIKE ? ESCAPE '\')`, colA, colB)
	p := containsPattern(q)

	switch mode {
	case repository.MatchExact:
		return exact, []any{q, q}
	case repository.MatchPartial:
		return like + ` AND NOT ` + exact, []any{p, p, q, q}
	default:
		return like, []any{p, p}
	}
}
