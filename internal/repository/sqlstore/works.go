package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// WorkDB implements repository.WorkRepository.
type WorkDB struct {
	c *conn
}

var _ repository.WorkRepository = (*WorkDB)(nil)

const workColumns = `work_id, author_id, title_kannada, title_english, synopsis,
	cover_image_url, type, genres`

// workSummarySelect joins a work with its author and all-time review
// statistics. Callers append WHERE, then workSummaryGroup, then ORDER BY.
//
// GROUP BY on both primary keys is enough for PostgreSQL: every other
// selected column depends functionally on one of them.
const workSummarySelect = `
	SELECT w.work_id, w.author_id, w.title_kannada, w.title_english, w.synopsis,
	       w.cover_image_url, w.type, w.genres,
	       a.name_kannada, a.name_english, a.image_url,
	       COUNT(r.review_id),
	       CAST(COALESCE(AVG(r.rating), 0) AS DOUBLE PRECISION)
	FROM works w
	JOIN authors a ON a.author_id = w.author_id
	LEFT JOIN reviews r ON r.work_id = w.work_id`

const workSummaryGroup = `
	GROUP BY w.work_id, a.author_id`

// Create inserts a work. An unknown author_id is a referential integrity
// violation and nothing is written.
func (wd *WorkDB) Create(ctx context.Context, work *model.Work) error {
	id, err := wd.c.insertReturningID(ctx,
		`INSERT INTO works (author_id, title_kannada, title_english, synopsis,
		                    cover_image_url, type, genres)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING work_id`,
		work.AuthorID, work.TitleKannada, work.TitleEnglish, work.Synopsis,
		work.CoverImageURL, work.Type, work.Genres,
	)
	if err != nil {
		switch wd.c.d.classify(err).kind {
		case foreignKeyViolation:
			return apperror.ReferentialIntegrityViolation("work", "author_id",
				fmt.Sprintf("author %d does not exist", work.AuthorID))
		case notNullViolation:
			return apperror.ConstraintViolation("title", "work titles are required")
		}
		return fmt.Errorf("sqlstore: creating work %q: %w", work.TitleEnglish, err)
	}
	work.ID = id
	return nil
}

func (wd *WorkDB) GetByID(ctx context.Context, id int64) (*model.Work, error) {
	work, err := scanWork(wd.c.queryRow(ctx,
		`SELECT `+workColumns+` FROM works WHERE work_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("work", id)
		}
		return nil, fmt.Errorf("sqlstore: getting work %d: %w", id, err)
	}
	return work, nil
}

// GetByEnglishTitle returns the first work (lowest id) with exactly this
// English title.
func (wd *WorkDB) GetByEnglishTitle(ctx context.Context, title string) (*model.Work, error) {
	work, err := scanWork(wd.c.queryRow(ctx,
		`SELECT `+workColumns+` FROM works WHERE title_english = ?
		 ORDER BY work_id LIMIT 1`, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundBy("work", "title", title)
		}
		return nil, fmt.Errorf("sqlstore: getting work %q: %w", title, err)
	}
	return work, nil
}

func (wd *WorkDB) GetSummary(ctx context.Context, id int64) (*model.WorkSummary, error) {
	summary, err := scanWorkSummary(wd.c.queryRow(ctx,
		workSummarySelect+` WHERE w.work_id = ?`+workSummaryGroup, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("work", id)
		}
		return nil, fmt.Errorf("sqlstore: getting work summary %d: %w", id, err)
	}
	return summary, nil
}

// List returns work summaries ordered by English title.
func (wd *WorkDB) List(ctx context.Context, opts repository.ListOptions) ([]model.WorkSummary, error) {
	rows, err := wd.c.query(ctx,
		workSummarySelect+workSummaryGroup+`
		 ORDER BY w.title_english, w.work_id
		 LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing works: %w", err)
	}
	return collectWorkSummaries(rows)
}

func (wd *WorkDB) ListByAuthor(ctx context.Context, authorID int64) ([]model.WorkSummary, error) {
	rows, err := wd.c.query(ctx,
		workSummarySelect+` WHERE w.author_id = ?`+workSummaryGroup+`
		 ORDER BY w.title_english, w.work_id`, authorID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing works of author %d: %w", authorID, err)
	}
	return collectWorkSummaries(rows)
}

func (wd *WorkDB) Update(ctx context.Context, work *model.Work) error {
	res, err := wd.c.exec(ctx,
		`UPDATE works
		 SET author_id = ?, title_kannada = ?, title_english = ?, synopsis = ?,
		     cover_image_url = ?, type = ?, genres = ?
		 WHERE work_id = ?`,
		work.AuthorID, work.TitleKannada, work.TitleEnglish, work.Synopsis,
		work.CoverImageURL, work.Type, work.Genres, work.ID,
	)
	if err != nil {
		if wd.c.d.classify(err).kind == foreignKeyViolation {
			return apperror.ReferentialIntegrityViolation("work", "author_id",
				fmt.Sprintf("author %d does not exist", work.AuthorID))
		}
		return fmt.Errorf("sqlstore: updating work %d: %w", work.ID, err)
	}
	return requireAffected(res, apperror.NotFound("work", work.ID))
}

// Delete fails with a referential integrity violation while reviews or
// wishlist entries still reference the work.
func (wd *WorkDB) Delete(ctx context.Context, id int64) error {
	res, err := wd.c.exec(ctx, `DELETE FROM works WHERE work_id = ?`, id)
	if err != nil {
		if wd.c.d.classify(err).kind == foreignKeyViolation {
			return apperror.ReferentialIntegrityViolation("work", "work_id",
				fmt.Sprintf("work %d still has reviews or wishlist entries", id))
		}
		return fmt.Errorf("sqlstore: deleting work %d: %w", id, err)
	}
	return requireAffected(res, apperror.NotFound("work", id))
}

func scanWork(row scanner) (*model.Work, error) {
	var w model.Work
	err := row.Scan(&w.ID, &w.AuthorID, &w.TitleKannada, &w.TitleEnglish, &w.Synopsis,
		&w.CoverImageURL, &w.Type, &w.Genres)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWorkSummary(row scanner) (*model.WorkSummary, error) {
	var s model.WorkSummary
	err := row.Scan(
		&s.ID, &s.AuthorID, &s.TitleKannada, &s.TitleEnglish, &s.Synopsis,
		&s.CoverImageURL, &s.Type, &s.Genres,
		&s.AuthorNameKannada, &s.AuthorNameEnglish, &s.AuthorImageURL,
		&s.ReviewCount, &s.AvgRating,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectWorks(rows *sql.Rows) ([]model.Work, error) {
	defer rows.Close()

	works := []model.Work{}
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning work: %w", err)
		}
		works = append(works, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating works: %w", err)
	}
	return works, nil
}

func collectWorkSummaries(rows *sql.Rows) ([]model.WorkSummary, error) {
	defer rows.Close()

	summaries := []model.WorkSummary{}
	for rows.Next() {
		s, err := scanWorkSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning work summary: %w", err)
		}
		summaries = append(summaries, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating work summaries: %w", err)
	}
	return summaries, nil
}

func workExists(ctx context.Context, c *conn, id int64) (bool, error) {
	return c.exists(ctx, `SELECT 1 FROM works WHERE work_id = ?`, id)
}
