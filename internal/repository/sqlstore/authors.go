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

// AuthorDB implements repository.AuthorRepository.
type AuthorDB struct {
	c *conn
}

var _ repository.AuthorRepository = (*AuthorDB)(nil)

const authorColumns = `author_id, name_kannada, name_english, biography, image_url, era`

// Create inserts an author. Authors carry no uniqueness constraint; two rows
// may share a name.
func (a *AuthorDB) Create(ctx context.Context, author *model.Author) error {
	id, err := a.c.insertReturningID(ctx,
		`INSERT INTO authors (name_kannada, name_english, biography, image_url, era)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING author_id`,
		author.NameKannada, author.NameEnglish, author.Biography, author.ImageURL, author.Era,
	)
	if err != nil {
		if v := a.c.d.classify(err); v.kind == notNullViolation {
			return apperror.ConstraintViolation("name", "author names are required")
		}
		return fmt.Errorf("sqlstore: creating author %q: %w", author.NameEnglish, err)
	}
	author.ID = id
	return nil
}

func (a *AuthorDB) GetByID(ctx context.Context, id int64) (*model.Author, error) {
	author, err := scanAuthor(a.c.queryRow(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE author_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("author", id)
		}
		return nil, fmt.Errorf("sqlstore: getting author %d: %w", id, err)
	}
	return author, nil
}

// GetByEnglishName returns the first author (lowest id) with exactly this
// English name. Used for idempotent imports.
func (a *AuthorDB) GetByEnglishName(ctx context.Context, name string) (*model.Author, error) {
	author, err := scanAuthor(a.c.queryRow(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE name_english = ?
		 ORDER BY author_id LIMIT 1`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundBy("author", "name", name)
		}
		return nil, fmt.Errorf("sqlstore: getting author %q: %w", name, err)
	}
	return author, nil
}

// List returns authors ordered by English name.
func (a *AuthorDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Author, error) {
	rows, err := a.c.query(ctx,
		`SELECT `+authorColumns+` FROM authors
		 ORDER BY name_english, author_id
		 LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing authors: %w", err)
	}
	return collectAuthors(rows)
}

func (a *AuthorDB) Update(ctx context.Context, author *model.Author) error {
	res, err := a.c.exec(ctx,
		`UPDATE authors
		 SET name_kannada = ?, name_english = ?, biography = ?, image_url = ?, era = ?
		 WHERE author_id = ?`,
		author.NameKannada, author.NameEnglish, author.Biography, author.ImageURL, author.Era,
		author.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating author %d: %w", author.ID, err)
	}
	return requireAffected(res, apperror.NotFound("author", author.ID))
}

func (a *AuthorDB) UpdateImage(ctx context.Context, nameEnglish, imageURL string) (int64, error) {
	res, err := a.c.exec(ctx,
		`UPDATE authors SET image_url = ? WHERE name_english = ?`, imageURL, nameEnglish)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: updating image of %q: %w", nameEnglish, err)
	}
	return res.RowsAffected()
}

// Delete fails with a referential integrity violation while works still
// reference the author.
func (a *AuthorDB) Delete(ctx context.Context, id int64) error {
	res, err := a.c.exec(ctx, `DELETE FROM authors WHERE author_id = ?`, id)
	if err != nil {
		if v := a.c.d.classify(err); v.kind == foreignKeyViolation {
			return apperror.ReferentialIntegrityViolation("author", "author_id",
				fmt.Sprintf("author %d still has works", id))
		}
		return fmt.Errorf("sqlstore: deleting author %d: %w", id, err)
	}
	return requireAffected(res, apperror.NotFound("author", id))
}

func scanAuthor(row scanner) (*model.Author, error) {
	var a model.Author
	if err := row.Scan(&a.ID, &a.NameKannada, &a.NameEnglish, &a.Biography, &a.ImageURL, &a.Era); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAuthors(rows *sql.Rows) ([]model.Author, error) {
	defer rows.Close()

	authors := []model.Author{}
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning author: %w", err)
		}
		authors = append(authors, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating authors: %w", err)
	}
	return authors, nil
}
