package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// ReviewDB implements repository.ReviewRepository.
type ReviewDB struct {
	c *conn
}

var _ repository.ReviewRepository = (*ReviewDB)(nil)

const reviewColumns = `review_id, user_id, work_id, rating, review_text, date_read, date_logged`

const reviewDetailSelect = `
	SELECT r.review_id, r.user_id, r.work_id, r.rating, r.review_text, r.date_read, r.date_logged,
	       u.username, w.title_kannada, w.title_english, a.name_kannada, a.name_english
	FROM reviews r
	JOIN users u ON u.user_id = r.user_id
	JOIN works w ON w.work_id = r.work_id
	JOIN authors a ON a.author_id = w.author_id`

// Create logs a review. DateRead is stored as a calendar date; DateLogged
// defaults to the current time when zero.
//
// FAILURES (nothing is written in any of these cases):
//   - user or work unknown → apperror.ErrReferentialIntegrity, Field names which
//   - rating outside 1..5 → apperror.ErrConstraint (CHECK constraint)
//   - DateRead zero       → apperror.ErrConstraint
func (rd *ReviewDB) Create(ctx context.Context, review *model.Review) error {
	if review.DateRead.IsZero() {
		return apperror.ConstraintViolation("date_read", "date read is required")
	}
	review.DateRead = dateOnly(review.DateRead)
	if review.DateLogged.IsZero() {
		review.DateLogged = rd.c.now()
	} else {
		review.DateLogged = review.DateLogged.UTC().Truncate(time.Second)
	}

	id, err := rd.c.insertReturningID(ctx,
		`INSERT INTO reviews (user_id, work_id, rating, review_text, date_read, date_logged)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING review_id`,
		review.UserID, review.WorkID, review.Rating, review.ReviewText,
		review.DateRead, review.DateLogged,
	)
	if err != nil {
		switch rd.c.d.classify(err).kind {
		case checkViolation:
			return ratingViolation(review.Rating)
		case foreignKeyViolation:
			return missingUserOrWork(ctx, rd.c, "review", review.UserID, review.WorkID)
		case notNullViolation:
			return apperror.ConstraintViolation("review", "review fields must not be null")
		}
		return fmt.Errorf("sqlstore: creating review (user=%d, work=%d): %w", review.UserID, review.WorkID, err)
	}

	review.ID = id
	return nil
}

func (rd *ReviewDB) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	review, err := scanReview(rd.c.queryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE review_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlstore: getting review %d: %w", id, err)
	}
	return review, nil
}

// Update rewrites the editable fields. The row's date_logged moves to now,
// so an edited review counts as fresh activity.
func (rd *ReviewDB) Update(ctx context.Context, review *model.Review) error {
	if review.DateRead.IsZero() {
		return apperror.ConstraintViolation("date_read", "date read is required")
	}
	review.DateRead = dateOnly(review.DateRead)
	review.DateLogged = rd.c.now()

	res, err := rd.c.exec(ctx,
		`UPDATE reviews
		 SET rating = ?, review_text = ?, date_read = ?, date_logged = ?
		 WHERE review_id = ?`,
		review.Rating, review.ReviewText, review.DateRead, review.DateLogged, review.ID,
	)
	if err != nil {
		if rd.c.d.classify(err).kind == checkViolation {
			return ratingViolation(review.Rating)
		}
		return fmt.Errorf("sqlstore: updating review %d: %w", review.ID, err)
	}
	return requireAffected(res, apperror.NotFound("review", review.ID))
}

func (rd *ReviewDB) Delete(ctx context.Context, id int64) error {
	res, err := rd.c.exec(ctx, `DELETE FROM reviews WHERE review_id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting review %d: %w", id, err)
	}
	return requireAffected(res, apperror.NotFound("review", id))
}

// ListByWork returns a work's reviews, most recently logged first.
func (rd *ReviewDB) ListByWork(ctx context.Context, workID int64) ([]model.ReviewDetail, error) {
	rows, err := rd.c.query(ctx,
		reviewDetailSelect+`
		 WHERE r.work_id = ?
		 ORDER BY r.date_logged DESC, r.review_id DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing reviews of work %d: %w", workID, err)
	}
	return collectReviewDetails(rows)
}

// ListByUser returns a user's diary, most recently read first.
func (rd *ReviewDB) ListByUser(ctx context.Context, userID int64) ([]model.ReviewDetail, error) {
	rows, err := rd.c.query(ctx,
		reviewDetailSelect+`
		 WHERE r.user_id = ?
		 ORDER BY r.date_read DESC, r.review_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing reviews of user %d: %w", userID, err)
	}
	return collectReviewDetails(rows)
}

func (rd *ReviewDB) FindByUserAndWork(ctx context.Context, userID, workID int64) ([]model.Review, error) {
	rows, err := rd.c.query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE user_id = ? AND work_id = ?
		 ORDER BY review_id`, userID, workID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: finding reviews (user=%d, work=%d): %w", userID, workID, err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating reviews: %w", err)
	}
	return reviews, nil
}

func scanReview(row scanner) (*model.Review, error) {
	var r model.Review
	err := row.Scan(&r.ID, &r.UserID, &r.WorkID, &r.Rating, &r.ReviewText, &r.DateRead, &r.DateLogged)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReviewDetails(rows *sql.Rows) ([]model.ReviewDetail, error) {
	defer rows.Close()

	details := []model.ReviewDetail{}
	for rows.Next() {
		var d model.ReviewDetail
		err := rows.Scan(
			&d.ID, &d.UserID, &d.WorkID, &d.Rating, &d.ReviewText, &d.DateRead, &d.DateLogged,
			&d.Username, &d.WorkTitleKannada, &d.WorkTitleEnglish,
			&d.AuthorNameKannada, &d.AuthorNameEnglish,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning review detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating review details: %w", err)
	}
	return details, nil
}

func ratingViolation(rating int) error {
	return apperror.ConstraintViolation("rating",
		fmt.Sprintf("rating must be between %d and %d, got %d", model.MinRating, model.MaxRating, rating))
}

// missingUserOrWork turns a foreign-key failure on (user_id, work_id) into an
// error naming the missing side.
//
// In PostgreSQL a failed statement aborts the surrounding transaction, so the
// follow-up lookups can fail too; the generic violation is returned then.
func missingUserOrWork(ctx context.Context, c *conn, resource string, userID, workID int64) error {
	generic := apperror.ReferentialIntegrityViolation(resource, "",
		fmt.Sprintf("%s references an unknown user or work", resource))

	ok, err := userExists(ctx, c, userID)
	if err != nil {
		return generic
	}
	if !ok {
		return apperror.ReferentialIntegrityViolation(resource, "user_id",
			fmt.Sprintf("user %d does not exist", userID))
	}
	ok, err = workExists(ctx, c, workID)
	if err != nil {
		return generic
	}
	if !ok {
		return apperror.ReferentialIntegrityViolation(resource, "work_id",
			fmt.Sprintf("work %d does not exist", workID))
	}
	return generic
}
