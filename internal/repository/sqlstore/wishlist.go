package sqlstore

import (
	"context"
	"fmt"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// WishlistDB implements repository.WishlistRepository.
type WishlistDB struct {
	c *conn
}

var _ repository.WishlistRepository = (*WishlistDB)(nil)

// Create adds a work to a user's wishlist.
//
// CONCURRENT DUPLICATES:
// There is no check-then-insert. The UNIQUE (user_id, work_id) constraint
// decides: of several concurrent inserts for the same pair exactly one
// commits, the rest get apperror.ErrUniqueness.
func (wl *WishlistDB) Create(ctx context.Context, entry *model.WishlistEntry) error {
	createdAt := wl.c.now()
	id, err := wl.c.insertReturningID(ctx,
		`INSERT INTO wishlist_entries (user_id, work_id, created_at)
		 VALUES (?, ?, ?)
		 RETURNING wishlist_id`,
		entry.UserID, entry.WorkID, createdAt,
	)
	if err != nil {
		switch wl.c.d.classify(err).kind {
		case uniqueViolation:
			return apperror.UniquenessViolation("wishlist entry", "work_id")
		case foreignKeyViolation:
			return missingUserOrWork(ctx, wl.c, "wishlist entry", entry.UserID, entry.WorkID)
		}
		return fmt.Errorf("sqlstore: adding work %d to wishlist of user %d: %w", entry.WorkID, entry.UserID, err)
	}

	entry.ID = id
	entry.CreatedAt = createdAt
	return nil
}

func (wl *WishlistDB) Delete(ctx context.Context, userID, workID int64) error {
	res, err := wl.c.exec(ctx,
		`DELETE FROM wishlist_entries WHERE user_id = ? AND work_id = ?`, userID, workID)
	if err != nil {
		return fmt.Errorf("sqlstore: removing work %d from wishlist of user %d: %w", workID, userID, err)
	}
	return requireAffected(res, apperror.NotFoundBy("wishlist entry", "work_id", workID))
}

func (wl *WishlistDB) Exists(ctx context.Context, userID, workID int64) (bool, error) {
	ok, err := wl.c.exists(ctx,
		`SELECT 1 FROM wishlist_entries WHERE user_id = ? AND work_id = ?`, userID, workID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking wishlist of user %d: %w", userID, err)
	}
	return ok, nil
}

// ListByUser returns the wishlist newest first, each entry with its work summary.
func (wl *WishlistDB) ListByUser(ctx context.Context, userID int64) ([]model.WishlistItem, error) {
	rows, err := wl.c.query(ctx, `
		SELECT e.wishlist_id, e.user_id, e.work_id, e.created_at,
		       w.work_id, w.author_id, w.title_kannada, w.title_english, w.synopsis,
		       w.cover_image_url, w.type, w.genres,
		       a.name_kannada, a.name_english, a.image_url,
		       COUNT(r.review_id),
		       CAST(COALESCE(AVG(r.rating), 0) AS DOUBLE PRECISION)
		FROM wishlist_entries e
		JOIN works w ON w.work_id = e.work_id
		JOIN authors a ON a.author_id = w.author_id
		LEFT JOIN reviews r ON r.work_id = w.work_id
		WHERE e.user_id = ?
		GROUP BY e.wishlist_id, w.work_id, a.author_id
		ORDER BY e.created_at DESC, e.wishlist_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing wishlist of user %d: %w", userID, err)
	}
	defer rows.Close()

	items := []model.WishlistItem{}
	for rows.Next() {
		var it model.WishlistItem
		s := &it.Work
		err := rows.Scan(
			&it.ID, &it.UserID, &it.WorkID, &it.CreatedAt,
			&s.ID, &s.AuthorID, &s.TitleKannada, &s.TitleEnglish, &s.Synopsis,
			&s.CoverImageURL, &s.Type, &s.Genres,
			&s.AuthorNameKannada, &s.AuthorNameEnglish, &s.AuthorImageURL,
			&s.ReviewCount, &s.AvgRating,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning wishlist item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating wishlist: %w", err)
	}
	return items, nil
}
