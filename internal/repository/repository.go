// Package repository declares the storage contracts the services depend on.
//
// Services only see these interfaces. The sqlstore package implements them
// for SQLite and PostgreSQL; tests may substitute fakes.
//
// ERROR CONTRACT:
// Implementations return apperror values for domain failures:
//   - apperror.ErrNotFound             lookup or update of a missing row
//   - apperror.ErrUniqueness           duplicate username/email/wishlist pair
//   - apperror.ErrReferentialIntegrity unknown author/user/work, or a delete
//     that would orphan dependants
//   - apperror.ErrConstraint           CHECK / NOT NULL failures (rating ∉ 1..5)
//
// Any other error is an infrastructure failure.
package repository

import (
	"context"
	"time"

	"github.com/sakif/literary-diary/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	// Delete removes the user's reviews and wishlist entries, then the user,
	// in one transaction.
	Delete(ctx context.Context, id int64) error
}

type AuthorRepository interface {
	Create(ctx context.Context, author *model.Author) error
	GetByID(ctx context.Context, id int64) (*model.Author, error)
	GetByEnglishName(ctx context.Context, name string) (*model.Author, error)
	List(ctx context.Context, opts ListOptions) ([]model.Author, error)
	Update(ctx context.Context, author *model.Author) error
	// UpdateImage sets image_url on every author with the given English name
	// and reports how many rows changed.
	UpdateImage(ctx context.Context, nameEnglish, imageURL string) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type WorkRepository interface {
	Create(ctx context.Context, work *model.Work) error
	GetByID(ctx context.Context, id int64) (*model.Work, error)
	GetByEnglishTitle(ctx context.Context, title string) (*model.Work, error)
	GetSummary(ctx context.Context, id int64) (*model.WorkSummary, error)
	List(ctx context.Context, opts ListOptions) ([]model.WorkSummary, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]model.WorkSummary, error)
	Update(ctx context.Context, work *model.Work) error
	Delete(ctx context.Context, id int64) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id int64) (*model.Review, error)
	// Update rewrites rating, text and date read, and refreshes date logged.
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id int64) error
	ListByWork(ctx context.Context, workID int64) ([]model.ReviewDetail, error)
	ListByUser(ctx context.Context, userID int64) ([]model.ReviewDetail, error)
	FindByUserAndWork(ctx context.Context, userID, workID int64) ([]model.Review, error)
}

type WishlistRepository interface {
	Create(ctx context.Context, entry *model.WishlistEntry) error
	Delete(ctx context.Context, userID, workID int64) error
	Exists(ctx context.Context, userID, workID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]model.WishlistItem, error)
}

// MatchMode selects how a text query is compared against names and titles.
// All modes are case-insensitive.
type MatchMode int

const (
	MatchExact   MatchMode = iota // whole value equals the query
	MatchPartial                  // value contains the query but is not equal to it
	MatchAny                      // value contains the query
)

// CatalogQueries are the read-only joins behind the home, search and genre pages.
type CatalogQueries interface {
	// PopularWorks ranks works by review count, then average rating, counting
	// only reviews logged at or after since. A zero since counts every review.
	// Works with no counted reviews are excluded.
	PopularWorks(ctx context.Context, since time.Time, limit int) ([]model.WorkSummary, error)
	// SearchAuthors matches English or Kannada names, ranked exact, prefix, contains.
	SearchAuthors(ctx context.Context, query string, limit int) ([]model.Author, error)
	// SearchWorks matches titles or the author's names, ranked exact, prefix,
	// contains, then by review count and rating.
	SearchWorks(ctx context.Context, query string, limit int) ([]model.WorkSummary, error)
	SuggestAuthors(ctx context.Context, query string, mode MatchMode, limit int) ([]model.Author, error)
	SuggestWorks(ctx context.Context, query string, mode MatchMode, limit int) ([]model.Work, error)
	// WorksByGenre matches the type or genres columns.
	WorksByGenre(ctx context.Context, genre string) ([]model.WorkSummary, error)
	// WorksByText matches titles or synopsis.
	WorksByText(ctx context.Context, text string) ([]model.WorkSummary, error)
}

// Repositories bundles every repository bound to the same handle.
type Repositories interface {
	Users() UserRepository
	Authors() AuthorRepository
	Works() WorkRepository
	Reviews() ReviewRepository
	Wishlist() WishlistRepository
	Catalog() CatalogQueries
}

// Store is a Repositories that can also run a group of operations atomically.
// Inside fn, every repository obtained from repos shares one transaction.
type Store interface {
	Repositories
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}
