package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// WishlistService manages a user's to-read list.
type WishlistService struct {
	repo   repository.WishlistRepository
	logger *slog.Logger
}

func NewWishlistService(repo repository.WishlistRepository, logger *slog.Logger) *WishlistService {
	return &WishlistService{repo: repo, logger: logger}
}

// Add puts a work on the user's wishlist. Adding the same work twice fails
// with apperror.ErrUniqueness and leaves the original entry untouched.
func (s *WishlistService) Add(ctx context.Context, userID, workID int64) (*model.WishlistEntry, error) {
	entry := &model.WishlistEntry{UserID: userID, WorkID: workID}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/wishlist: adding work %d for user %d: %w", workID, userID, err)
	}
	s.logger.Info("wishlist entry added",
		slog.Int64("userID", userID),
		slog.Int64("workID", workID),
	)
	return entry, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, workID int64) error {
	if err := s.repo.Delete(ctx, userID, workID); err != nil {
		return fmt.Errorf("service/wishlist: removing work %d for user %d: %w", workID, userID, err)
	}
	s.logger.Info("wishlist entry removed",
		slog.Int64("userID", userID),
		slog.Int64("workID", workID),
	)
	return nil
}

// List returns the wishlist, most recently added first.
func (s *WishlistService) List(ctx context.Context, userID int64) ([]model.WishlistItem, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/wishlist: listing for user %d: %w", userID, err)
	}
	return items, nil
}

func (s *WishlistService) Contains(ctx context.Context, userID, workID int64) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID, workID)
	if err != nil {
		return false, fmt.Errorf("service/wishlist: checking work %d for user %d: %w", workID, userID, err)
	}
	return ok, nil
}
