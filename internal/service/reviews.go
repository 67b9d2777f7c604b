package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// MaxReviewTextLength bounds the free-text review body, in characters.
const MaxReviewTextLength = 5000

// ReviewInput is what a user fills in when logging or editing a diary entry.
type ReviewInput struct {
	Rating     int
	ReviewText *string
	DateRead   time.Time
}

// ReviewService logs and edits diary entries. Only the author of a review
// may change or delete it.
type ReviewService struct {
	repos  repository.Repositories
	logger *slog.Logger
}

func NewReviewService(repos repository.Repositories, logger *slog.Logger) *ReviewService {
	return &ReviewService{repos: repos, logger: logger}
}

// LogReview records a new review. Re-reviewing a work is allowed: each call
// adds a row.
//
// ERRORS:
//   - rating outside 1..5      → apperror.ErrConstraint (field "rating")
//   - missing date read         → apperror.ErrValidation
//   - text over 5000 characters → apperror.ErrValidation
//   - unknown user or work      → apperror.ErrReferentialIntegrity
func (s *ReviewService) LogReview(ctx context.Context, userID, workID int64, in ReviewInput) (*model.Review, error) {
	text, err := validateReviewInput(in)
	if err != nil {
		return nil, err
	}

	review := &model.Review{
		UserID:     userID,
		WorkID:     workID,
		Rating:     in.Rating,
		ReviewText: text,
		DateRead:   in.DateRead,
	}
	if err := s.repos.Reviews().Create(ctx, review); err != nil {
		return nil, fmt.Errorf("service/review: logging review (user=%d, work=%d): %w", userID, workID, err)
	}

	s.logger.Info("review logged",
		slog.Int64("reviewID", review.ID),
		slog.Int64("userID", userID),
		slog.Int64("workID", workID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// UpdateReview edits the caller's own review. The store refreshes its
// date logged.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID int64, in ReviewInput) (*model.Review, error) {
	text, err := validateReviewInput(in)
	if err != nil {
		return nil, err
	}

	review, err := s.owned(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}
	review.Rating = in.Rating
	review.ReviewText = text
	review.DateRead = in.DateRead

	if err := s.repos.Reviews().Update(ctx, review); err != nil {
		return nil, fmt.Errorf("service/review: updating review %d: %w", reviewID, err)
	}

	s.logger.Info("review updated",
		slog.Int64("reviewID", reviewID),
		slog.Int64("userID", userID),
	)
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID int64) error {
	if _, err := s.owned(ctx, userID, reviewID); err != nil {
		return err
	}
	if err := s.repos.Reviews().Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("service/review: deleting review %d: %w", reviewID, err)
	}
	s.logger.Info("review deleted",
		slog.Int64("reviewID", reviewID),
		slog.Int64("userID", userID),
	)
	return nil
}

func (s *ReviewService) ListForWork(ctx context.Context, workID int64) ([]model.ReviewDetail, error) {
	reviews, err := s.repos.Reviews().ListByWork(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("service/review: listing reviews of work %d: %w", workID, err)
	}
	return reviews, nil
}

func (s *ReviewService) ListForUser(ctx context.Context, userID int64) ([]model.ReviewDetail, error) {
	reviews, err := s.repos.Reviews().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/review: listing reviews of user %d: %w", userID, err)
	}
	return reviews, nil
}

// owned fetches a review and checks it belongs to userID.
func (s *ReviewService) owned(ctx context.Context, userID, reviewID int64) (*model.Review, error) {
	review, err := s.repos.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		s.logger.Warn("review ownership denied",
			slog.Int64("reviewID", reviewID),
			slog.Int64("userID", userID),
		)
		return nil, apperror.Forbidden("you can only change your own reviews")
	}
	return review, nil
}

// validateReviewInput checks the form and returns the normalized text
// (nil when blank).
func validateReviewInput(in ReviewInput) (*string, error) {
	if in.Rating < model.MinRating || in.Rating > model.MaxRating {
		return nil, apperror.ConstraintViolation("rating",
			fmt.Sprintf("rating must be between %d and %d, got %d", model.MinRating, model.MaxRating, in.Rating))
	}
	if in.DateRead.IsZero() {
		return nil, apperror.ValidationFailed("dateRead", "date read is required")
	}
	text := trimOptional(in.ReviewText)
	if text != nil && utf8.RuneCountInString(*text) > MaxReviewTextLength {
		return nil, apperror.ValidationFailed("reviewText",
			fmt.Sprintf("review must be %d characters or less", MaxReviewTextLength))
	}
	return text, nil
}

// ParseDateRead parses a diary date in YYYY-MM-DD form.
func ParseDateRead(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperror.ValidationFailed("dateRead", "date read is required")
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("dateRead", "date read must look like 2024-01-31")
	}
	return t, nil
}
