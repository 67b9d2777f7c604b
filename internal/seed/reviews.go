package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "dummy123"

// DemoUsernames are the accounts PopulateReviews writes reviews as.
var DemoUsernames = []string{
	"BookLover", "LiteraryFan", "KannadaReader", "PoetryEnthusiast", "NovelAdmirer",
	"ClassicReader", "ModernLitFan", "StorySeeker", "PageTurner", "BookWorm",
}

var demoReviewTexts = []string{
	"A masterpiece of Kannada literature. Deeply moving and thought-provoking.",
	"Beautifully written with rich cultural insights. Highly recommended!",
	"One of the finest works I've read. The narrative is captivating.",
	"A profound exploration of human nature and society. Exceptional writing.",
	"This book left a lasting impression. The author's style is remarkable.",
	"An excellent read that captures the essence of Kannada culture.",
	"Brilliant storytelling with deep philosophical undertones.",
	"A must-read for anyone interested in Kannada literature.",
	"The characters are well-developed and the plot is engaging.",
	"Outstanding work that deserves to be read by everyone.",
	"Beautiful prose and meaningful themes throughout.",
	"A classic that stands the test of time.",
	"Thoughtful and inspiring. One of my favorites.",
	"The author's command over language is impressive.",
	"A wonderful book that I couldn't put down.",
}

// Weighted toward 4: three 4s for every two 5s.
var demoRatings = []int{4, 4, 4, 5, 5}

const (
	minReviewsPerWork = 3
	maxReviewsPerWork = 8
	recentShare       = 0.4 // share of reviews dated within the last week
	textShare         = 0.7 // share of reviews with a text body
	workPageSize      = 500
)

// PopulateResult counts what PopulateReviews created.
type PopulateResult struct {
	UsersCreated int
	Reviews      int
	Works        int
}

// PopulateReviews makes sure the demo accounts exist and gives every work
// between 3 and 8 review attempts by randomly chosen demo users. An attempt
// is skipped when that user already reviewed the work, so reruns only top
// up. About 40% of reviews are dated within the last 7 days so the home
// page has something popular this week.
func (s *Seeder) PopulateReviews(ctx context.Context, rng *rand.Rand) (PopulateResult, error) {
	// Hash once outside the transaction; bcrypt is slow on purpose.
	hash, err := s.passwords.Hash(DemoPassword)
	if err != nil {
		return PopulateResult{}, fmt.Errorf("seed: hashing demo password: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	var res PopulateResult
	err = s.store.InTx(ctx, func(repos repository.Repositories) error {
		res = PopulateResult{}

		userIDs := make([]int64, 0, len(DemoUsernames))
		for _, name := range DemoUsernames {
			id, created, err := getOrCreateDemoUser(ctx, repos.Users(), name, hash)
			if err != nil {
				return err
			}
			if created {
				res.UsersCreated++
			}
			userIDs = append(userIDs, id)
		}

		works, err := allWorks(ctx, repos.Works())
		if err != nil {
			return err
		}
		res.Works = len(works)

		for _, workID := range works {
			attempts := minReviewsPerWork + rng.IntN(maxReviewsPerWork-minReviewsPerWork+1)
			for range attempts {
				userID := userIDs[rng.IntN(len(userIDs))]

				existing, err := repos.Reviews().FindByUserAndWork(ctx, userID, workID)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					continue
				}

				if err := repos.Reviews().Create(ctx, demoReview(rng, now, userID, workID)); err != nil {
					return err
				}
				res.Reviews++
			}
		}
		return nil
	})
	if err != nil {
		return PopulateResult{}, fmt.Errorf("seed: populating reviews: %w", err)
	}

	s.logger.Info("demo reviews populated",
		slog.Int("works", res.Works),
		slog.Int("reviews", res.Reviews),
		slog.Int("usersCreated", res.UsersCreated),
	)
	return res, nil
}

// demoReview draws one review. Date read and date logged are the same
// number of days in the past.
func demoReview(rng *rand.Rand, now time.Time, userID, workID int64) *model.Review {
	r := &model.Review{
		UserID: userID,
		WorkID: workID,
		Rating: demoRatings[rng.IntN(len(demoRatings))],
	}
	if rng.Float64() < textShare {
		text := demoReviewTexts[rng.IntN(len(demoReviewTexts))]
		r.ReviewText = &text
	}

	var daysAgo int
	if rng.Float64() < recentShare {
		daysAgo = rng.IntN(8) // 0..7
	} else {
		daysAgo = 8 + rng.IntN(23) // 8..30
	}
	logged := now.AddDate(0, 0, -daysAgo)
	r.DateRead = logged
	r.DateLogged = logged
	return r
}

func getOrCreateDemoUser(ctx context.Context, users repository.UserRepository, username, hash string) (int64, bool, error) {
	u, err := users.GetByUsername(ctx, username)
	if err == nil {
		return u.ID, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return 0, false, err
	}

	u = &model.User{
		Username:     username,
		Email:        strings.ToLower(username) + "@example.com",
		PasswordHash: hash,
	}
	if err := users.Create(ctx, u); err != nil {
		return 0, false, err
	}
	return u.ID, true, nil
}

// allWorks pages through the catalog and returns every work id.
func allWorks(ctx context.Context, works repository.WorkRepository) ([]int64, error) {
	var ids []int64
	for offset := 0; ; offset += workPageSize {
		page, err := works.List(ctx, repository.ListOptions{Limit: workPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, w := range page {
			ids = append(ids, w.ID)
		}
		if len(page) < workPageSize {
			return ids, nil
		}
	}
}
