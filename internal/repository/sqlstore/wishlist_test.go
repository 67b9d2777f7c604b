package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
)

func TestWishlistCreate(t *testing.T) {
	f := newReviewFixture(t)

	entry := &model.WishlistEntry{UserID: f.user.ID, WorkID: f.work.ID}
	require.NoError(t, f.store.Wishlist().Create(context.Background(), entry))
	assert.NotZero(t, entry.ID)
	assert.True(t, entry.CreatedAt.Equal(f.clock.now))

	ok, err := f.store.Wishlist().Exists(context.Background(), f.user.ID, f.work.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWishlistCreate_Duplicate(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Wishlist().Create(ctx, &model.WishlistEntry{UserID: f.user.ID, WorkID: f.work.ID}))

	err := f.store.Wishlist().Create(ctx, &model.WishlistEntry{UserID: f.user.ID, WorkID: f.work.ID})
	assert.ErrorIs(t, err, apperror.ErrUniqueness)
	assert.Equal(t, 1, countRows(t, f.store, "wishlist_entries"))
}

func TestWishlistCreate_UnknownReferences(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	err := f.store.Wishlist().Create(ctx, &model.WishlistEntry{UserID: f.user.ID, WorkID: 404})
	require.ErrorIs(t, err, apperror.ErrReferentialIntegrity)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "work_id", appErr.Field)

	err = f.store.Wishlist().Create(ctx, &model.WishlistEntry{UserID: 404, WorkID: f.work.ID})
	require.ErrorIs(t, err, apperror.ErrReferentialIntegrity)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "user_id", appErr.Field)

	assert.Equal(t, 0, countRows(t, f.store, "wishlist_entries"))
}

// Concurrent inserts of the same pair race on the UNIQUE constraint alone.
func TestWishlistCreate_ConcurrentDuplicates(t *testing.T) {
	f := newReviewFixture(t)
	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.store.Wishlist().Create(context.Background(),
				&model.WishlistEntry{UserID: f.user.ID, WorkID: f.work.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperror.ErrUniqueness):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, countRows(t, f.store, "wishlist_entries"))
}

func TestWishlistDeleteAndList(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	author := mustCreateAuthor(t, f.store, "Karanth", "ಕಾರಂತ")
	dudi := mustCreateWork(t, f.store, author.ID, "Chomana Dudi", "ಚೋಮನ ದುಡಿ")

	require.NoError(t, f.store.Wishlist().Create(ctx, &model.WishlistEntry{UserID: f.user.ID, WorkID: f.work.ID}))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.store.Wishlist().Create(ctx, &model.WishlistEntry{UserID: f.user.ID, WorkID: dudi.ID}))

	items, err := f.store.Wishlist().ListByUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, dudi.ID, items[0].WorkID, "newest entry first")
	assert.Equal(t, "Chomana Dudi", items[0].Work.TitleEnglish)
	assert.Equal(t, "Karanth", items[0].Work.AuthorNameEnglish)

	require.NoError(t, f.store.Wishlist().Delete(ctx, f.user.ID, dudi.ID))
	assert.ErrorIs(t, f.store.Wishlist().Delete(ctx, f.user.ID, dudi.ID), apperror.ErrNotFound)

	ok, err := f.store.Wishlist().Exists(ctx, f.user.ID, dudi.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
