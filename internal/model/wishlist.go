package model

import "time"

// WishlistEntry marks a work a user intends to read. Each (user, work) pair
// appears at most once.
type WishlistEntry struct {
	ID        int64     `json:"id"        db:"wishlist_id"`
	UserID    int64     `json:"userId"    db:"user_id"`
	WorkID    int64     `json:"workId"    db:"work_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// WishlistItem is an entry with the work it points at.
type WishlistItem struct {
	WishlistEntry
	Work WorkSummary `json:"work"`
}
