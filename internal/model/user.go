// Package model defines the data structures used throughout the application.
//
// Entities (User, Author, Work, Review, WishlistEntry) mirror one table each.
// Read models (WorkSummary, ReviewDetail, WishlistItem, Suggestion) are the
// shapes returned by joined queries; nothing writes them back.
//
// OPTIONAL COLUMNS:
// Nullable columns are *string. database/sql scans NULL into a nil pointer,
// and encoding/json omits nil pointers with `omitempty`.
package model

import "time"

// User is a registered diary keeper.
//
// Username and Email are unique, compared case-insensitively.
// PasswordHash is opaque (bcrypt) and never serialized.
type User struct {
	ID           int64     `json:"id"              db:"user_id"`
	Username     string    `json:"username"        db:"username"`
	Email        string    `json:"email,omitempty" db:"email"`
	PasswordHash string    `json:"-"               db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt"       db:"created_at"`
}

// Profile is a user's public page: the account plus every review they logged,
// most recently read first.
type Profile struct {
	User    *User          `json:"user"`
	Reviews []ReviewDetail `json:"reviews"`
}
