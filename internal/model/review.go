package model

import "time"

// Rating bounds, enforced by a CHECK constraint and by the review service.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one diary entry: a user's rating of a work on a given date.
//
// DateRead is the calendar day the user says they read the work (midnight
// UTC). DateLogged is when the row was written; the store fills it in.
// A user may review the same work more than once.
type Review struct {
	ID         int64     `json:"id"                   db:"review_id"`
	UserID     int64     `json:"userId"               db:"user_id"`
	WorkID     int64     `json:"workId"               db:"work_id"`
	Rating     int       `json:"rating"               db:"rating"`
	ReviewText *string   `json:"reviewText,omitempty" db:"review_text"`
	DateRead   time.Time `json:"dateRead"             db:"date_read"`
	DateLogged time.Time `json:"dateLogged"           db:"date_logged"`
}

// ReviewDetail is a review joined with the names a page needs to render it.
type ReviewDetail struct {
	Review
	Username          string `json:"username"`
	WorkTitleKannada  string `json:"workTitleKannada"`
	WorkTitleEnglish  string `json:"workTitleEnglish"`
	AuthorNameKannada string `json:"authorNameKannada"`
	AuthorNameEnglish string `json:"authorNameEnglish"`
}
