package model

import "encoding/json"

// Work types assigned when importing; the column itself accepts any text.
const (
	WorkTypeNovel      = "Novel"
	WorkTypePoetry     = "Poetry"
	WorkTypePlay       = "Play"
	WorkTypeShortStory = "Short Story"
)

// Work is a book, poem or play by exactly one Author.
//
// Genres holds a serialized JSON array of strings, e.g. `["Novel","Social"]`.
// The store treats it as opaque text; use GenreList to read it.
type Work struct {
	ID            int64   `json:"id"                      db:"work_id"`
	AuthorID      int64   `json:"authorId"                db:"author_id"`
	TitleKannada  string  `json:"titleKannada"            db:"title_kannada"`
	TitleEnglish  string  `json:"titleEnglish"            db:"title_english"`
	Synopsis      *string `json:"synopsis,omitempty"      db:"synopsis"`
	CoverImageURL *string `json:"coverImageUrl,omitempty" db:"cover_image_url"`
	Type          *string `json:"type,omitempty"          db:"type"`
	Genres        *string `json:"genres,omitempty"        db:"genres"`
}

// GenreList decodes Genres. A missing or malformed value yields nil.
func (w *Work) GenreList() []string {
	if w.Genres == nil || *w.Genres == "" {
		return nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(*w.Genres), &genres); err != nil {
		return nil
	}
	return genres
}

// EncodeGenres serializes a genre list into the stored representation.
// An empty list encodes to nil (NULL).
func EncodeGenres(genres []string) *string {
	if len(genres) == 0 {
		return nil
	}
	b, _ := json.Marshal(genres) // []string always marshals
	s := string(b)
	return &s
}

// WorkSummary is a work joined with its author's names and its review
// statistics. ReviewCount and AvgRating are computed over whatever window
// the producing query used.
type WorkSummary struct {
	Work
	AuthorNameKannada string  `json:"authorNameKannada"`
	AuthorNameEnglish string  `json:"authorNameEnglish"`
	AuthorImageURL    *string `json:"authorImageUrl,omitempty"`
	ReviewCount       int     `json:"reviewCount"`
	AvgRating         float64 `json:"avgRating"`
}

// WorkDetail is the work page: the summary plus its reviews, newest first.
type WorkDetail struct {
	Summary *WorkSummary   `json:"work"`
	Reviews []ReviewDetail `json:"reviews"`
}
