package model

// Suggestion kinds.
const (
	SuggestionAuthor = "author"
	SuggestionWork   = "work"
)

// Suggestion is one autocomplete entry. Priority 1 is an exact match,
// 2 a partial one; lower sorts first.
type Suggestion struct {
	Label    string `json:"label"`
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// SearchResults groups the authors and works matching a free-text query.
type SearchResults struct {
	Query   string        `json:"query"`
	Authors []Author      `json:"authors"`
	Works   []WorkSummary `json:"works"`
}

// GenreResults is the answer to a genre browse. Fallback is true when nothing
// matched by type or genre and the works were found by title or synopsis.
type GenreResults struct {
	Genre    string        `json:"genre"`
	Fallback bool          `json:"fallback"`
	Works    []WorkSummary `json:"works"`
}
