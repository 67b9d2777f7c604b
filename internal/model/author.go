package model

// Eras assigned when importing authors.
const (
	EraNavya    = "Navya"
	EraNavodaya = "Navodaya"
	EraModern   = "Modern"
)

// Author is a writer in the catalog, named in both Kannada and English.
// ImageURL is a filename resolved against the static image directory.
type Author struct {
	ID          int64   `json:"id"                  db:"author_id"`
	NameKannada string  `json:"nameKannada"         db:"name_kannada"`
	NameEnglish string  `json:"nameEnglish"         db:"name_english"`
	Biography   *string `json:"biography,omitempty" db:"biography"`
	ImageURL    *string `json:"imageUrl,omitempty"  db:"image_url"`
	Era         *string `json:"era,omitempty"       db:"era"`
}

// AuthorDetail is an author together with every work attributed to them.
type AuthorDetail struct {
	Author *Author       `json:"author"`
	Works  []WorkSummary `json:"works"`
}
