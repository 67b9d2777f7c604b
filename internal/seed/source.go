// Package seed loads the starter catalog and demo data into the store.
//
// Three operations, all idempotent and each run in a single transaction:
//
//	ImportCatalog       authors and works from writer.json / poets.json
//	PopulateReviews     demo users and a spread of recent 4-5 star reviews
//	UpdateAuthorImages  known image filename fixes
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Entry is one author record from writer.json or poets.json.
type Entry struct {
	Name         string   `json:"name"`
	Biography    string   `json:"biography"`
	Contribution string   `json:"contribution"`
	Genres       []string `json:"genres"`
	FamousWorks  []Piece  `json:"famous_works"`
	FamousPoems  []Piece  `json:"famous_poems"`
}

// bio is the biography, falling back to the contribution summary.
func (e Entry) bio() string {
	if e.Biography != "" {
		return e.Biography
	}
	return e.Contribution
}

// Piece is a work listed under an author. The files write it either as a
// bare title string or as an object.
type Piece struct {
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	Genre            string `json:"genre"`
}

func (p *Piece) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Title)
	}
	type plain Piece
	return json.Unmarshal(data, (*plain)(p))
}

// ParseEntries decodes a catalog file. The top level is either an array of
// entries or an object holding the array under one of keys (first match
// wins).
func ParseEntries(data []byte, keys ...string) ([]Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("seed: decoding entries: %w", err)
		}
		return entries, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("seed: decoding catalog object: %w", err)
	}
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("seed: decoding %q: %w", k, err)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("seed: catalog object has none of the keys %v", keys)
}

// LoadEntries reads and parses a catalog file. A missing file yields no
// entries and no error, so a deployment may ship only one of the two files.
func LoadEntries(ctx context.Context, path string, keys ...string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("seed: reading %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := ParseEntries(data, keys...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
