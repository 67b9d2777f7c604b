package seed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sakif/literary-diary/internal/repository"
)

// ImageUpdate reports how many author rows one fix touched.
type ImageUpdate struct {
	NameEnglish string
	ImageURL    string
	Rows        int64
}

// UpdateAuthorImages applies imageOverrides to authors imported before the
// overrides existed. Both fixes commit together or not at all.
func (s *Seeder) UpdateAuthorImages(ctx context.Context) ([]ImageUpdate, error) {
	names := make([]string, 0, len(imageOverrides))
	for name := range imageOverrides {
		names = append(names, name)
	}
	slices.Sort(names)

	var updates []ImageUpdate
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		updates = updates[:0]
		for _, name := range names {
			n, err := repos.Authors().UpdateImage(ctx, name, imageOverrides[name])
			if err != nil {
				return err
			}
			updates = append(updates, ImageUpdate{NameEnglish: name, ImageURL: imageOverrides[name], Rows: n})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed: updating author images: %w", err)
	}

	for _, u := range updates {
		s.logger.Info("author image updated",
			slog.String("author", u.NameEnglish),
			slog.String("image", u.ImageURL),
			slog.Int64("rows", u.Rows),
		)
	}
	return updates, nil
}
