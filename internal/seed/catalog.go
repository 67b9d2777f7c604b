package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// Catalog file names inside the seed directory.
const (
	WritersFile = "writer.json"
	PoetsFile   = "poets.json"
)

// kannadaNames maps English names to their Kannada spelling. Authors not
// listed keep the English name in both columns.
var kannadaNames = map[string]string{
	"Kuvempu":                  "ಕುವೆಂಪು",
	"U. R. Ananthamurthy":      "ಯು.ಆರ್. ಅನಂತಮೂರ್ತಿ",
	"S. L. Bhyrappa":           "ಎಸ್.ಎಲ್. ಭೈರಪ್ಪ",
	"Poornachandra Tejaswi":    "ಪೂರ್ಣಚಂದ್ರ ತೇಜಸ್ವಿ",
	"Bevina Seena Sharief":     "ಬೆವಿನ ಸೀನ ಶರೀಫ್",
	"D. R. Bendre":             "ಡಿ. ಆರ್. ಬೇಂದ್ರೆ",
	"Masti Venkatesha Iyengar": "ಮಾಸ್ತಿ ವೆಂಕಟೇಶ ಅಯ್ಯಂಗಾರ್",
	"K. S. Narasimhaswamy":     "ಕೆ. ಎಸ್. ನರಸಿಂಹಸ್ವಾಮಿ",
	"G. S. Shivarudrappa":      "ಜಿ. ಎಸ್. ಶಿವರುದ್ರಪ್ಪ",
}

// renamedAuthors shortens names the source files spell awkwardly.
var renamedAuthors = map[string]string{
	"Graama Seva Bhaagya (Bevina Seena Sharief)": "Bevina Seena Sharief",
}

// imageOverrides are authors whose portrait is not <name>.jpg.
var imageOverrides = map[string]string{
	"Kuvempu":               "kuvempu.jpeg",
	"Poornachandra Tejaswi": "tejaswi.jpeg",
}

var genreSeparators = regexp.MustCompile(`[,/]`)

// Seeder writes seed data through a repository.Store.
type Seeder struct {
	store     repository.Store
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Seeder.
type Option func(*Seeder)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

func New(store repository.Store, passwords *auth.PasswordService, logger *slog.Logger, opts ...Option) *Seeder {
	s := &Seeder{store: store, passwords: passwords, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportResult counts rows created; existing rows are not counted.
type ImportResult struct {
	Authors int
	Works   int
}

// ImportDir loads writer.json and poets.json from dir and imports them.
// The files are read concurrently; a failure in one cancels the other before
// it parses.
func (s *Seeder) ImportDir(ctx context.Context, dir string) (ImportResult, error) {
	var writers, poets []Entry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		writers, err = LoadEntries(gctx, filepath.Join(dir, WritersFile), "authors")
		return err
	})
	g.Go(func() error {
		var err error
		poets, err = LoadEntries(gctx, filepath.Join(dir, PoetsFile), "poets", "authors")
		return err
	})
	if err := g.Wait(); err != nil {
		return ImportResult{}, err
	}

	return s.ImportCatalog(ctx, writers, poets)
}

// author is an Entry resolved into the row it becomes.
type author struct {
	model.Author
	genres []string
	works  []Piece
	poems  []Piece
}

// ImportCatalog inserts the authors and works described by the two files.
// Authors are matched by English name and works by English title; anything
// already present is left alone, so running it twice creates nothing the
// second time.
func (s *Seeder) ImportCatalog(ctx context.Context, writers, poets []Entry) (ImportResult, error) {
	authors := mergeEntries(writers, poets)

	var res ImportResult
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		res = ImportResult{}
		for _, a := range authors {
			id, created, err := getOrCreateAuthor(ctx, repos.Authors(), &a.Author)
			if err != nil {
				return err
			}
			if created {
				res.Authors++
			}

			for _, p := range a.works {
				w := workFromPiece(id, a, p)
				n, err := createWorkIfMissing(ctx, repos.Works(), w)
				if err != nil {
					return err
				}
				res.Works += n
			}
			for _, p := range a.poems {
				w := poemFromPiece(id, a, p)
				n, err := createWorkIfMissing(ctx, repos.Works(), w)
				if err != nil {
					return err
				}
				res.Works += n
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("seed: importing catalog: %w", err)
	}

	s.logger.Info("catalog imported",
		slog.Int("authorsSeen", len(authors)),
		slog.Int("authorsCreated", res.Authors),
		slog.Int("worksCreated", res.Works),
	)
	return res, nil
}

// mergeEntries combines writers and poets in file order. A poet who is also
// listed as a writer contributes only their poems to the writer's record.
func mergeEntries(writers, poets []Entry) []*author {
	var out []*author
	byName := make(map[string]*author)

	for _, w := range writers {
		name := canonicalName(w.Name)
		if name == "" || byName[name] != nil {
			continue
		}
		a := &author{
			Author: newAuthor(name, w.bio(), writerEra(w)),
			genres: w.Genres,
			works:  w.FamousWorks,
			poems:  w.FamousPoems,
		}
		byName[name] = a
		out = append(out, a)
	}

	for _, p := range poets {
		name := canonicalName(p.Name)
		if name == "" {
			continue
		}
		if existing := byName[name]; existing != nil {
			existing.poems = append(existing.poems, p.FamousPoems...)
			continue
		}
		a := &author{
			Author: newAuthor(name, p.bio(), poetEra(p)),
			works:  p.FamousWorks,
			poems:  p.FamousPoems,
		}
		byName[name] = a
		out = append(out, a)
	}
	return out
}

func canonicalName(name string) string {
	name = strings.TrimSpace(name)
	if renamed, ok := renamedAuthors[name]; ok {
		return renamed
	}
	return name
}

func newAuthor(name, bio, era string) model.Author {
	kn := name
	if k, ok := kannadaNames[name]; ok {
		kn = k
	}
	a := model.Author{
		NameKannada: kn,
		NameEnglish: name,
		Era:         &era,
	}
	img := ImageFilename(name)
	a.ImageURL = &img
	if bio != "" {
		a.Biography = &bio
	}
	return a
}

// ImageFilename is the conventional portrait file for an author:
// lowercased, spaces to underscores, dots dropped, ".jpg" appended.
// "D. R. Bendre" becomes "d_r_bendre.jpg".
func ImageFilename(name string) string {
	if img, ok := imageOverrides[name]; ok {
		return img
	}
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ".", "")
	return s + ".jpg"
}

func writerEra(e Entry) string {
	switch {
	case strings.Contains(e.bio(), "Navya") || strings.Contains(e.Contribution, "Navya"):
		return model.EraNavya
	case strings.Contains(e.bio(), "Navodaya"):
		return model.EraNavodaya
	default:
		return model.EraModern
	}
}

func poetEra(e Entry) string {
	if strings.Contains(e.bio(), "Navodaya") {
		return model.EraNavodaya
	}
	return model.EraModern
}

// workType classifies a prose work from its own genre label, falling back
// to its title and the author's genres.
func workType(p Piece, authorGenres []string) string {
	g := strings.ToLower(p.Genre)
	switch {
	case strings.Contains(g, "poem") || strings.Contains(g, "poetry"):
		return model.WorkTypePoetry
	case strings.Contains(g, "play") || strings.Contains(g, "drama"):
		return model.WorkTypePlay
	case strings.Contains(g, "short") || strings.Contains(g, "story"):
		return model.WorkTypeShortStory
	case strings.Contains(p.Title, "Play") || slices.Contains(authorGenres, "Drama"):
		return model.WorkTypePlay
	case slices.Contains(authorGenres, "Short Stories"):
		return model.WorkTypeShortStory
	default:
		return model.WorkTypeNovel
	}
}

// pieceGenres splits a work's own genre label on commas and slashes, or
// inherits the author's genres when the work has none.
func pieceGenres(p Piece, authorGenres []string) []string {
	if p.Genre == "" {
		return authorGenres
	}
	var out []string
	for _, part := range genreSeparators.Split(p.Genre, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func workFromPiece(authorID int64, a *author, p Piece) *model.Work {
	synopsis := p.ShortDescription
	if synopsis == "" {
		synopsis = fmt.Sprintf("A notable work by %s.", a.NameEnglish)
	}
	typ := workType(p, a.genres)
	return &model.Work{
		AuthorID:     authorID,
		TitleKannada: strings.TrimSpace(p.Title),
		TitleEnglish: strings.TrimSpace(p.Title),
		Synopsis:     &synopsis,
		Type:         &typ,
		Genres:       model.EncodeGenres(pieceGenres(p, a.genres)),
	}
}

func poemFromPiece(authorID int64, a *author, p Piece) *model.Work {
	synopsis := p.ShortDescription
	if synopsis == "" {
		synopsis = fmt.Sprintf("A famous poem by %s.", a.NameEnglish)
	}
	typ := model.WorkTypePoetry
	return &model.Work{
		AuthorID:     authorID,
		TitleKannada: strings.TrimSpace(p.Title),
		TitleEnglish: strings.TrimSpace(p.Title),
		Synopsis:     &synopsis,
		Type:         &typ,
		Genres:       model.EncodeGenres(pieceGenres(p, a.genres)),
	}
}

func getOrCreateAuthor(ctx context.Context, repo repository.AuthorRepository, a *model.Author) (int64, bool, error) {
	existing, err := repo.GetByEnglishName(ctx, a.NameEnglish)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return 0, false, err
	}
	if err := repo.Create(ctx, a); err != nil {
		return 0, false, err
	}
	return a.ID, true, nil
}

// createWorkIfMissing returns 1 when it inserted w and 0 when a work with
// the same English title already exists.
func createWorkIfMissing(ctx context.Context, repo repository.WorkRepository, w *model.Work) (int, error) {
	if w.TitleEnglish == "" {
		return 0, nil
	}
	_, err := repo.GetByEnglishTitle(ctx, w.TitleEnglish)
	if err == nil {
		return 0, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return 0, err
	}
	if err := repo.Create(ctx, w); err != nil {
		return 0, err
	}
	return 1, nil
}
