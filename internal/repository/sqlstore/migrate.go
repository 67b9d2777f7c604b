package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

func newMigrationProvider(db *sql.DB, d *dialect) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrations, path.Join("migrations", d.name))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: locating %s migrations: %w", d.name, err)
	}
	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: creating migration provider: %w", err)
	}
	return provider, nil
}

// migrateUp applies every pending migration. Already-applied versions are
// recorded in goose's version table and skipped.
func migrateUp(ctx context.Context, db *sql.DB, d *dialect) error {
	provider, err := newMigrationProvider(db, d)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("sqlstore: running %s migrations: %w", d.name, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	provider, err := newMigrationProvider(s.db, s.d)
	if err != nil {
		return 0, err
	}
	v, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: reading schema version: %w", err)
	}
	return v, nil
}
