package local

import (
	"context"
	"embed"
	"io/fs"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the SQL migrations for the provider tables, laid out
// the way bun's migrate.Discover expects.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Models lists every table this package owns, in creation order.
func Models() []any {
	return []any{
		(*User)(nil),
		(*AuthSession)(nil),
		(*OneTimeToken)(nil),
		(*EmailChange)(nil),
		(*SocialAccountModel)(nil),
	}
}

// Migrate applies the provider migrations that have not run yet. It is safe
// to call on every start.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(MigrationsFS()); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to load provider migrations")
	}

	migrator := migrate.NewMigrator(db, migrations, migrate.WithMarkAppliedOnSuccess(true))
	if err := migrator.Init(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to init migrations table")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		meta := map[string]any{}
		if group != nil {
			meta["group"] = group.String()
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to migrate provider tables").
			WithMetadata(meta)
	}
	return nil
}
