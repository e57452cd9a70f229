package local_test

import (
	"context"
	"io/fs"
	"testing"

	"github.com/amami1625/pondana-sub000/provider/local"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsRepeatable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, local.Migrate(ctx, db))
	require.NoError(t, local.Migrate(ctx, db))

	var tables []string
	err := db.NewSelect().
		Table("sqlite_master").
		Column("name").
		Where("type = ?", "table").
		Where("name IN (?)", []string{"users", "auth_sessions", "one_time_tokens", "email_changes", "social_accounts"}).
		Scan(ctx, &tables)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "auth_sessions", "one_time_tokens", "email_changes", "social_accounts"}, tables)

	applied, err := db.NewSelect().Table("bun_migrations").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestMigrateEnforcesUniqueColumns(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, local.Migrate(ctx, db))

	first := &local.User{ID: uuid.New(), Email: "reader@example.com"}
	_, err := db.NewInsert().Model(first).Exec(ctx)
	require.NoError(t, err)

	dup := &local.User{ID: uuid.New(), Email: "reader@example.com"}
	_, err = db.NewInsert().Model(dup).Exec(ctx)
	assert.Error(t, err)

	link := func(providerUID string) error {
		_, err := db.NewInsert().Model(&local.SocialAccountModel{
			ID:             uuid.New(),
			UserID:         first.ID,
			Provider:       "google",
			ProviderUserID: providerUID,
		}).Exec(ctx)
		return err
	}
	require.NoError(t, link("g-1"))
	assert.Error(t, link("g-1"))
}

func TestMigrationsFSListsUpAndDown(t *testing.T) {
	entries, err := fs.Glob(local.MigrationsFS(), "*.sql")
	require.NoError(t, err)
	assert.Contains(t, entries, "20250101000000_auth_tables.tx.up.sql")
	assert.Contains(t, entries, "20250101000000_auth_tables.tx.down.sql")
}
