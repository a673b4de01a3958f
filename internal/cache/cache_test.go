package cache

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstall/marketfeed/internal/common"
	"github.com/openstall/marketfeed/internal/market"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))
}

func testSnapshot() market.Snapshot {
	return market.Snapshot{
		Vendors: []*market.Vendor{
			{
				PubKey:    "pub1",
				Name:      "Corner Store",
				About:     "groceries",
				Picture:   "https://example.com/p.png",
				Ordering:  &market.Ordering{IDs: []string{"s2", "s1"}, UpdatedAt: 40},
				UpdatedAt: 50,
				Sections: []*market.Section{
					{
						PubKey:      "pub1",
						ID:          "s2",
						Name:        "Dairy",
						Description: "milk and cheese",
						Currency:    "EUR",
						Draft:       true,
						UpdatedAt:   30,
						Ordering:    &market.Ordering{IDs: []string{"i1"}, UpdatedAt: 31},
						Items: []*market.Item{
							{
								PubKey:    "pub1",
								ID:        "i1",
								SectionID: "s2",
								Name:      "Milk",
								Images:    []string{"https://example.com/milk.png"},
								Price:     1.5,
								Currency:  "EUR",
								UpdatedAt: 20,
							},
						},
					},
					{
						PubKey:    "pub1",
						ID:        "s1",
						Name:      "Bakery",
						Currency:  "EUR",
						UpdatedAt: 10,
						Items:     []*market.Item{},
					},
				},
			},
			{
				PubKey:    "pub2",
				Name:      "Workshop",
				UpdatedAt: 5,
				Sections:  []*market.Section{},
			},
		},
	}
}

func TestSnapshotRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSnapshotRepository(openTestDB(t))

	want := testSnapshot()
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Vendors, got.Vendors)
}

func TestSnapshotRepositoryLoadEmpty(t *testing.T) {
	repo := NewSQLiteSnapshotRepository(openTestDB(t))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Vendors)
}

func TestSnapshotRepositorySaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSnapshotRepository(openTestDB(t))

	require.NoError(t, repo.Save(ctx, testSnapshot()))

	want := market.Snapshot{Vendors: []*market.Vendor{{
		PubKey:    "pub3",
		Name:      "Fresh Start",
		UpdatedAt: nostr.Timestamp(60),
		Sections:  []*market.Section{},
	}}}
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Vendors, got.Vendors)
}

func TestKeyringUnlockInitializesAndVerifies(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	repo := NewSQLiteKeyringRepository(db)
	require.NoError(t, repo.Unlock(ctx, []byte("correct horse")))

	reopened := NewSQLiteKeyringRepository(db)
	require.NoError(t, reopened.Unlock(ctx, []byte("correct horse")))

	wrong := NewSQLiteKeyringRepository(db)
	err := wrong.Unlock(ctx, []byte("battery staple"))
	assert.ErrorIs(t, err, common.ErrInvalidPassphrase)
}

func TestKeyringPutGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteKeyringRepository(openTestDB(t))
	require.NoError(t, repo.Unlock(ctx, []byte("pass")))

	require.NoError(t, repo.Put(ctx, "pub1", "sk1"))
	require.NoError(t, repo.Put(ctx, "pub1", "sk1-rotated"))

	got, err := repo.Get(ctx, "pub1")
	require.NoError(t, err)
	assert.Equal(t, "sk1-rotated", got)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestKeyringAllAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteKeyringRepository(openTestDB(t))
	require.NoError(t, repo.Unlock(ctx, []byte("pass")))

	require.NoError(t, repo.Put(ctx, "pub1", "sk1"))
	require.NoError(t, repo.Put(ctx, "pub2", "sk2"))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pub1": "sk1", "pub2": "sk2"}, all)

	require.NoError(t, repo.Delete(ctx, "pub1"))
	require.NoError(t, repo.Delete(ctx, "pub1"))

	all, err = repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pub2": "sk2"}, all)
}

func TestKeyringLockedRejectsAccess(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteKeyringRepository(openTestDB(t))

	assert.ErrorIs(t, repo.Put(ctx, "pub1", "sk1"), common.ErrInvalidPassphrase)
	_, err := repo.Get(ctx, "pub1")
	assert.ErrorIs(t, err, common.ErrInvalidPassphrase)
	_, err = repo.All(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidPassphrase)
}
