package checkouts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cartrescue/cartrescue-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&CheckoutRecord{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM checkout_records")
	})
	return db
}

func sampleSnapshot(totalCents int64) Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Items: []SnapshotItem{
			{ProductID: 1, Title: "Mug", Qty: 1, PriceCents: totalCents},
		},
		Totals: SnapshotTotals{SubtotalCents: totalCents, TotalCents: totalCents},
	}
}

func seedRecord(t *testing.T, repo *Repository, checkoutUUID string, userID int64, email string, touched time.Time) *CheckoutRecord {
	t.Helper()
	record := &CheckoutRecord{
		UserID:            userID,
		UserEmail:         email,
		CheckoutContents:  sampleSnapshot(1200),
		CheckoutUpdated:   touched,
		CheckoutUpdatedTS: touched.Unix(),
		CheckoutCreated:   touched,
		CheckoutCreatedTS: touched.Unix(),
		CheckoutUUID:      checkoutUUID,
	}
	require.NoError(t, repo.Upsert(context.Background(), record))
	return record
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, repo, "uuid-1", 0, "first@example.com", created)

	later := created.Add(2 * time.Hour)
	update := &CheckoutRecord{
		UserID:            42,
		UserEmail:         "second@example.com",
		CheckoutContents:  sampleSnapshot(3000),
		CheckoutUpdated:   later,
		CheckoutUpdatedTS: later.Unix(),
		CheckoutCreated:   later,
		CheckoutCreatedTS: later.Unix(),
		CheckoutUUID:      "uuid-1",
	}
	require.NoError(t, repo.Upsert(ctx, update))

	var count int64
	require.NoError(t, repo.db.Model(&CheckoutRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	reloaded, err := repo.FindByUUID(ctx, "uuid-1")
	require.NoError(t, err)
	assert.EqualValues(t, 42, reloaded.UserID)
	assert.Equal(t, "second@example.com", reloaded.UserEmail)
	assert.EqualValues(t, 3000, reloaded.CheckoutContents.Totals.TotalCents)
	assert.Equal(t, later.Unix(), reloaded.CheckoutUpdatedTS)
	// creation timestamps survive the refresh
	assert.Equal(t, created.Unix(), reloaded.CheckoutCreatedTS)
}

func TestDuplicateUUIDInsertIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	touched := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, repo, "uuid-1", 0, "first@example.com", touched)

	// a plain insert that bypasses the upsert must hit the unique index, not
	// silently replace the row
	dup := &CheckoutRecord{
		UserEmail:         "second@example.com",
		CheckoutContents:  sampleSnapshot(9900),
		CheckoutUpdated:   touched,
		CheckoutUpdatedTS: touched.Unix(),
		CheckoutCreated:   touched,
		CheckoutCreatedTS: touched.Unix(),
		CheckoutUUID:      "uuid-1",
	}
	err := repo.db.WithContext(ctx).Create(dup).Error
	require.Error(t, err)

	reloaded, err := repo.FindByUUID(ctx, "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", reloaded.UserEmail)

	var count int64
	require.NoError(t, repo.db.Model(&CheckoutRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindByUUIDMissing(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	_, err := repo.FindByUUID(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindUUIDByUserPrefersNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, repo, "uuid-old", 7, "buyer@example.com", base)
	seedRecord(t, repo, "uuid-new", 7, "buyer@example.com", base.Add(time.Hour))

	found, err := repo.FindUUIDByUser(ctx, 7, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uuid-new", found)

	// email-only lookup works for guests
	found, err = repo.FindUUIDByUser(ctx, 0, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uuid-new", found)

	found, err = repo.FindUUIDByUser(ctx, 0, "")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = repo.FindUUIDByUser(ctx, 999, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListOrdersNewestFirstAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedRecord(t, repo, fmt.Sprintf("uuid-%d", i), 0, "", base.Add(time.Duration(i)*time.Hour))
	}

	page, err := repo.List(ctx, pagination.Params{Page: 1, PerPage: 2}, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "uuid-4", page[0].CheckoutUUID)
	assert.Equal(t, "uuid-3", page[1].CheckoutUUID)

	page, err = repo.List(ctx, pagination.Params{Page: 3, PerPage: 2}, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "uuid-0", page[0].CheckoutUUID)
}

func TestListDateWindowIsInclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRecord(t, repo, "uuid-before", 0, "", base.Add(-time.Second))
	seedRecord(t, repo, "uuid-min", 0, "", base)
	seedRecord(t, repo, "uuid-max", 0, "", base.Add(time.Hour))
	seedRecord(t, repo, "uuid-after", 0, "", base.Add(time.Hour+time.Second))

	page, err := repo.List(ctx, pagination.Params{}, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "uuid-max", page[0].CheckoutUUID)
	assert.Equal(t, "uuid-min", page[1].CheckoutUUID)
}

func TestDeleteByUUID(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	seedRecord(t, repo, "uuid-1", 0, "", time.Now().UTC())
	require.NoError(t, repo.DeleteByUUID(ctx, "uuid-1"))
	_, err := repo.FindByUUID(ctx, "uuid-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// deleting an absent row is not an error
	require.NoError(t, repo.DeleteByUUID(ctx, "uuid-1"))
}

func TestDeleteExpiredCutoffIsInclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	seedRecord(t, repo, "uuid-stale", 0, "", cutoff.Add(-time.Hour))
	seedRecord(t, repo, "uuid-edge", 0, "", cutoff)
	seedRecord(t, repo, "uuid-fresh", 0, "", cutoff.Add(time.Second))

	deleted, err := repo.DeleteExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := repo.List(ctx, pagination.Params{}, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "uuid-fresh", remaining[0].CheckoutUUID)
}
