package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageLedgerRepository_SaveAndFindActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	record := newTestRecord(t, subscriberID, metering.FeatureTypeInvoices, 450)
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindActive(ctx, subscriberID, metering.FeatureTypeInvoices, time.Now())
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, int64(0), found.CurrentCount)
	assert.Equal(t, int64(450), found.LimitCount)
	assert.Equal(t, metering.SyncStatusSynced, found.SyncStatus)
}

func TestUsageLedgerRepository_FindActive_PeriodBoundaries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	period := metering.Period{
		Start: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	record, err := metering.NewUsageRecord(subscriberID, metering.FeatureTypeSales, 100, period)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, record))

	_, err = repo.FindActive(ctx, subscriberID, metering.FeatureTypeSales, period.Start)
	assert.NoError(t, err, "period start is inclusive")

	_, err = repo.FindActive(ctx, subscriberID, metering.FeatureTypeSales, period.End)
	assert.ErrorIs(t, err, shared.ErrNotFound, "period end is exclusive")

	_, err = repo.FindActive(ctx, subscriberID, metering.FeatureTypeSales, period.Start.Add(-time.Second))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUsageLedgerRepository_Save_DuplicatePeriodRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	first := newTestRecord(t, subscriberID, metering.FeatureTypeInvoices, 450)
	require.NoError(t, repo.Save(ctx, first))

	duplicate, err := metering.NewUsageRecord(subscriberID, metering.FeatureTypeInvoices, 450, first.Period())
	require.NoError(t, err)

	err = repo.Save(ctx, duplicate)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestUsageLedgerRepository_IncrementAndDecrement(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	record := newTestRecord(t, subscriberID, metering.FeatureTypeExpenses, 10)
	require.NoError(t, repo.Save(ctx, record))

	require.NoError(t, repo.IncrementCount(ctx, record.ID))
	require.NoError(t, repo.IncrementCount(ctx, record.ID))

	found, err := repo.FindActive(ctx, subscriberID, metering.FeatureTypeExpenses, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.CurrentCount)

	require.NoError(t, repo.DecrementCount(ctx, record.ID))
	found, err = repo.FindActive(ctx, subscriberID, metering.FeatureTypeExpenses, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.CurrentCount)
}

func TestUsageLedgerRepository_DecrementBoundedAtZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	record := newTestRecord(t, subscriberID, metering.FeatureTypeExpenses, 10)
	require.NoError(t, repo.Save(ctx, record))

	require.NoError(t, repo.DecrementCount(ctx, record.ID))
	require.NoError(t, repo.DecrementCount(ctx, record.ID), "repeat release is a no-op")

	found, err := repo.FindActive(ctx, subscriberID, metering.FeatureTypeExpenses, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), found.CurrentCount)
}

func TestUsageLedgerRepository_IncrementMissingRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)

	err := repo.IncrementCount(context.Background(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUsageLedgerRepository_Update_RoundTripsSyncFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	record := newTestRecord(t, subscriberID, metering.FeatureTypeInvoices, 450)
	require.NoError(t, repo.Save(ctx, record))

	record.ApplyCorrection(7, time.Now())
	require.NoError(t, repo.Update(ctx, record))

	found, err := repo.FindActive(ctx, subscriberID, metering.FeatureTypeInvoices, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(7), found.CurrentCount)
	assert.Equal(t, metering.SyncStatusSynced, found.SyncStatus)
	assert.Equal(t, int64(1), found.DiscrepancyCount)
	assert.NotNil(t, found.LastSyncedAt)
}

func TestUsageLedgerRepository_DeleteForSubscriber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	keep := uuid.New()
	drop := uuid.New()

	require.NoError(t, repo.Save(ctx, newTestRecord(t, keep, metering.FeatureTypeInvoices, 450)))
	require.NoError(t, repo.Save(ctx, newTestRecord(t, drop, metering.FeatureTypeInvoices, 450)))
	require.NoError(t, repo.Save(ctx, newTestRecord(t, drop, metering.FeatureTypeSales, 450)))

	require.NoError(t, repo.DeleteForSubscriber(ctx, drop))

	remaining, err := repo.FindAllForSubscriber(ctx, drop)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	kept, err := repo.FindAllForSubscriber(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestUsageLedgerRepository_ListSubscriberIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageLedgerRepository(db)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	require.NoError(t, repo.Save(ctx, newTestRecord(t, first, metering.FeatureTypeInvoices, 450)))
	require.NoError(t, repo.Save(ctx, newTestRecord(t, first, metering.FeatureTypeSales, 450)))
	require.NoError(t, repo.Save(ctx, newTestRecord(t, second, metering.FeatureTypeInvoices, 450)))

	ids, err := repo.ListSubscriberIDs(ctx)

	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
}
