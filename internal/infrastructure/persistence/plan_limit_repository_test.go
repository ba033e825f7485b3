package persistence

import (
	"context"
	"testing"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanLimitRepository_SaveBatchAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanLimitRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, metering.DefaultPlanLimits()))

	limits, err := repo.FindByPlan(ctx, "free")
	require.NoError(t, err)
	assert.Len(t, limits, 4)

	limit, err := repo.FindByPlanAndFeature(ctx, "free", metering.FeatureTypeProducts)
	require.NoError(t, err)
	assert.Equal(t, int64(50), limit.LimitCount)
	assert.Equal(t, metering.PeriodTypeWeekly, limit.PeriodType)
}

func TestPlanLimitRepository_SaveBatch_UpsertsOnReseed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanLimitRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, metering.DefaultPlanLimits()))
	require.NoError(t, repo.SaveBatch(ctx, metering.DefaultPlanLimits()), "reseeding is idempotent")

	limits, err := repo.FindByPlan(ctx, "basic")
	require.NoError(t, err)
	assert.Len(t, limits, 4, "no duplicate rows")
}

func TestPlanLimitRepository_FindByPlanAndFeature_DuplicatePairIsDeterministic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanLimitRepository(db)
	ctx := context.Background()

	// The unique key is (plan, feature, period), so the same pair can be
	// seeded at two period types. The lookup must always pick the same row.
	monthly, err := metering.NewPlanLimit("legacy", metering.FeatureTypeInvoices, metering.PeriodTypeMonthly, 450)
	require.NoError(t, err)
	yearly, err := metering.NewPlanLimit("legacy", metering.FeatureTypeInvoices, metering.PeriodTypeYearly, 5400)
	require.NoError(t, err)
	require.NoError(t, repo.SaveBatch(ctx, []*metering.PlanLimit{yearly, monthly}))

	for i := 0; i < 5; i++ {
		limit, err := repo.FindByPlanAndFeature(ctx, "legacy", metering.FeatureTypeInvoices)
		require.NoError(t, err)
		assert.Equal(t, metering.PeriodTypeMonthly, limit.PeriodType)
		assert.Equal(t, int64(450), limit.LimitCount)
	}
}

func TestPlanLimitRepository_FindByPlanAndFeature_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanLimitRepository(db)

	_, err := repo.FindByPlanAndFeature(context.Background(), "nonexistent", metering.FeatureTypeInvoices)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPlanLimitRepository_SaveBatch_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanLimitRepository(db)

	assert.NoError(t, repo.SaveBatch(context.Background(), nil))
}
