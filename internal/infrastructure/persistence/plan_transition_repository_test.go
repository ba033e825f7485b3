package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTransitionRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanTransitionRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	transition, err := metering.NewPlanTransition(subscriberID, "free", "pro", metering.CountPolicyReset, metering.ProrationDetails{
		CreditAmount: decimal.NewFromFloat(3.50),
		ChargeAmount: decimal.NewFromFloat(12.00),
		Currency:     "USD",
		Note:         "mid-period upgrade",
	})
	require.NoError(t, err)
	transition.WithReason("upgrade")
	require.NoError(t, repo.Save(ctx, transition))

	found, err := repo.FindBySubscriber(ctx, subscriberID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "pro", found[0].ToPlanID)
	assert.Equal(t, "upgrade", found[0].Reason)
	assert.True(t, decimal.NewFromFloat(8.50).Equal(found[0].Proration.NetAmount()))
}

func TestPlanTransitionRepository_FindBySubscriber_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanTransitionRepository(db)
	ctx := context.Background()
	subscriberID := uuid.New()

	older, err := metering.NewPlanTransition(subscriberID, "free", "basic", metering.CountPolicyReset, metering.ProrationDetails{})
	require.NoError(t, err)
	older.OccurredAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, older))

	newer, err := metering.NewPlanTransition(subscriberID, "basic", "pro", metering.CountPolicyPreserve, metering.ProrationDetails{})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, newer))

	found, err := repo.FindBySubscriber(ctx, subscriberID)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "pro", found[0].ToPlanID)
	assert.Equal(t, "basic", found[1].ToPlanID)

	latest, err := repo.FindLatest(ctx, subscriberID)
	require.NoError(t, err)
	assert.Equal(t, "pro", latest.ToPlanID)
}

func TestPlanTransitionRepository_FindLatest_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanTransitionRepository(db)

	_, err := repo.FindLatest(context.Background(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}
