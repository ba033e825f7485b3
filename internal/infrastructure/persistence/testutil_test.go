package persistence

import (
	"testing"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory sqlite database with all tables
// migrated. The pool is capped at one connection so concurrent
// transactions serialize the way row locks do on postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&PlanLimitModel{},
		&UsageRecordModel{},
		&PlanTransitionModel{},
		&SubscriberModel{},
		&TeamMemberModel{},
		&InvoiceModel{},
		&ExpenseModel{},
		&SaleModel{},
		&ProductModel{},
	))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRecord(t *testing.T, subscriberID uuid.UUID, featureType metering.FeatureType, limit int64) *metering.UsageRecord {
	t.Helper()
	period := metering.ResolvePeriod(metering.PeriodTypeMonthly, time.Now())
	record, err := metering.NewUsageRecord(subscriberID, featureType, limit, period)
	require.NoError(t, err)
	return record
}
