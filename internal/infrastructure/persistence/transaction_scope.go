package persistence

import (
	"context"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/subscription"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appmetering.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// UsageLedger returns the usage ledger repository scoped to the current transaction
func (r *gormTransactionalRepositories) UsageLedger() metering.UsageLedgerRepository {
	return NewGormUsageLedgerRepository(r.tx)
}

// PlanLimits returns the plan catalog repository scoped to the current transaction
func (r *gormTransactionalRepositories) PlanLimits() metering.PlanLimitRepository {
	return NewGormPlanLimitRepository(r.tx)
}

// Transitions returns the plan transition repository scoped to the current transaction
func (r *gormTransactionalRepositories) Transitions() metering.PlanTransitionRepository {
	return NewGormPlanTransitionRepository(r.tx)
}

// Subscribers returns the subscriber repository scoped to the current transaction
func (r *gormTransactionalRepositories) Subscribers() subscription.SubscriberRepository {
	return NewGormSubscriberRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appmetering.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appmetering.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
