package metering

import (
	"context"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/subscription"
)

// TransactionalRepositories provides access to repositories within a transaction.
// All operations performed through these repositories are part of the same
// atomic transaction.
type TransactionalRepositories interface {
	// UsageLedger returns the usage ledger repository scoped to the transaction
	UsageLedger() metering.UsageLedgerRepository

	// PlanLimits returns the plan catalog repository scoped to the transaction
	PlanLimits() metering.PlanLimitRepository

	// Transitions returns the plan transition repository scoped to the transaction
	Transitions() metering.PlanTransitionRepository

	// Subscribers returns the subscriber repository scoped to the transaction
	Subscribers() subscription.SubscriberRepository
}

// TransactionScope provides a way to execute multiple repository operations
// atomically. Enforcement and plan transitions depend on it: the exclusive
// row holds taken inside the function live until Execute returns.
type TransactionScope interface {
	// Execute runs the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function returns nil, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
