package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanLimitRepository defines read access to the plan catalog.
// The catalog is reference data: rows are seeded by migrations and
// never mutated at runtime.
type PlanLimitRepository interface {
	// FindByPlan retrieves all limits configured for a plan
	FindByPlan(ctx context.Context, planID string) ([]*PlanLimit, error)

	// FindByPlanAndFeature retrieves the limit for a (plan, feature) pair.
	// Returns shared.ErrNotFound when no row matches; the caller resolves
	// the gap through the fallback policy.
	FindByPlanAndFeature(ctx context.Context, planID string, featureType FeatureType) (*PlanLimit, error)

	// SaveBatch seeds catalog rows. Used by migrations and tests only.
	SaveBatch(ctx context.Context, limits []*PlanLimit) error
}

// UsageLedgerRepository defines the interface for persisting and querying
// usage records. Mutating methods that participate in enforcement are
// meant to run inside a transaction scope so the row hold spans the whole
// check-and-increment step.
type UsageLedgerRepository interface {
	// FindActive retrieves the record for (subscriber, feature) whose
	// period contains the given instant
	FindActive(ctx context.Context, subscriberID uuid.UUID, featureType FeatureType, at time.Time) (*UsageRecord, error)

	// FindActiveForUpdate is FindActive under an exclusive row hold.
	// Only meaningful inside a transaction.
	FindActiveForUpdate(ctx context.Context, subscriberID uuid.UUID, featureType FeatureType, at time.Time) (*UsageRecord, error)

	// FindAllForSubscriber retrieves every record for a subscriber
	FindAllForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*UsageRecord, error)

	// FindAllForSubscriberForUpdate takes the broad hold used by plan
	// transitions so no reservation lands on a row about to be retired
	FindAllForSubscriberForUpdate(ctx context.Context, subscriberID uuid.UUID) ([]*UsageRecord, error)

	// Save persists a new usage record
	Save(ctx context.Context, record *UsageRecord) error

	// Update persists changes to an existing record
	Update(ctx context.Context, record *UsageRecord) error

	// IncrementCount adds one to the counter of the given record
	IncrementCount(ctx context.Context, id uuid.UUID) error

	// DecrementCount subtracts one from the counter, bounded at zero
	DecrementCount(ctx context.Context, id uuid.UUID) error

	// Delete retires a single record
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteForSubscriber retires all records of a subscriber
	DeleteForSubscriber(ctx context.Context, subscriberID uuid.UUID) error

	// ListSubscriberIDs returns the distinct subscribers holding records,
	// used by batch reconciliation
	ListSubscriberIDs(ctx context.Context) ([]uuid.UUID, error)
}

// PlanTransitionRepository defines the append-only audit store for
// plan transitions.
type PlanTransitionRepository interface {
	// Save appends a transition record
	Save(ctx context.Context, transition *PlanTransition) error

	// FindBySubscriber retrieves transitions for a subscriber, newest first
	FindBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*PlanTransition, error)

	// FindLatest retrieves the most recent transition for a subscriber
	FindLatest(ctx context.Context, subscriberID uuid.UUID) (*PlanTransition, error)
}

// AuthoritativeCountSource reports the true number of metered records a
// subscriber created within a window. Implemented by the CRUD layer's
// persistence; the reconciliation service is read-only with respect to
// the underlying business records.
type AuthoritativeCountSource interface {
	CountInPeriod(ctx context.Context, subscriberID uuid.UUID, featureType FeatureType, period Period) (int64, error)
}
