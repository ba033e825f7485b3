package metering

import (
	"context"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockSubscriberRepository struct {
	mock.Mock
}

func (m *mockSubscriberRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.Subscriber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscriber), args.Error(1)
}

func (m *mockSubscriberRepository) Save(ctx context.Context, subscriber *subscription.Subscriber) error {
	args := m.Called(ctx, subscriber)
	return args.Error(0)
}

func (m *mockSubscriberRepository) Update(ctx context.Context, subscriber *subscription.Subscriber) error {
	args := m.Called(ctx, subscriber)
	return args.Error(0)
}

func (m *mockSubscriberRepository) ResolveEffectiveSubscriber(ctx context.Context, userID uuid.UUID) (*subscription.Subscriber, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscriber), args.Error(1)
}

type mockUsageLedgerRepository struct {
	mock.Mock
}

func (m *mockUsageLedgerRepository) FindActive(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, at time.Time) (*metering.UsageRecord, error) {
	args := m.Called(ctx, subscriberID, featureType, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.UsageRecord), args.Error(1)
}

func (m *mockUsageLedgerRepository) FindActiveForUpdate(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, at time.Time) (*metering.UsageRecord, error) {
	args := m.Called(ctx, subscriberID, featureType, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.UsageRecord), args.Error(1)
}

func (m *mockUsageLedgerRepository) FindAllForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*metering.UsageRecord, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.UsageRecord), args.Error(1)
}

func (m *mockUsageLedgerRepository) FindAllForSubscriberForUpdate(ctx context.Context, subscriberID uuid.UUID) ([]*metering.UsageRecord, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.UsageRecord), args.Error(1)
}

func (m *mockUsageLedgerRepository) Save(ctx context.Context, record *metering.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockUsageLedgerRepository) Update(ctx context.Context, record *metering.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockUsageLedgerRepository) IncrementCount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUsageLedgerRepository) DecrementCount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUsageLedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUsageLedgerRepository) DeleteForSubscriber(ctx context.Context, subscriberID uuid.UUID) error {
	args := m.Called(ctx, subscriberID)
	return args.Error(0)
}

func (m *mockUsageLedgerRepository) ListSubscriberIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockPlanLimitRepository struct {
	mock.Mock
}

func (m *mockPlanLimitRepository) FindByPlan(ctx context.Context, planID string) ([]*metering.PlanLimit, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.PlanLimit), args.Error(1)
}

func (m *mockPlanLimitRepository) FindByPlanAndFeature(ctx context.Context, planID string, featureType metering.FeatureType) (*metering.PlanLimit, error) {
	args := m.Called(ctx, planID, featureType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.PlanLimit), args.Error(1)
}

func (m *mockPlanLimitRepository) SaveBatch(ctx context.Context, limits []*metering.PlanLimit) error {
	args := m.Called(ctx, limits)
	return args.Error(0)
}

type mockPlanTransitionRepository struct {
	mock.Mock
}

func (m *mockPlanTransitionRepository) Save(ctx context.Context, transition *metering.PlanTransition) error {
	args := m.Called(ctx, transition)
	return args.Error(0)
}

func (m *mockPlanTransitionRepository) FindBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*metering.PlanTransition, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.PlanTransition), args.Error(1)
}

func (m *mockPlanTransitionRepository) FindLatest(ctx context.Context, subscriberID uuid.UUID) (*metering.PlanTransition, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.PlanTransition), args.Error(1)
}

type mockCountSource struct {
	mock.Mock
}

func (m *mockCountSource) CountInPeriod(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, period metering.Period) (int64, error) {
	args := m.Called(ctx, subscriberID, featureType, period)
	return args.Get(0).(int64), args.Error(1)
}

type mockStatusCache struct {
	mock.Mock
}

func (m *mockStatusCache) GetStatus(ctx context.Context, subscriberID uuid.UUID) (*UsageStatusDTO, bool) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*UsageStatusDTO), args.Bool(1)
}

func (m *mockStatusCache) SetStatus(ctx context.Context, subscriberID uuid.UUID, status *UsageStatusDTO) {
	m.Called(ctx, subscriberID, status)
}

func (m *mockStatusCache) Invalidate(ctx context.Context, subscriberID uuid.UUID) {
	m.Called(ctx, subscriberID)
}

// stubScope runs the transaction function directly against a fixed
// repository bundle. Transactional semantics are covered by the
// persistence tests; here only the orchestration matters.
type stubScope struct {
	repos stubRepos
	err   error
}

func (s *stubScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(&s.repos)
}

type stubRepos struct {
	ledger      *mockUsageLedgerRepository
	limits      *mockPlanLimitRepository
	transitions *mockPlanTransitionRepository
	subscribers *mockSubscriberRepository
}

func (r *stubRepos) UsageLedger() metering.UsageLedgerRepository {
	return r.ledger
}

func (r *stubRepos) PlanLimits() metering.PlanLimitRepository {
	return r.limits
}

func (r *stubRepos) Transitions() metering.PlanTransitionRepository {
	return r.transitions
}

func (r *stubRepos) Subscribers() subscription.SubscriberRepository {
	return r.subscribers
}
