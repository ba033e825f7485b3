package metering

import (
	"context"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionInput contains input for a plan transition
type TransitionInput struct {
	SubscriberID uuid.UUID
	ToPlanID     string
	CountPolicy  metering.CountPolicy
	Proration    metering.ProrationDetails
	Reason       string
}

// TransitionService is the single writer of plan changes. Retiring the
// old ledger rows, provisioning the new ones, appending the audit
// record and updating the subscriber happen in one transaction, so a
// concurrent reservation either lands fully before the transition or
// fully after it.
type TransitionService struct {
	scope  TransactionScope
	cache  StatusCache
	logger *zap.Logger
}

// NewTransitionService creates a new TransitionService. The cache may be nil.
func NewTransitionService(scope TransactionScope, cache StatusCache, logger *zap.Logger) *TransitionService {
	return &TransitionService{
		scope:  scope,
		cache:  cache,
		logger: logger,
	}
}

// ChangePlan moves a subscriber to a new plan. The count policy decides
// whether existing usage carries over (capped at the new limits) or
// resets to zero.
func (s *TransitionService) ChangePlan(ctx context.Context, input TransitionInput) (*metering.PlanTransition, error) {
	if input.ToPlanID == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Target plan ID cannot be empty")
	}
	if !input.CountPolicy.IsValid() {
		return nil, shared.NewDomainError("INVALID_COUNT_POLICY", "Invalid count policy")
	}

	now := time.Now()
	var transition *metering.PlanTransition

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		subscriber, err := repos.Subscribers().FindByID(ctx, input.SubscriberID)
		if err != nil {
			return err
		}
		fromPlanID := subscriber.PlanID

		// The broad hold keeps reservations out until the swap commits
		oldRecords, err := repos.UsageLedger().FindAllForSubscriberForUpdate(ctx, subscriber.ID)
		if err != nil {
			return err
		}

		oldCounts := make(map[metering.FeatureType]int64)
		for _, record := range oldRecords {
			if !record.IsExpiredAt(now) {
				oldCounts[record.FeatureType] = record.CurrentCount
			}
		}

		if err := repos.UsageLedger().DeleteForSubscriber(ctx, subscriber.ID); err != nil {
			return err
		}

		for _, featureType := range metering.AllFeatureTypes() {
			limit := s.resolveLimit(ctx, repos.PlanLimits(), input.ToPlanID, featureType)
			period := metering.ResolvePeriod(limit.PeriodType, now)

			record, err := metering.NewUsageRecord(subscriber.ID, featureType, limit.LimitCount, period)
			if err != nil {
				return err
			}
			if input.CountPolicy == metering.CountPolicyPreserve {
				record.CurrentCount = preservedCount(oldCounts[featureType], limit.LimitCount)
			}
			if err := repos.UsageLedger().Save(ctx, record); err != nil {
				return err
			}
		}

		transition, err = metering.NewPlanTransition(subscriber.ID, fromPlanID, input.ToPlanID, input.CountPolicy, input.Proration)
		if err != nil {
			return err
		}
		transition.WithReason(input.Reason)
		if err := repos.Transitions().Save(ctx, transition); err != nil {
			return err
		}

		if err := subscriber.ChangePlan(input.ToPlanID, now); err != nil {
			return err
		}
		return repos.Subscribers().Update(ctx, subscriber)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, input.SubscriberID)
	}

	s.logger.Info("plan transition applied",
		zap.String("subscriber_id", input.SubscriberID.String()),
		zap.String("from_plan", transition.FromPlanID),
		zap.String("to_plan", transition.ToPlanID),
		zap.String("count_policy", string(transition.CountPolicy)),
		zap.String("reason", transition.Reason))

	return transition, nil
}

// ExpireTrial downgrades a subscriber whose trial ran out to the free
// plan, preserving counts so expiry cannot be used to reset usage.
func (s *TransitionService) ExpireTrial(ctx context.Context, subscriberID uuid.UUID) (*metering.PlanTransition, error) {
	return s.ChangePlan(ctx, TransitionInput{
		SubscriberID: subscriberID,
		ToPlanID:     subscription.PlanFree,
		CountPolicy:  metering.CountPolicyPreserve,
		Reason:       "trial_expired",
	})
}

// GetHistory returns the transition audit trail for a subscriber,
// newest first.
func (s *TransitionService) GetHistory(ctx context.Context, subscriberID uuid.UUID) ([]*metering.PlanTransition, error) {
	var transitions []*metering.PlanTransition
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		transitions, err = repos.Transitions().FindBySubscriber(ctx, subscriberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transitions, nil
}

func (s *TransitionService) resolveLimit(ctx context.Context, repo metering.PlanLimitRepository, planID string, featureType metering.FeatureType) *metering.PlanLimit {
	limit, err := repo.FindByPlanAndFeature(ctx, planID, featureType)
	if err == nil {
		return limit
	}
	s.logger.Warn("no plan limit configured, applying fallback",
		zap.String("plan_id", planID),
		zap.String("feature_type", featureType.String()),
		zap.Error(err))
	return metering.DefaultFallbackPolicy().Fallback(planID, featureType)
}

// preservedCount carries an old counter into a new record, capped at
// the new limit. Unlimited targets carry the count unchanged.
func preservedCount(oldCount, newLimit int64) int64 {
	if newLimit == metering.UnlimitedLimit {
		return oldCount
	}
	if oldCount > newLimit {
		return newLimit
	}
	return oldCount
}
