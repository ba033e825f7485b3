package metering

import (
	"context"
	"errors"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reservation is the proof of admission handed to a caller after a
// successful check-and-increment. It is not persisted: the increment
// itself is the durable fact, and Release compensates it if the
// caller's own write fails.
type Reservation struct {
	Ref          uuid.UUID            `json:"ref"`
	SubscriberID uuid.UUID            `json:"subscriber_id"`
	FeatureType  metering.FeatureType `json:"feature_type"`
	Remaining    int64                `json:"remaining"`
	PeriodEnd    time.Time            `json:"period_end"`
}

// FeatureUsageDTO describes consumption of a single feature
type FeatureUsageDTO struct {
	FeatureType  string    `json:"feature_type"`
	DisplayName  string    `json:"display_name"`
	CurrentCount int64     `json:"current_count"`
	LimitCount   int64     `json:"limit_count"`
	Remaining    int64     `json:"remaining"`
	Percentage   float64   `json:"percentage"`
	Unlimited    bool      `json:"unlimited"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

// UsageStatusDTO is the full usage picture for a subscriber
type UsageStatusDTO struct {
	SubscriberID uuid.UUID                  `json:"subscriber_id"`
	PlanID       string                     `json:"plan_id"`
	PlanStatus   string                     `json:"plan_status"`
	Features     map[string]FeatureUsageDTO `json:"features"`
	GeneratedAt  time.Time                  `json:"generated_at"`
}

// StatusCache caches usage status snapshots. Implementations are best
// effort: a miss or a backend failure must degrade to a database read,
// never to a request failure.
type StatusCache interface {
	GetStatus(ctx context.Context, subscriberID uuid.UUID) (*UsageStatusDTO, bool)
	SetStatus(ctx context.Context, subscriberID uuid.UUID, status *UsageStatusDTO)
	Invalidate(ctx context.Context, subscriberID uuid.UUID)
}

// EnforcerService admits or denies metered actions. Admission is an
// atomic check-and-increment under an exclusive row hold, so concurrent
// requests for the same subscriber and feature serialize and the count
// can never overshoot the limit.
type EnforcerService struct {
	scope          TransactionScope
	subscriberRepo subscription.SubscriberRepository
	ledgerRepo     metering.UsageLedgerRepository
	planLimitRepo  metering.PlanLimitRepository
	cache          StatusCache
	fallback       metering.FallbackPolicy
	lockWait       time.Duration
	logger         *zap.Logger
}

// EnforcerServiceConfig contains configuration for EnforcerService
type EnforcerServiceConfig struct {
	// LockWait bounds how long an admission waits on the row hold before
	// giving up with a concurrency timeout
	LockWait time.Duration
}

// DefaultEnforcerServiceConfig returns default configuration
func DefaultEnforcerServiceConfig() EnforcerServiceConfig {
	return EnforcerServiceConfig{
		LockWait: 5 * time.Second,
	}
}

// NewEnforcerService creates a new EnforcerService. The cache may be nil.
func NewEnforcerService(
	scope TransactionScope,
	subscriberRepo subscription.SubscriberRepository,
	ledgerRepo metering.UsageLedgerRepository,
	planLimitRepo metering.PlanLimitRepository,
	cache StatusCache,
	config EnforcerServiceConfig,
	logger *zap.Logger,
) *EnforcerService {
	if config.LockWait <= 0 {
		config.LockWait = DefaultEnforcerServiceConfig().LockWait
	}
	return &EnforcerService{
		scope:          scope,
		subscriberRepo: subscriberRepo,
		ledgerRepo:     ledgerRepo,
		planLimitRepo:  planLimitRepo,
		cache:          cache,
		fallback:       metering.DefaultFallbackPolicy(),
		lockWait:       config.LockWait,
		logger:         logger,
	}
}

// CheckAndReserve admits one unit of the given feature for the acting
// user's effective subscriber. On success the counter has already been
// incremented; the returned reservation lets the caller compensate via
// Release if its own write fails afterwards.
//
// Denials come back as *metering.LimitExceededError. Contention beyond
// the configured wait comes back as *metering.ConcurrencyTimeoutError.
func (s *EnforcerService) CheckAndReserve(ctx context.Context, actingUserID uuid.UUID, featureType metering.FeatureType) (*Reservation, error) {
	if !featureType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE_TYPE", "Invalid feature type")
	}

	subscriber, err := s.subscriberRepo.ResolveEffectiveSubscriber(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if !subscriber.CanConsume() {
		return nil, shared.NewDomainError("SUBSCRIPTION_INACTIVE", "Subscription does not admit metered usage")
	}

	now := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	var reservation *Reservation
	err = s.scope.Execute(lockCtx, func(repos TransactionalRepositories) error {
		reservation, err = s.reserveLocked(lockCtx, repos, subscriber, featureType, now)
		return err
	})
	if err != nil {
		if errors.Is(lockCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &metering.ConcurrencyTimeoutError{
				SubscriberID: subscriber.ID,
				FeatureType:  featureType,
				Waited:       s.lockWait,
			}
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, subscriber.ID)
	}

	s.logger.Debug("usage reserved",
		zap.String("subscriber_id", subscriber.ID.String()),
		zap.String("feature_type", featureType.String()),
		zap.Int64("remaining", reservation.Remaining))

	return reservation, nil
}

// ReserveWithin performs the same admission as CheckAndReserve inside a
// transaction the caller already holds, so the caller's own write and
// the increment commit or roll back together. The caller owns the
// commit; it should invalidate any cached status for the subscriber
// after a successful one.
func (s *EnforcerService) ReserveWithin(ctx context.Context, repos TransactionalRepositories, actingUserID uuid.UUID, featureType metering.FeatureType) (*Reservation, error) {
	if !featureType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE_TYPE", "Invalid feature type")
	}

	subscriber, err := repos.Subscribers().ResolveEffectiveSubscriber(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if !subscriber.CanConsume() {
		return nil, shared.NewDomainError("SUBSCRIPTION_INACTIVE", "Subscription does not admit metered usage")
	}

	return s.reserveLocked(ctx, repos, subscriber, featureType, time.Now())
}

// reserveLocked is the admission core shared by CheckAndReserve and
// ReserveWithin. It must run inside a transaction.
func (s *EnforcerService) reserveLocked(ctx context.Context, repos TransactionalRepositories, subscriber *subscription.Subscriber, featureType metering.FeatureType, now time.Time) (*Reservation, error) {
	record, err := s.activeRecordForUpdate(ctx, repos, subscriber, featureType, now)
	if err != nil {
		return nil, err
	}

	if !record.CanReserve() {
		return nil, metering.NewLimitExceededError(featureType, record.CurrentCount, record.LimitCount, record.PeriodEnd)
	}

	if err := repos.UsageLedger().IncrementCount(ctx, record.ID); err != nil {
		return nil, err
	}
	record.CurrentCount++

	return &Reservation{
		Ref:          uuid.New(),
		SubscriberID: subscriber.ID,
		FeatureType:  featureType,
		Remaining:    record.Remaining(),
		PeriodEnd:    record.PeriodEnd,
	}, nil
}

// Release compensates a prior reservation after the caller's write
// failed. The decrement is bounded at zero, which makes a duplicate
// release across a period boundary harmless.
func (s *EnforcerService) Release(ctx context.Context, actingUserID uuid.UUID, featureType metering.FeatureType, ref uuid.UUID) error {
	if !featureType.IsValid() {
		return shared.NewDomainError("INVALID_FEATURE_TYPE", "Invalid feature type")
	}

	subscriber, err := s.subscriberRepo.ResolveEffectiveSubscriber(ctx, actingUserID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.UsageLedger().FindActiveForUpdate(ctx, subscriber.ID, featureType, now)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Reservation was made in a period that has since rolled
				// over; nothing to give back.
				return nil
			}
			return err
		}
		return repos.UsageLedger().DecrementCount(ctx, record.ID)
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, subscriber.ID)
	}

	s.logger.Debug("usage released",
		zap.String("subscriber_id", subscriber.ID.String()),
		zap.String("feature_type", featureType.String()),
		zap.String("reservation_ref", ref.String()))

	return nil
}

// GetUsageStatus returns the current usage picture for the acting
// user's effective subscriber. Features without an active ledger row
// are reported from the plan catalog with a zero count; the read never
// creates rows.
func (s *EnforcerService) GetUsageStatus(ctx context.Context, actingUserID uuid.UUID) (*UsageStatusDTO, error) {
	subscriber, err := s.subscriberRepo.ResolveEffectiveSubscriber(ctx, actingUserID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetStatus(ctx, subscriber.ID); ok {
			return cached, nil
		}
	}

	now := time.Now()
	records, err := s.ledgerRepo.FindAllForSubscriber(ctx, subscriber.ID)
	if err != nil {
		return nil, err
	}

	active := make(map[metering.FeatureType]*metering.UsageRecord)
	for _, record := range records {
		if !record.IsExpiredAt(now) {
			active[record.FeatureType] = record
		}
	}

	status := &UsageStatusDTO{
		SubscriberID: subscriber.ID,
		PlanID:       subscriber.PlanID,
		PlanStatus:   string(subscriber.Status),
		Features:     make(map[string]FeatureUsageDTO),
		GeneratedAt:  now,
	}

	for _, featureType := range metering.AllFeatureTypes() {
		if record, ok := active[featureType]; ok {
			status.Features[featureType.String()] = FeatureUsageDTO{
				FeatureType:  featureType.String(),
				DisplayName:  featureType.DisplayName(),
				CurrentCount: record.CurrentCount,
				LimitCount:   record.LimitCount,
				Remaining:    record.Remaining(),
				Percentage:   record.UsagePercent(),
				Unlimited:    record.IsUnlimited(),
				PeriodStart:  record.PeriodStart,
				PeriodEnd:    record.PeriodEnd,
			}
			continue
		}

		limit := s.resolveLimit(ctx, s.planLimitRepo, subscriber.PlanID, featureType)
		period := metering.ResolvePeriod(limit.PeriodType, now)
		remaining := limit.LimitCount
		if limit.IsUnlimited() {
			remaining = metering.UnlimitedLimit
		}
		status.Features[featureType.String()] = FeatureUsageDTO{
			FeatureType: featureType.String(),
			DisplayName: featureType.DisplayName(),
			LimitCount:  limit.LimitCount,
			Remaining:   remaining,
			Unlimited:   limit.IsUnlimited(),
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
		}
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, subscriber.ID, status)
	}

	return status, nil
}

// activeRecordForUpdate loads the current-period ledger row under an
// exclusive hold, creating it from the plan catalog on first use in a
// period.
func (s *EnforcerService) activeRecordForUpdate(
	ctx context.Context,
	repos TransactionalRepositories,
	subscriber *subscription.Subscriber,
	featureType metering.FeatureType,
	now time.Time,
) (*metering.UsageRecord, error) {
	record, err := repos.UsageLedger().FindActiveForUpdate(ctx, subscriber.ID, featureType, now)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	// The first row of a period pins the limit and the period window, and
	// a plan transition may have committed after the caller resolved the
	// subscriber. Re-read the plan inside this transaction so the new row
	// cannot be created under a superseded plan.
	current, err := repos.Subscribers().FindByID(ctx, subscriber.ID)
	if err != nil {
		return nil, err
	}

	limit := s.resolveLimit(ctx, repos.PlanLimits(), current.PlanID, featureType)
	period := metering.ResolvePeriod(limit.PeriodType, now)

	record, err = metering.NewUsageRecord(subscriber.ID, featureType, limit.LimitCount, period)
	if err != nil {
		return nil, err
	}
	if err := repos.UsageLedger().Save(ctx, record); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Another transaction created the row between our lookup and
			// the insert; load it under the hold and proceed.
			return repos.UsageLedger().FindActiveForUpdate(ctx, subscriber.ID, featureType, now)
		}
		return nil, err
	}
	return record, nil
}

// resolveLimit reads the plan catalog, applying the documented fallback
// when no row covers the (plan, feature) pair.
func (s *EnforcerService) resolveLimit(ctx context.Context, repo metering.PlanLimitRepository, planID string, featureType metering.FeatureType) *metering.PlanLimit {
	limit, err := repo.FindByPlanAndFeature(ctx, planID, featureType)
	if err == nil {
		return limit
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("plan catalog lookup failed, applying fallback",
			zap.String("plan_id", planID),
			zap.String("feature_type", featureType.String()),
			zap.Error(err))
	} else {
		s.logger.Warn("no plan limit configured, applying fallback",
			zap.String("plan_id", planID),
			zap.String("feature_type", featureType.String()),
			zap.Int64("fallback_limit", s.fallback.LimitCount))
	}
	return s.fallback.Fallback(planID, featureType)
}
