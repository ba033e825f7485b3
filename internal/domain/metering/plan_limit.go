package metering

import (
	"github.com/bizledger/backend/internal/domain/shared"
)

// UnlimitedLimit marks a plan limit with no cap.
const UnlimitedLimit int64 = -1

// PlanLimit maps (plan, feature, period type) to a maximum count.
// Plan limits are immutable reference data, read-only at runtime.
type PlanLimit struct {
	shared.BaseEntity
	PlanID      string
	FeatureType FeatureType
	PeriodType  PeriodType
	LimitCount  int64
}

// NewPlanLimit creates a plan limit with validation
func NewPlanLimit(planID string, featureType FeatureType, periodType PeriodType, limitCount int64) (*PlanLimit, error) {
	if planID == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	if !featureType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE_TYPE", "Invalid feature type")
	}
	if !periodType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD_TYPE", "Invalid period type")
	}
	if limitCount < UnlimitedLimit {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Limit must be -1 (unlimited) or non-negative")
	}

	return &PlanLimit{
		BaseEntity:  shared.NewBaseEntity(),
		PlanID:      planID,
		FeatureType: featureType,
		PeriodType:  periodType,
		LimitCount:  limitCount,
	}, nil
}

// IsUnlimited returns true if the limit has no cap
func (l *PlanLimit) IsUnlimited() bool {
	return l.LimitCount == UnlimitedLimit
}

// FallbackPolicy decides the limit applied when no PlanLimit row exists
// for a (plan, feature) pair. The gap is a configuration defect, not a
// caller error: it is resolved by an explicit documented default and
// logged as a warning, never silently ignored.
type FallbackPolicy struct {
	// LimitCount applied when no catalog entry matches. The default is
	// UnlimitedLimit, preserving the historical behavior of admitting
	// usage when configuration is missing. Flagged for product-owner
	// confirmation since it can mask real configuration gaps.
	LimitCount int64

	// PeriodType applied to the fallback record.
	PeriodType PeriodType
}

// DefaultFallbackPolicy returns the documented unlimited fallback.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		LimitCount: UnlimitedLimit,
		PeriodType: PeriodTypeMonthly,
	}
}

// Fallback materializes the policy as a PlanLimit for the given pair.
func (p FallbackPolicy) Fallback(planID string, featureType FeatureType) *PlanLimit {
	return &PlanLimit{
		BaseEntity:  shared.NewBaseEntity(),
		PlanID:      planID,
		FeatureType: featureType,
		PeriodType:  p.PeriodType,
		LimitCount:  p.LimitCount,
	}
}

// DefaultPlanLimits returns the built-in plan catalog. These rows seed the
// plan_limits table; at runtime the table is the source of truth.
func DefaultPlanLimits() []*PlanLimit {
	type row struct {
		plan    string
		feature FeatureType
		period  PeriodType
		limit   int64
	}

	rows := []row{
		{"free", FeatureTypeInvoices, PeriodTypeWeekly, 100},
		{"free", FeatureTypeExpenses, PeriodTypeWeekly, 100},
		{"free", FeatureTypeSales, PeriodTypeWeekly, 100},
		{"free", FeatureTypeProducts, PeriodTypeWeekly, 50},

		{"basic", FeatureTypeInvoices, PeriodTypeMonthly, 450},
		{"basic", FeatureTypeExpenses, PeriodTypeMonthly, 450},
		{"basic", FeatureTypeSales, PeriodTypeMonthly, 450},
		{"basic", FeatureTypeProducts, PeriodTypeMonthly, 500},

		{"pro", FeatureTypeInvoices, PeriodTypeMonthly, 5000},
		{"pro", FeatureTypeExpenses, PeriodTypeMonthly, 5000},
		{"pro", FeatureTypeSales, PeriodTypeMonthly, 5000},
		{"pro", FeatureTypeProducts, PeriodTypeMonthly, 5000},

		{"enterprise", FeatureTypeInvoices, PeriodTypeYearly, UnlimitedLimit},
		{"enterprise", FeatureTypeExpenses, PeriodTypeYearly, UnlimitedLimit},
		{"enterprise", FeatureTypeSales, PeriodTypeYearly, UnlimitedLimit},
		{"enterprise", FeatureTypeProducts, PeriodTypeYearly, UnlimitedLimit},
	}

	limits := make([]*PlanLimit, 0, len(rows))
	for _, r := range rows {
		limit, err := NewPlanLimit(r.plan, r.feature, r.period, r.limit)
		if err != nil {
			// Built-in rows are validated by construction
			continue
		}
		limits = append(limits, limit)
	}
	return limits
}
