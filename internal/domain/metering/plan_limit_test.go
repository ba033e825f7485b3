package metering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlanLimit(t *testing.T) {
	limit, err := NewPlanLimit("basic", FeatureTypeInvoices, PeriodTypeMonthly, 450)

	require.NoError(t, err)
	assert.Equal(t, "basic", limit.PlanID)
	assert.Equal(t, int64(450), limit.LimitCount)
	assert.False(t, limit.IsUnlimited())
}

func TestNewPlanLimit_Unlimited(t *testing.T) {
	limit, err := NewPlanLimit("enterprise", FeatureTypeSales, PeriodTypeYearly, UnlimitedLimit)

	require.NoError(t, err)
	assert.True(t, limit.IsUnlimited())
}

func TestNewPlanLimit_Validation(t *testing.T) {
	tests := []struct {
		name    string
		planID  string
		feature FeatureType
		period  PeriodType
		limit   int64
	}{
		{"empty plan", "", FeatureTypeInvoices, PeriodTypeMonthly, 100},
		{"invalid feature", "basic", FeatureType("widgets"), PeriodTypeMonthly, 100},
		{"invalid period", "basic", FeatureTypeInvoices, PeriodType("quarterly"), 100},
		{"limit below sentinel", "basic", FeatureTypeInvoices, PeriodTypeMonthly, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlanLimit(tt.planID, tt.feature, tt.period, tt.limit)
			assert.Error(t, err)
		})
	}
}

func TestDefaultFallbackPolicy(t *testing.T) {
	policy := DefaultFallbackPolicy()

	fallback := policy.Fallback("unknown-plan", FeatureTypeExpenses)

	assert.True(t, fallback.IsUnlimited())
	assert.Equal(t, "unknown-plan", fallback.PlanID)
	assert.Equal(t, PeriodTypeMonthly, fallback.PeriodType)
}

func TestDefaultPlanLimits_CoversEveryPlanFeaturePair(t *testing.T) {
	limits := DefaultPlanLimits()

	require.Len(t, limits, 16)

	seen := make(map[string]map[FeatureType]bool)
	for _, l := range limits {
		if seen[l.PlanID] == nil {
			seen[l.PlanID] = make(map[FeatureType]bool)
		}
		assert.False(t, seen[l.PlanID][l.FeatureType], "duplicate row for %s/%s", l.PlanID, l.FeatureType)
		seen[l.PlanID][l.FeatureType] = true
	}

	for _, plan := range []string{"free", "basic", "pro", "enterprise"} {
		for _, feature := range AllFeatureTypes() {
			assert.True(t, seen[plan][feature], "missing row for %s/%s", plan, feature)
		}
	}
}
