package metering

import "time"

// Period represents a half-open billing window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t falls within the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Equal returns true if both boundaries match.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// PeriodStrategy computes billing-period boundaries for a reference time.
// Implementations must be pure and deterministic: the same reference time
// always yields the same boundaries, so concurrent callers converge on the
// same period key without coordination.
type PeriodStrategy interface {
	PeriodType() PeriodType
	Boundaries(ref time.Time) Period
}

type weeklyStrategy struct{}

func (weeklyStrategy) PeriodType() PeriodType { return PeriodTypeWeekly }

func (weeklyStrategy) Boundaries(ref time.Time) Period {
	// Weeks start on Monday
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(ref.Year(), ref.Month(), ref.Day()-(weekday-1), 0, 0, 0, 0, ref.Location())
	return Period{Start: start, End: start.AddDate(0, 0, 7)}
}

type monthlyStrategy struct{}

func (monthlyStrategy) PeriodType() PeriodType { return PeriodTypeMonthly }

func (monthlyStrategy) Boundaries(ref time.Time) Period {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

type yearlyStrategy struct{}

func (yearlyStrategy) PeriodType() PeriodType { return PeriodTypeYearly }

func (yearlyStrategy) Boundaries(ref time.Time) Period {
	start := time.Date(ref.Year(), 1, 1, 0, 0, 0, 0, ref.Location())
	return Period{Start: start, End: start.AddDate(1, 0, 0)}
}

var periodStrategies = map[PeriodType]PeriodStrategy{
	PeriodTypeWeekly:  weeklyStrategy{},
	PeriodTypeMonthly: monthlyStrategy{},
	PeriodTypeYearly:  yearlyStrategy{},
}

// StrategyFor returns the period strategy for the given period type.
// Unknown period types fall back to monthly, the most common billing window.
func StrategyFor(periodType PeriodType) PeriodStrategy {
	if s, ok := periodStrategies[periodType]; ok {
		return s
	}
	return monthlyStrategy{}
}

// ResolvePeriod computes the billing-period boundaries containing ref for
// the given period type.
func ResolvePeriod(periodType PeriodType, ref time.Time) Period {
	return StrategyFor(periodType).Boundaries(ref)
}
