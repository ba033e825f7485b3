package metering

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncStatus tracks whether a ledger counter agrees with the true count
// of underlying metered records.
type SyncStatus string

const (
	// SyncStatusSynced means the counter matched at the last reconciliation
	SyncStatusSynced SyncStatus = "synced"

	// SyncStatusOutOfSync means drift was detected and is pending correction
	SyncStatusOutOfSync SyncStatus = "out_of_sync"
)

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// UsageRecord is the per-subscriber, per-feature, per-period usage counter.
// At most one record per (subscriber, feature) is active at any instant;
// a new period record requires first retiring the prior one. The counter
// is mutated only by the quota enforcer (increment/decrement) and the
// reconciliation service (corrective overwrite).
type UsageRecord struct {
	shared.BaseAggregateRoot
	SubscriberID     uuid.UUID
	FeatureType      FeatureType
	PeriodStart      time.Time
	PeriodEnd        time.Time
	CurrentCount     int64
	LimitCount       int64
	LastSyncedAt     *time.Time
	SyncStatus       SyncStatus
	DiscrepancyCount int64
}

// NewUsageRecord creates a zeroed usage record for a period. The limit is
// frozen at creation time from the plan catalog; it does not change until
// the next plan transition or period rollover.
func NewUsageRecord(subscriberID uuid.UUID, featureType FeatureType, limitCount int64, period Period) (*UsageRecord, error) {
	if subscriberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBSCRIBER", "Subscriber ID cannot be empty")
	}
	if !featureType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE_TYPE", "Invalid feature type")
	}
	if limitCount < UnlimitedLimit {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Limit must be -1 (unlimited) or non-negative")
	}
	if !period.End.After(period.Start) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after period start")
	}

	return &UsageRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubscriberID:      subscriberID,
		FeatureType:       featureType,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		CurrentCount:      0,
		LimitCount:        limitCount,
		SyncStatus:        SyncStatusSynced,
	}, nil
}

// Period returns the record's billing window.
func (r *UsageRecord) Period() Period {
	return Period{Start: r.PeriodStart, End: r.PeriodEnd}
}

// IsUnlimited returns true if the record carries no cap
func (r *UsageRecord) IsUnlimited() bool {
	return r.LimitCount == UnlimitedLimit
}

// IsExpiredAt returns true if the record's period has ended at t
func (r *UsageRecord) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.PeriodEnd)
}

// CanReserve returns true if one more unit fits under the limit
func (r *UsageRecord) CanReserve() bool {
	if r.IsUnlimited() {
		return true
	}
	return r.CurrentCount < r.LimitCount
}

// Remaining returns the units left in the period, or UnlimitedLimit
// for uncapped records.
func (r *UsageRecord) Remaining() int64 {
	if r.IsUnlimited() {
		return UnlimitedLimit
	}
	remaining := r.LimitCount - r.CurrentCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UsagePercent returns consumption as a percentage of the limit.
// Uncapped records report 0.
func (r *UsageRecord) UsagePercent() float64 {
	if r.IsUnlimited() || r.LimitCount == 0 {
		return 0
	}
	return float64(r.CurrentCount) / float64(r.LimitCount) * 100
}

// ApplyCorrection overwrites the counter with the authoritative value
// and returns the delta that was applied. The record comes out of a
// pass synced either way; a non-zero delta bumps the discrepancy
// counter, which is what preserves the drift history.
func (r *UsageRecord) ApplyCorrection(authoritative int64, at time.Time) int64 {
	delta := authoritative - r.CurrentCount
	if delta != 0 {
		r.CurrentCount = authoritative
		r.DiscrepancyCount++
	}
	r.SyncStatus = SyncStatusSynced
	r.LastSyncedAt = &at
	r.UpdatedAt = at
	return delta
}
