package metering

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// LimitExceededError reports a denied admission. It is a normal outcome
// of enforcement, not a system fault; callers translate it to a
// user-facing "upgrade or wait for next period" block.
type LimitExceededError struct {
	FeatureType  FeatureType
	CurrentCount int64
	LimitCount   int64
	PeriodEnd    time.Time
}

// Error implements the error interface
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf(
		"usage limit exceeded for %s: %d of %d used in the current period",
		e.FeatureType.DisplayName(), e.CurrentCount, e.LimitCount,
	)
}

// HTTPStatusCode returns 429 Too Many Requests
func (e *LimitExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewLimitExceededError creates a new LimitExceededError
func NewLimitExceededError(featureType FeatureType, current, limit int64, periodEnd time.Time) *LimitExceededError {
	return &LimitExceededError{
		FeatureType:  featureType,
		CurrentCount: current,
		LimitCount:   limit,
		PeriodEnd:    periodEnd,
	}
}

// ConcurrencyTimeoutError reports that the exclusive hold on a ledger row
// could not be acquired within the configured bound. Callers may retry
// once with backoff before surfacing the failure.
type ConcurrencyTimeoutError struct {
	SubscriberID uuid.UUID
	FeatureType  FeatureType
	Waited       time.Duration
}

// Error implements the error interface
func (e *ConcurrencyTimeoutError) Error() string {
	return fmt.Sprintf(
		"timed out after %s waiting for the %s usage row of subscriber %s",
		e.Waited, e.FeatureType, e.SubscriberID,
	)
}

// HTTPStatusCode returns 503 Service Unavailable
func (e *ConcurrencyTimeoutError) HTTPStatusCode() int {
	return http.StatusServiceUnavailable
}

// InconsistentStateError reports that reconciliation found the ledger
// materially diverged from the authoritative counts, e.g. a negative
// implied count. The record is auto-corrected; the error exists for
// operator visibility because it indicates an enforcement bug.
type InconsistentStateError struct {
	SubscriberID  uuid.UUID
	FeatureType   FeatureType
	LedgerCount   int64
	Authoritative int64
}

// Error implements the error interface
func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf(
		"ledger count %d diverged from authoritative count %d for %s of subscriber %s",
		e.LedgerCount, e.Authoritative, e.FeatureType, e.SubscriberID,
	)
}
