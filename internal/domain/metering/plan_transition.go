package metering

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountPolicy controls what happens to usage counters during a plan
// transition. Reset-vs-preserve is an explicit parameter, never implied.
type CountPolicy string

const (
	// CountPolicyReset zeroes all counters under the new plan
	CountPolicyReset CountPolicy = "RESET"

	// CountPolicyPreserve carries existing counts into the new records,
	// capped at the new plan's limits
	CountPolicyPreserve CountPolicy = "PRESERVE"
)

// IsValid returns true if the count policy is valid
func (p CountPolicy) IsValid() bool {
	switch p {
	case CountPolicyReset, CountPolicyPreserve:
		return true
	}
	return false
}

// ParseCountPolicy parses a count policy from its string form
func ParseCountPolicy(s string) (CountPolicy, error) {
	policy := CountPolicy(s)
	if !policy.IsValid() {
		return "", shared.NewDomainError("INVALID_COUNT_POLICY", "Unknown count policy: "+s)
	}
	return policy, nil
}

// ProrationDetails captures the billing adjustment applied when a
// subscriber changes plans mid-period.
type ProrationDetails struct {
	CreditAmount decimal.Decimal `json:"credit_amount"`
	ChargeAmount decimal.Decimal `json:"charge_amount"`
	Currency     string          `json:"currency"`
	Note         string          `json:"note,omitempty"`
}

// NetAmount returns charge minus credit.
func (p ProrationDetails) NetAmount() decimal.Decimal {
	return p.ChargeAmount.Sub(p.CreditAmount)
}

// PlanTransition is the append-only audit record of a plan change.
// Created once per transition, never mutated.
type PlanTransition struct {
	shared.BaseEntity
	SubscriberID uuid.UUID
	FromPlanID   string
	ToPlanID     string
	OccurredAt   time.Time
	CountPolicy  CountPolicy
	Proration    ProrationDetails
	Reason       string
}

// NewPlanTransition creates a transition audit record with validation
func NewPlanTransition(subscriberID uuid.UUID, fromPlanID, toPlanID string, policy CountPolicy, proration ProrationDetails) (*PlanTransition, error) {
	if subscriberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBSCRIBER", "Subscriber ID cannot be empty")
	}
	if toPlanID == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Target plan ID cannot be empty")
	}
	if !policy.IsValid() {
		return nil, shared.NewDomainError("INVALID_COUNT_POLICY", "Invalid count policy")
	}

	return &PlanTransition{
		BaseEntity:   shared.NewBaseEntity(),
		SubscriberID: subscriberID,
		FromPlanID:   fromPlanID,
		ToPlanID:     toPlanID,
		OccurredAt:   time.Now(),
		CountPolicy:  policy,
		Proration:    proration,
	}, nil
}

// WithReason annotates the transition (e.g. "trial_expired", "upgrade").
func (t *PlanTransition) WithReason(reason string) *PlanTransition {
	t.Reason = reason
	return t
}
