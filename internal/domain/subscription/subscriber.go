package subscription

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
)

// PlanStatus represents the lifecycle state of a subscription
type PlanStatus string

const (
	PlanStatusTrial     PlanStatus = "trial"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusExpired   PlanStatus = "expired"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// IsValid returns true if the plan status is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusTrial, PlanStatusActive, PlanStatusExpired, PlanStatusCancelled:
		return true
	}
	return false
}

// Known plan identifiers. The plan catalog is keyed by these values;
// additional plans only require new catalog rows.
const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Subscriber is the billing-owning account. All usage enforcement keys
// off a subscriber, never an acting user: team members consume the
// quota of the account that owns them.
type Subscriber struct {
	shared.BaseAggregateRoot
	Name             string
	PlanID           string
	Status           PlanStatus
	TrialDaysLeft    int
	PeriodAnchorDate time.Time
	ContactEmail     string
}

// NewSubscriber creates an active subscriber on the given plan
func NewSubscriber(name, planID string) (*Subscriber, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Subscriber name cannot be empty")
	}
	if planID == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}

	return &Subscriber{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		PlanID:            planID,
		Status:            PlanStatusActive,
		PeriodAnchorDate:  time.Now(),
	}, nil
}

// NewTrialSubscriber creates a subscriber in trial status
func NewTrialSubscriber(name, planID string, trialDays int) (*Subscriber, error) {
	if trialDays <= 0 {
		return nil, shared.NewDomainError("INVALID_TRIAL_DAYS", "Trial days must be positive")
	}

	sub, err := NewSubscriber(name, planID)
	if err != nil {
		return nil, err
	}

	sub.Status = PlanStatusTrial
	sub.TrialDaysLeft = trialDays
	return sub, nil
}

// ChangePlan moves the subscriber to a new plan and re-anchors the
// billing period. Converting out of trial activates the subscription.
func (s *Subscriber) ChangePlan(planID string, at time.Time) error {
	if planID == "" {
		return shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}

	s.PlanID = planID
	s.PeriodAnchorDate = at
	if s.Status == PlanStatusTrial || s.Status == PlanStatusExpired {
		s.Status = PlanStatusActive
		s.TrialDaysLeft = 0
	}
	s.UpdatedAt = at
	s.IncrementVersion()
	return nil
}

// Expire marks the subscription expired (trial ran out or payment lapsed)
func (s *Subscriber) Expire() error {
	if s.Status == PlanStatusExpired {
		return shared.NewDomainError("ALREADY_EXPIRED", "Subscription is already expired")
	}
	s.Status = PlanStatusExpired
	s.TrialDaysLeft = 0
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// Cancel marks the subscription cancelled by the subscriber
func (s *Subscriber) Cancel() error {
	if s.Status == PlanStatusCancelled {
		return shared.NewDomainError("ALREADY_CANCELLED", "Subscription is already cancelled")
	}
	s.Status = PlanStatusCancelled
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// DecrementTrialDay consumes one trial day. Returns true when the trial
// has run out. Scheduling of the daily decrement belongs to an external
// collaborator; only the state change lives here.
func (s *Subscriber) DecrementTrialDay() bool {
	if s.Status != PlanStatusTrial {
		return false
	}
	if s.TrialDaysLeft > 0 {
		s.TrialDaysLeft--
		s.UpdatedAt = time.Now()
		s.IncrementVersion()
	}
	return s.TrialDaysLeft == 0
}

// IsTrial returns true if the subscriber is in trial
func (s *Subscriber) IsTrial() bool {
	return s.Status == PlanStatusTrial
}

// CanConsume returns true if the subscription admits metered usage at all
func (s *Subscriber) CanConsume() bool {
	return s.Status == PlanStatusTrial || s.Status == PlanStatusActive
}
