package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlanTransitionModel is the GORM model for the plan transition audit trail
type PlanTransitionModel struct {
	ID            string          `gorm:"type:uuid;primaryKey"`
	SubscriberID  string          `gorm:"type:uuid;not null;index:idx_transition_subscriber"`
	FromPlanID    string          `gorm:"type:varchar(50)"`
	ToPlanID      string          `gorm:"type:varchar(50);not null"`
	OccurredAt    time.Time       `gorm:"not null;index:idx_transition_occurred"`
	CountPolicy   string          `gorm:"type:varchar(20);not null"`
	CreditAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ChargeAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Currency      string          `gorm:"type:varchar(3)"`
	ProrationNote string          `gorm:"type:text"`
	Reason        string          `gorm:"type:varchar(100)"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for the model
func (PlanTransitionModel) TableName() string {
	return "plan_transitions"
}

// ToEntity converts the model to a domain entity
func (m *PlanTransitionModel) ToEntity() *metering.PlanTransition {
	return &metering.PlanTransition{
		BaseEntity: shared.BaseEntity{
			ID:        parseUUID(m.ID),
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		SubscriberID: parseUUID(m.SubscriberID),
		FromPlanID:   m.FromPlanID,
		ToPlanID:     m.ToPlanID,
		OccurredAt:   m.OccurredAt,
		CountPolicy:  metering.CountPolicy(m.CountPolicy),
		Proration: metering.ProrationDetails{
			CreditAmount: m.CreditAmount,
			ChargeAmount: m.ChargeAmount,
			Currency:     m.Currency,
			Note:         m.ProrationNote,
		},
		Reason: m.Reason,
	}
}

// PlanTransitionModelFromEntity creates a model from a domain entity
func PlanTransitionModelFromEntity(e *metering.PlanTransition) *PlanTransitionModel {
	return &PlanTransitionModel{
		ID:            e.ID.String(),
		SubscriberID:  e.SubscriberID.String(),
		FromPlanID:    e.FromPlanID,
		ToPlanID:      e.ToPlanID,
		OccurredAt:    e.OccurredAt,
		CountPolicy:   string(e.CountPolicy),
		CreditAmount:  e.Proration.CreditAmount,
		ChargeAmount:  e.Proration.ChargeAmount,
		Currency:      e.Proration.Currency,
		ProrationNote: e.Proration.Note,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// GormPlanTransitionRepository implements metering.PlanTransitionRepository.
// The table is append-only; there is deliberately no update or delete.
type GormPlanTransitionRepository struct {
	db *gorm.DB
}

// NewGormPlanTransitionRepository creates a new plan transition repository
func NewGormPlanTransitionRepository(db *gorm.DB) *GormPlanTransitionRepository {
	return &GormPlanTransitionRepository{db: db}
}

// Save appends a transition record
func (r *GormPlanTransitionRepository) Save(ctx context.Context, transition *metering.PlanTransition) error {
	model := PlanTransitionModelFromEntity(transition)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindBySubscriber retrieves transitions for a subscriber, newest first
func (r *GormPlanTransitionRepository) FindBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*metering.PlanTransition, error) {
	var models []PlanTransitionModel
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID.String()).
		Order("occurred_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	transitions := make([]*metering.PlanTransition, len(models))
	for i := range models {
		transitions[i] = models[i].ToEntity()
	}
	return transitions, nil
}

// FindLatest retrieves the most recent transition for a subscriber
func (r *GormPlanTransitionRepository) FindLatest(ctx context.Context, subscriberID uuid.UUID) (*metering.PlanTransition, error) {
	var model PlanTransitionModel
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID.String()).
		Order("occurred_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Ensure GormPlanTransitionRepository implements the repository interface
var _ metering.PlanTransitionRepository = (*GormPlanTransitionRepository)(nil)
