package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanLimitModel is the GORM model for plan limits
type PlanLimitModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	PlanID      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_plan_feature_period,priority:1"`
	FeatureType string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_plan_feature_period,priority:2"`
	PeriodType  string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_plan_feature_period,priority:3"`
	LimitCount  int64     `gorm:"not null;default:-1"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (PlanLimitModel) TableName() string {
	return "plan_limits"
}

// ToEntity converts the model to a domain entity
func (m *PlanLimitModel) ToEntity() *metering.PlanLimit {
	return &metering.PlanLimit{
		BaseEntity: shared.BaseEntity{
			ID:        parseUUID(m.ID),
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		PlanID:      m.PlanID,
		FeatureType: metering.FeatureType(m.FeatureType),
		PeriodType:  metering.PeriodType(m.PeriodType),
		LimitCount:  m.LimitCount,
	}
}

// PlanLimitModelFromEntity creates a model from a domain entity
func PlanLimitModelFromEntity(e *metering.PlanLimit) *PlanLimitModel {
	return &PlanLimitModel{
		ID:          e.ID.String(),
		PlanID:      e.PlanID,
		FeatureType: string(e.FeatureType),
		PeriodType:  string(e.PeriodType),
		LimitCount:  e.LimitCount,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// GormPlanLimitRepository implements metering.PlanLimitRepository
type GormPlanLimitRepository struct {
	db *gorm.DB
}

// NewGormPlanLimitRepository creates a new plan limit repository
func NewGormPlanLimitRepository(db *gorm.DB) *GormPlanLimitRepository {
	return &GormPlanLimitRepository{db: db}
}

// FindByPlan retrieves all limits configured for a plan
func (r *GormPlanLimitRepository) FindByPlan(ctx context.Context, planID string) ([]*metering.PlanLimit, error) {
	var models []PlanLimitModel
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("feature_type ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	limits := make([]*metering.PlanLimit, len(models))
	for i := range models {
		limits[i] = models[i].ToEntity()
	}
	return limits, nil
}

// FindByPlanAndFeature retrieves the limit for a (plan, feature) pair.
// The schema only enforces uniqueness on the (plan, feature, period)
// triple, so a misconfigured catalog can hold the same pair at two
// period types; the ordering makes such a lookup deterministic.
func (r *GormPlanLimitRepository) FindByPlanAndFeature(ctx context.Context, planID string, featureType metering.FeatureType) (*metering.PlanLimit, error) {
	var model PlanLimitModel
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Where("feature_type = ?", string(featureType)).
		Order("period_type ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// SaveBatch seeds catalog rows, upserting on the (plan, feature, period) key
func (r *GormPlanLimitRepository) SaveBatch(ctx context.Context, limits []*metering.PlanLimit) error {
	if len(limits) == 0 {
		return nil
	}

	models := make([]PlanLimitModel, len(limits))
	for i, limit := range limits {
		models[i] = *PlanLimitModelFromEntity(limit)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plan_id"}, {Name: "feature_type"}, {Name: "period_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"limit_count", "updated_at"}),
		}).
		Create(&models).Error
}

// Ensure GormPlanLimitRepository implements the repository interface
var _ metering.PlanLimitRepository = (*GormPlanLimitRepository)(nil)
