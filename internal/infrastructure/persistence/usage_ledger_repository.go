package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageRecordModel is the GORM model for usage ledger rows
type UsageRecordModel struct {
	ID               string     `gorm:"type:uuid;primaryKey"`
	SubscriberID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_subscriber_feature_period,priority:1;index:idx_usage_subscriber"`
	FeatureType      string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_subscriber_feature_period,priority:2"`
	PeriodStart      time.Time  `gorm:"not null;uniqueIndex:idx_subscriber_feature_period,priority:3"`
	PeriodEnd        time.Time  `gorm:"not null;uniqueIndex:idx_subscriber_feature_period,priority:4"`
	CurrentCount     int64      `gorm:"not null;default:0"`
	LimitCount       int64      `gorm:"not null;default:-1"`
	LastSyncedAt     *time.Time `gorm:""`
	SyncStatus       string     `gorm:"type:varchar(20);not null;default:'synced'"`
	DiscrepancyCount int64      `gorm:"not null;default:0"`
	Version          int        `gorm:"not null;default:1"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for the model
func (UsageRecordModel) TableName() string {
	return "usage_records"
}

// ToEntity converts the model to a domain entity
func (m *UsageRecordModel) ToEntity() *metering.UsageRecord {
	return &metering.UsageRecord{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        parseUUID(m.ID),
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		SubscriberID:     parseUUID(m.SubscriberID),
		FeatureType:      metering.FeatureType(m.FeatureType),
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		CurrentCount:     m.CurrentCount,
		LimitCount:       m.LimitCount,
		LastSyncedAt:     m.LastSyncedAt,
		SyncStatus:       metering.SyncStatus(m.SyncStatus),
		DiscrepancyCount: m.DiscrepancyCount,
	}
}

// UsageRecordModelFromEntity creates a model from a domain entity
func UsageRecordModelFromEntity(e *metering.UsageRecord) *UsageRecordModel {
	return &UsageRecordModel{
		ID:               e.ID.String(),
		SubscriberID:     e.SubscriberID.String(),
		FeatureType:      string(e.FeatureType),
		PeriodStart:      e.PeriodStart,
		PeriodEnd:        e.PeriodEnd,
		CurrentCount:     e.CurrentCount,
		LimitCount:       e.LimitCount,
		LastSyncedAt:     e.LastSyncedAt,
		SyncStatus:       string(e.SyncStatus),
		DiscrepancyCount: e.DiscrepancyCount,
		Version:          e.Version,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// GormUsageLedgerRepository implements metering.UsageLedgerRepository
type GormUsageLedgerRepository struct {
	db *gorm.DB
}

// NewGormUsageLedgerRepository creates a new usage ledger repository
func NewGormUsageLedgerRepository(db *gorm.DB) *GormUsageLedgerRepository {
	return &GormUsageLedgerRepository{db: db}
}

func (r *GormUsageLedgerRepository) findActive(ctx context.Context, tx *gorm.DB, subscriberID uuid.UUID, featureType metering.FeatureType, at time.Time) (*metering.UsageRecord, error) {
	var model UsageRecordModel
	err := tx.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID.String()).
		Where("feature_type = ?", string(featureType)).
		Where("period_start <= ?", at).
		Where("period_end > ?", at).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindActive retrieves the record whose period contains the given instant
func (r *GormUsageLedgerRepository) FindActive(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, at time.Time) (*metering.UsageRecord, error) {
	return r.findActive(ctx, r.db, subscriberID, featureType, at)
}

// FindActiveForUpdate is FindActive under an exclusive row hold
func (r *GormUsageLedgerRepository) FindActiveForUpdate(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, at time.Time) (*metering.UsageRecord, error) {
	return r.findActive(ctx, lockForUpdate(r.db), subscriberID, featureType, at)
}

// FindAllForSubscriber retrieves every record for a subscriber
func (r *GormUsageLedgerRepository) FindAllForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*metering.UsageRecord, error) {
	return r.findAllForSubscriber(ctx, r.db, subscriberID)
}

// FindAllForSubscriberForUpdate takes the broad hold used by plan transitions
func (r *GormUsageLedgerRepository) FindAllForSubscriberForUpdate(ctx context.Context, subscriberID uuid.UUID) ([]*metering.UsageRecord, error) {
	return r.findAllForSubscriber(ctx, lockForUpdate(r.db), subscriberID)
}

func (r *GormUsageLedgerRepository) findAllForSubscriber(ctx context.Context, tx *gorm.DB, subscriberID uuid.UUID) ([]*metering.UsageRecord, error) {
	var models []UsageRecordModel
	err := tx.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID.String()).
		Order("feature_type ASC, period_start DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]*metering.UsageRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records, nil
}

// Save persists a new usage record. A conflict on the period key comes
// back as shared.ErrAlreadyExists so callers can load the winner.
func (r *GormUsageLedgerRepository) Save(ctx context.Context, record *metering.UsageRecord) error {
	model := UsageRecordModelFromEntity(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists changes to an existing record
func (r *GormUsageLedgerRepository) Update(ctx context.Context, record *metering.UsageRecord) error {
	model := UsageRecordModelFromEntity(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// IncrementCount adds one to the counter of the given record
func (r *GormUsageLedgerRepository) IncrementCount(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&UsageRecordModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"current_count": gorm.Expr("current_count + 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DecrementCount subtracts one from the counter, bounded at zero
func (r *GormUsageLedgerRepository) DecrementCount(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&UsageRecordModel{}).
		Where("id = ?", id.String()).
		Where("current_count > 0").
		Updates(map[string]any{
			"current_count": gorm.Expr("current_count - 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	// Zero rows affected means the counter was already at zero. That is
	// a legal no-op for a compensating release.
	return nil
}

// Delete retires a single record
func (r *GormUsageLedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&UsageRecordModel{}, "id = ?", id.String()).Error
}

// DeleteForSubscriber retires all records of a subscriber
func (r *GormUsageLedgerRepository) DeleteForSubscriber(ctx context.Context, subscriberID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&UsageRecordModel{}, "subscriber_id = ?", subscriberID.String()).Error
}

// ListSubscriberIDs returns the distinct subscribers holding records
func (r *GormUsageLedgerRepository) ListSubscriberIDs(ctx context.Context) ([]uuid.UUID, error) {
	var raw []string
	err := r.db.WithContext(ctx).
		Model(&UsageRecordModel{}).
		Distinct("subscriber_id").
		Order("subscriber_id ASC").
		Pluck("subscriber_id", &raw).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id := parseUUID(s); id != uuid.Nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Ensure GormUsageLedgerRepository implements the repository interface
var _ metering.UsageLedgerRepository = (*GormUsageLedgerRepository)(nil)
