package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriberModel is the GORM model for billing-owning accounts
type SubscriberModel struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	Name             string    `gorm:"type:varchar(255);not null"`
	PlanID           string    `gorm:"type:varchar(50);not null"`
	Status           string    `gorm:"type:varchar(20);not null;default:'active';index:idx_subscriber_status"`
	TrialDaysLeft    int       `gorm:"not null;default:0"`
	PeriodAnchorDate time.Time `gorm:"not null"`
	ContactEmail     string    `gorm:"type:varchar(255)"`
	Version          int       `gorm:"not null;default:1"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (SubscriberModel) TableName() string {
	return "subscribers"
}

// ToEntity converts the model to a domain entity
func (m *SubscriberModel) ToEntity() *subscription.Subscriber {
	return &subscription.Subscriber{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        parseUUID(m.ID),
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:             m.Name,
		PlanID:           m.PlanID,
		Status:           subscription.PlanStatus(m.Status),
		TrialDaysLeft:    m.TrialDaysLeft,
		PeriodAnchorDate: m.PeriodAnchorDate,
		ContactEmail:     m.ContactEmail,
	}
}

// SubscriberModelFromEntity creates a model from a domain entity
func SubscriberModelFromEntity(e *subscription.Subscriber) *SubscriberModel {
	return &SubscriberModel{
		ID:               e.ID.String(),
		Name:             e.Name,
		PlanID:           e.PlanID,
		Status:           string(e.Status),
		TrialDaysLeft:    e.TrialDaysLeft,
		PeriodAnchorDate: e.PeriodAnchorDate,
		ContactEmail:     e.ContactEmail,
		Version:          e.Version,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// TeamMemberModel is the GORM model for team membership
type TeamMemberModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:idx_member_user"`
	SubscriberID string    `gorm:"type:uuid;not null;index:idx_member_subscriber"`
	Role         string    `gorm:"type:varchar(20);not null;default:'member'"`
	DisplayName  string    `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (TeamMemberModel) TableName() string {
	return "team_members"
}

// ToEntity converts the model to a domain entity
func (m *TeamMemberModel) ToEntity() *subscription.TeamMember {
	return &subscription.TeamMember{
		BaseEntity: shared.BaseEntity{
			ID:        parseUUID(m.ID),
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:       parseUUID(m.UserID),
		SubscriberID: parseUUID(m.SubscriberID),
		Role:         subscription.MemberRole(m.Role),
		DisplayName:  m.DisplayName,
	}
}

// TeamMemberModelFromEntity creates a model from a domain entity
func TeamMemberModelFromEntity(e *subscription.TeamMember) *TeamMemberModel {
	return &TeamMemberModel{
		ID:           e.ID.String(),
		UserID:       e.UserID.String(),
		SubscriberID: e.SubscriberID.String(),
		Role:         string(e.Role),
		DisplayName:  e.DisplayName,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// GormSubscriberRepository implements subscription.SubscriberRepository
type GormSubscriberRepository struct {
	db *gorm.DB
}

// NewGormSubscriberRepository creates a new subscriber repository
func NewGormSubscriberRepository(db *gorm.DB) *GormSubscriberRepository {
	return &GormSubscriberRepository{db: db}
}

// FindByID retrieves a subscriber by its ID
func (r *GormSubscriberRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.Subscriber, error) {
	var model SubscriberModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save persists a new subscriber
func (r *GormSubscriberRepository) Save(ctx context.Context, subscriber *subscription.Subscriber) error {
	model := SubscriberModelFromEntity(subscriber)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists changes to an existing subscriber
func (r *GormSubscriberRepository) Update(ctx context.Context, subscriber *subscription.Subscriber) error {
	model := SubscriberModelFromEntity(subscriber)
	return r.db.WithContext(ctx).Save(model).Error
}

// ResolveEffectiveSubscriber maps an acting user to the subscriber whose
// quota their actions consume. The user is looked up in team membership
// first; any member, owner or not, resolves to the owning account.
func (r *GormSubscriberRepository) ResolveEffectiveSubscriber(ctx context.Context, userID uuid.UUID) (*subscription.Subscriber, error) {
	var member TeamMemberModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		First(&member).Error
	if err == nil {
		return r.FindByID(ctx, parseUUID(member.SubscriberID))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// No membership row: the user ID may be the subscriber itself, which
	// covers accounts created before team support existed.
	return r.FindByID(ctx, userID)
}

// GormTeamMemberRepository implements subscription.TeamMemberRepository
type GormTeamMemberRepository struct {
	db *gorm.DB
}

// NewGormTeamMemberRepository creates a new team member repository
func NewGormTeamMemberRepository(db *gorm.DB) *GormTeamMemberRepository {
	return &GormTeamMemberRepository{db: db}
}

// FindByUserID retrieves the membership row for a user
func (r *GormTeamMemberRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.TeamMember, error) {
	var model TeamMemberModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindBySubscriber retrieves all members of a subscriber account
func (r *GormTeamMemberRepository) FindBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*subscription.TeamMember, error) {
	var models []TeamMemberModel
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID.String()).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	members := make([]*subscription.TeamMember, len(models))
	for i := range models {
		members[i] = models[i].ToEntity()
	}
	return members, nil
}

// Save persists a new team member
func (r *GormTeamMemberRepository) Save(ctx context.Context, member *subscription.TeamMember) error {
	model := TeamMemberModelFromEntity(member)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Delete removes a team member
func (r *GormTeamMemberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&TeamMemberModel{}, "id = ?", id.String()).Error
}

// Ensure the repositories implement their interfaces
var (
	_ subscription.SubscriberRepository = (*GormSubscriberRepository)(nil)
	_ subscription.TeamMemberRepository = (*GormTeamMemberRepository)(nil)
)
