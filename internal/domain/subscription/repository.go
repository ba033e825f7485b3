package subscription

import (
	"context"

	"github.com/google/uuid"
)

// SubscriberRepository defines the persistence contract for subscribers
type SubscriberRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Subscriber, error)
	Save(ctx context.Context, subscriber *Subscriber) error
	Update(ctx context.Context, subscriber *Subscriber) error

	// ResolveEffectiveSubscriber maps an acting user to the subscriber
	// whose quota their actions consume. For an account owner this is
	// their own subscriber; for a team member it is the owner's.
	// Returns shared.ErrNotFound when the user belongs to no account.
	ResolveEffectiveSubscriber(ctx context.Context, userID uuid.UUID) (*Subscriber, error)
}

// TeamMemberRepository defines the persistence contract for team membership
type TeamMemberRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*TeamMember, error)
	FindBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*TeamMember, error)
	Save(ctx context.Context, member *TeamMember) error
	Delete(ctx context.Context, id uuid.UUID) error
}
