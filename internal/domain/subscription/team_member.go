package subscription

import (
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MemberRole distinguishes the account owner from invited members
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// TeamMember links an acting user to the subscriber whose quota their
// actions consume
type TeamMember struct {
	shared.BaseEntity
	UserID       uuid.UUID
	SubscriberID uuid.UUID
	Role         MemberRole
	DisplayName  string
}

// NewTeamMember creates a team member under the given subscriber
func NewTeamMember(userID, subscriberID uuid.UUID, role MemberRole, displayName string) (*TeamMember, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if subscriberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBSCRIBER", "Subscriber ID cannot be empty")
	}
	if role != MemberRoleOwner && role != MemberRoleMember {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown member role")
	}

	return &TeamMember{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		SubscriberID: subscriberID,
		Role:         role,
		DisplayName:  displayName,
	}, nil
}

// IsOwner returns true if the member owns the subscriber account
func (m *TeamMember) IsOwner() bool {
	return m.Role == MemberRoleOwner
}
