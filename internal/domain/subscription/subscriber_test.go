package subscription

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriber(t *testing.T) {
	sub, err := NewSubscriber("Acme GmbH", PlanBasic)

	require.NoError(t, err)
	assert.Equal(t, PlanStatusActive, sub.Status)
	assert.Equal(t, PlanBasic, sub.PlanID)
	assert.True(t, sub.CanConsume())
	assert.Equal(t, 1, sub.GetVersion())
}

func TestNewSubscriber_Validation(t *testing.T) {
	_, err := NewSubscriber("", PlanBasic)
	assert.Error(t, err)

	_, err = NewSubscriber("Acme GmbH", "")
	assert.Error(t, err)
}

func TestNewTrialSubscriber(t *testing.T) {
	sub, err := NewTrialSubscriber("Acme GmbH", PlanPro, 14)

	require.NoError(t, err)
	assert.Equal(t, PlanStatusTrial, sub.Status)
	assert.Equal(t, 14, sub.TrialDaysLeft)
	assert.True(t, sub.IsTrial())
	assert.True(t, sub.CanConsume())

	_, err = NewTrialSubscriber("Acme GmbH", PlanPro, 0)
	assert.Error(t, err)
}

func TestSubscriber_ChangePlan(t *testing.T) {
	sub, err := NewTrialSubscriber("Acme GmbH", PlanPro, 14)
	require.NoError(t, err)

	at := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	err = sub.ChangePlan(PlanBasic, at)

	require.NoError(t, err)
	assert.Equal(t, PlanBasic, sub.PlanID)
	assert.Equal(t, PlanStatusActive, sub.Status, "conversion activates the trial")
	assert.Equal(t, 0, sub.TrialDaysLeft)
	assert.True(t, at.Equal(sub.PeriodAnchorDate), "billing period re-anchored")
	assert.Equal(t, 2, sub.GetVersion())
}

func TestSubscriber_ChangePlan_ReactivatesExpired(t *testing.T) {
	sub, err := NewSubscriber("Acme GmbH", PlanFree)
	require.NoError(t, err)
	require.NoError(t, sub.Expire())

	err = sub.ChangePlan(PlanPro, time.Now())

	require.NoError(t, err)
	assert.Equal(t, PlanStatusActive, sub.Status)
}

func TestSubscriber_Expire(t *testing.T) {
	sub, err := NewTrialSubscriber("Acme GmbH", PlanPro, 3)
	require.NoError(t, err)

	require.NoError(t, sub.Expire())
	assert.Equal(t, PlanStatusExpired, sub.Status)
	assert.False(t, sub.CanConsume())

	assert.Error(t, sub.Expire(), "double expire rejected")
}

func TestSubscriber_Cancel(t *testing.T) {
	sub, err := NewSubscriber("Acme GmbH", PlanBasic)
	require.NoError(t, err)

	require.NoError(t, sub.Cancel())
	assert.Equal(t, PlanStatusCancelled, sub.Status)
	assert.False(t, sub.CanConsume())

	assert.Error(t, sub.Cancel())
}

func TestSubscriber_DecrementTrialDay(t *testing.T) {
	sub, err := NewTrialSubscriber("Acme GmbH", PlanPro, 2)
	require.NoError(t, err)

	assert.False(t, sub.DecrementTrialDay())
	assert.Equal(t, 1, sub.TrialDaysLeft)

	assert.True(t, sub.DecrementTrialDay(), "trial ran out")
	assert.Equal(t, 0, sub.TrialDaysLeft)

	active, err := NewSubscriber("Other", PlanBasic)
	require.NoError(t, err)
	assert.False(t, active.DecrementTrialDay(), "no-op outside trial")
}

func TestNewTeamMember(t *testing.T) {
	userID := uuid.New()
	subscriberID := uuid.New()

	member, err := NewTeamMember(userID, subscriberID, MemberRoleMember, "Dana")

	require.NoError(t, err)
	assert.Equal(t, subscriberID, member.SubscriberID)
	assert.False(t, member.IsOwner())

	owner, err := NewTeamMember(uuid.New(), subscriberID, MemberRoleOwner, "Sam")
	require.NoError(t, err)
	assert.True(t, owner.IsOwner())
}

func TestNewTeamMember_Validation(t *testing.T) {
	_, err := NewTeamMember(uuid.Nil, uuid.New(), MemberRoleMember, "Dana")
	assert.Error(t, err)

	_, err = NewTeamMember(uuid.New(), uuid.Nil, MemberRoleMember, "Dana")
	assert.Error(t, err)

	_, err = NewTeamMember(uuid.New(), uuid.New(), MemberRole("admin"), "Dana")
	assert.Error(t, err)
}
