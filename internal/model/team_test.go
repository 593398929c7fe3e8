package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeam_RoleOf(t *testing.T) {
	team := &Team{
		LeaderID:  "leader",
		TeacherID: "teacher",
		MemberIDs: []string{"m1", "m2"},
	}

	tests := []struct {
		personID string
		role     Role
		ok       bool
	}{
		{personID: "leader", role: RoleLeader, ok: true},
		{personID: "teacher", role: RoleTeacher, ok: true},
		{personID: "m2", role: RoleMember, ok: true},
		{personID: "stranger", ok: false},
		{personID: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.personID, func(t *testing.T) {
			role, ok := team.RoleOf(tt.personID)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, role)
		})
	}

	assert.Equal(t, []string{"leader", "m1", "m2"}, team.StudentIDs())
}

func TestTeamStatus(t *testing.T) {
	assert.True(t, TeamStatusFilling.Editable())
	assert.True(t, TeamStatusPendingReview.Editable())
	assert.False(t, TeamStatusAwaitingPayment.Editable())
	assert.False(t, TeamStatusAccepted.Editable())
	assert.False(t, TeamStatusRejected.Editable())

	assert.True(t, TeamStatus("待繳費").Valid())
	assert.False(t, TeamStatus("DRAFT").Valid())
}
