package model

import "time"

// TeamStatus values are persisted byte-for-byte and shown to staff as-is.
type TeamStatus string

const (
	TeamStatusFilling         TeamStatus = "填寫資料中"
	TeamStatusPendingReview   TeamStatus = "資料確認中"
	TeamStatusAwaitingPayment TeamStatus = "待繳費"
	TeamStatusAccepted        TeamStatus = "已接受"
	TeamStatusRejected        TeamStatus = "已拒絕"
)

var teamStatuses = []TeamStatus{
	TeamStatusFilling,
	TeamStatusPendingReview,
	TeamStatusAwaitingPayment,
	TeamStatusAccepted,
	TeamStatusRejected,
}

func (s TeamStatus) Valid() bool {
	for _, st := range teamStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Editable reports whether role forms, the name and completion may still change.
func (s TeamStatus) Editable() bool {
	return s == TeamStatusFilling || s == TeamStatusPendingReview
}

// DashboardStatuses is the default staff listing filter.
var DashboardStatuses = []TeamStatus{
	TeamStatusPendingReview,
	TeamStatusRejected,
	TeamStatusAccepted,
}

const (
	MinTeamSize    = 3
	MaxTeamSize    = 5
	MaxTeamNameLen = 24
)

var DiscoveryChannels = []string{
	"朋友/同學",
	"學校老師",
	"社群媒體",
	"HackIt 官方管道",
	"其他",
}

type Team struct {
	ID               string     `json:"id"`
	Name             string     `json:"team_name"`
	Size             int        `json:"team_size"`
	LearnAboutUs     string     `json:"learn_about_us"`
	Status           TeamStatus `json:"status"`
	LeaderID         string     `json:"leader_id"`
	TeacherID        string     `json:"teacher_id"`
	MemberIDs        []string   `json:"member_ids"`
	TeamAffidavit    string     `json:"team_affidavit,omitempty"`
	ParentsAffidavit string     `json:"parents_affidavit,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// RoleOf returns the role slot personID occupies in the team, if any.
func (t *Team) RoleOf(personID string) (Role, bool) {
	switch {
	case personID == "":
		return "", false
	case personID == t.LeaderID:
		return RoleLeader, true
	case personID == t.TeacherID:
		return RoleTeacher, true
	}
	for _, id := range t.MemberIDs {
		if id == personID {
			return RoleMember, true
		}
	}
	return "", false
}

// StudentIDs returns the leader followed by the members.
func (t *Team) StudentIDs() []string {
	ids := make([]string, 0, len(t.MemberIDs)+1)
	ids = append(ids, t.LeaderID)
	return append(ids, t.MemberIDs...)
}

// CreatedTeam is returned once, right after creation, with every capability link.
type CreatedTeam struct {
	Team        *Team         `json:"team"`
	LeaderLink  string        `json:"leader_link"`
	TeacherLink string        `json:"teacher_link"`
	MemberLinks []*MemberLink `json:"member_links"`
}

type MemberLink struct {
	PersonID string `json:"person_id"`
	Link     string `json:"link"`
}

// TeamView is what a capability holder sees of their team.
type TeamView struct {
	Team         *Team             `json:"team"`
	Verification *VerificationView `json:"verification"`
}

type VerificationView struct {
	AllVerified bool              `json:"all_verified"`
	Verified    map[string]bool   `json:"verified"`
	Names       map[string]string `json:"names"`
	Outstanding []string          `json:"outstanding"`
}

// Affidavits is the leader's completion payload.
type Affidavits struct {
	TeamAffidavit    string  `json:"team_affidavit"`
	ParentsAffidavit string  `json:"parents_affidavit"`
	TeamName         *string `json:"team_name,omitempty"`
}
