package model

import "time"

type Role string

const (
	RoleLeader  Role = "leader"
	RoleMember  Role = "member"
	RoleTeacher Role = "teacher"
)

func (r Role) Valid() bool {
	return r == RoleLeader || r == RoleMember || r == RoleTeacher
}

// Person holds a leader, member or teacher record. Role-specific answers live in Profile.
type Person struct {
	ID            string         `json:"id"`
	TeamID        string         `json:"team_id"`
	Role          Role           `json:"role"`
	IsLeader      bool           `json:"is_leader"`
	NameZh        string         `json:"name_zh"`
	NameEn        string         `json:"name_en"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Telephone     string         `json:"telephone"`
	Profile       map[string]any `json:"profile"`
	CheckedIn     bool           `json:"checked_in"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DisplayName prefers the Chinese name.
func (p *Person) DisplayName() string {
	if p.NameZh != "" {
		return p.NameZh
	}
	return p.NameEn
}

// SubmitResult reports what happened to a role form submission.
type SubmitResult struct {
	Person            *Person `json:"person"`
	VerificationSent  bool    `json:"verification_sent"`
	VerificationError string  `json:"verification_error,omitempty"`
}
