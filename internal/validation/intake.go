package validation

import (
	"strings"

	"github.com/yakoovad/scrapyard-registration/internal/model"
)

type TeamIntake struct {
	TeamName     string `json:"team_name" validate:"required,max=24"`
	TeamSize     int    `json:"team_size" validate:"required,min=3,max=5"`
	LearnAboutUs string `json:"learn_about_us" validate:"required,discovery"`
}

func (t *TeamIntake) normalize() {
	t.TeamName = strings.TrimSpace(t.TeamName)
	t.LearnAboutUs = strings.TrimSpace(t.LearnAboutUs)
}

type StudentIDCard struct {
	CardFront string `json:"card_front" validate:"required,url"`
	CardBack  string `json:"card_back" validate:"required,url"`
}

// MemberIntake is the form filled by members, and by the leader under strict decoding.
type MemberIntake struct {
	NameEn                    string        `json:"name_en" validate:"required,max=36"`
	NameZh                    string        `json:"name_zh" validate:"required,max=6"`
	Grade                     string        `json:"grade" validate:"required,oneof=高中/職/專科一年級 高中/職/專科二年級 高中/職/專科三年級"`
	School                    string        `json:"school" validate:"required,max=30"`
	StudentID                 StudentIDCard `json:"student_id"`
	ShirtSize                 string        `json:"shirt_size" validate:"required,oneof=S M L XL"`
	Telephone                 string        `json:"telephone" validate:"required,numeric,len=10"`
	Email                     string        `json:"email" validate:"required,email,max=254"`
	Diet                      string        `json:"diet" validate:"max=100"`
	SpecialNeeds              string        `json:"special_needs" validate:"max=100"`
	NationalID                string        `json:"national_id" validate:"required,twid"`
	PersonalAffidavit         string        `json:"personal_affidavit" validate:"omitempty,url"`
	EmergencyContactName      string        `json:"emergency_contact_name" validate:"required,max=36"`
	EmergencyContactTelephone string        `json:"emergency_contact_telephone" validate:"required,numeric,len=10"`
	EmergencyContactRelation  string        `json:"emergency_contact_relation" validate:"required,min=1,max=10"`
	IsLeader                  bool          `json:"is_leader"`
}

func (m *MemberIntake) normalize() {
	trim(&m.NameEn, &m.NameZh, &m.Grade, &m.School, &m.ShirtSize, &m.Telephone, &m.Diet,
		&m.SpecialNeeds, &m.PersonalAffidavit, &m.EmergencyContactName,
		&m.EmergencyContactTelephone, &m.EmergencyContactRelation,
		&m.StudentID.CardFront, &m.StudentID.CardBack)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.NationalID = strings.ToUpper(strings.TrimSpace(m.NationalID))
}

// Person maps the intake onto a person record for role.
func (m *MemberIntake) Person(id, teamID string, role model.Role) *model.Person {
	return &model.Person{
		ID:        id,
		TeamID:    teamID,
		Role:      role,
		IsLeader:  role == model.RoleLeader,
		NameZh:    m.NameZh,
		NameEn:    m.NameEn,
		Email:     m.Email,
		Telephone: m.Telephone,
		Profile: map[string]any{
			"grade":      m.Grade,
			"school":     m.School,
			"shirt_size": m.ShirtSize,
			"student_id": map[string]any{
				"card_front": m.StudentID.CardFront,
				"card_back":  m.StudentID.CardBack,
			},
			"national_id":                 m.NationalID,
			"personal_affidavit":          m.PersonalAffidavit,
			"diet":                        m.Diet,
			"special_needs":               m.SpecialNeeds,
			"emergency_contact_name":      m.EmergencyContactName,
			"emergency_contact_telephone": m.EmergencyContactTelephone,
			"emergency_contact_relation":  m.EmergencyContactRelation,
		},
	}
}

type TeacherIntake struct {
	NameEn           string `json:"name_en" validate:"required,max=36"`
	NameZh           string `json:"name_zh" validate:"required,max=6"`
	School           string `json:"school" validate:"required,max=30"`
	Telephone        string `json:"telephone" validate:"required,numeric,len=10"`
	Email            string `json:"email" validate:"required,email,max=254"`
	WillAttend       *bool  `json:"will_attend" validate:"required"`
	Diet             string `json:"diet" validate:"max=100"`
	SpecialNeeds     string `json:"special_needs" validate:"max=100"`
	NationalID       string `json:"national_id" validate:"required,twid"`
	TeacherAffidavit string `json:"teacher_affidavit" validate:"omitempty,url"`
}

func (t *TeacherIntake) normalize() {
	trim(&t.NameEn, &t.NameZh, &t.School, &t.Telephone, &t.Diet, &t.SpecialNeeds, &t.TeacherAffidavit)
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	t.NationalID = strings.ToUpper(strings.TrimSpace(t.NationalID))
}

func (t *TeacherIntake) Person(id, teamID string) *model.Person {
	return &model.Person{
		ID:        id,
		TeamID:    teamID,
		Role:      model.RoleTeacher,
		NameZh:    t.NameZh,
		NameEn:    t.NameEn,
		Email:     t.Email,
		Telephone: t.Telephone,
		Profile: map[string]any{
			"school":            t.School,
			"will_attend":       *t.WillAttend,
			"national_id":       t.NationalID,
			"teacher_affidavit": t.TeacherAffidavit,
			"diet":              t.Diet,
			"special_needs":     t.SpecialNeeds,
		},
	}
}

type AffidavitsIntake struct {
	TeamAffidavit    string  `json:"team_affidavit" validate:"required,url"`
	ParentsAffidavit string  `json:"parents_affidavit" validate:"required,url"`
	TeamName         *string `json:"team_name" validate:"omitempty,min=1,max=24"`
}

func (a *AffidavitsIntake) normalize() {
	trim(&a.TeamAffidavit, &a.ParentsAffidavit)
	if a.TeamName != nil {
		name := strings.TrimSpace(*a.TeamName)
		a.TeamName = &name
	}
}

type TeamNameIntake struct {
	TeamName string `json:"team_name" validate:"required,max=24"`
}

func (t *TeamNameIntake) normalize() {
	t.TeamName = strings.TrimSpace(t.TeamName)
}

type ReviewIntake struct {
	TeamID string         `json:"_id" validate:"required"`
	Review model.Decision `json:"review" validate:"required,oneof=approve rejected"`
	Reason string         `json:"reason" validate:"required_if=Review rejected,max=500"`
}

func (r *ReviewIntake) normalize() {
	r.TeamID = strings.TrimSpace(r.TeamID)
	r.Reason = strings.TrimSpace(r.Reason)
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
