package auth

import (
	"net/url"
	"strings"

	"github.com/yakoovad/scrapyard-registration/internal/model"
)

// Links renders the external URLs capability tokens travel in.
type Links struct {
	baseURL string
}

func NewLinks(baseURL string) *Links {
	return &Links{baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *Links) withToken(path, token string) string {
	return l.baseURL + path + "?auth=" + url.QueryEscape(token)
}

// Form is the link a person of role uses to fill in their form.
func (l *Links) Form(teamID string, role model.Role, token string) string {
	sub := "member"
	switch role {
	case model.RoleTeacher:
		sub = "teacher"
	case model.RoleLeader:
		sub = "leader"
	}
	return l.withToken("/apply/steps/"+url.PathEscape(teamID)+"/"+sub, token)
}

// Finish is the leader's completion and edit page.
func (l *Links) Finish(teamID, token string) string {
	return l.withToken("/apply/steps/"+url.PathEscape(teamID)+"/finish-page", token)
}

func (l *Links) EmailVerification(token string) string {
	return l.withToken("/apply/email-verify", token)
}

func (l *Links) StaffDashboard() string {
	return l.baseURL + "/staff/approve"
}
