package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/scrapyard-registration/internal/auth"
	"github.com/yakoovad/scrapyard-registration/internal/config"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/ratelimit"
)

const testSecret = "test-secret-key-for-predictable-results"

var testSigner = auth.NewSigner(testSecret, time.Hour)

type registrationMocks struct {
	teams    *MockTeamRepository
	persons  *MockPersonRepository
	limiter  *MockRateLimiter
	sender   *MockSender
	notifier *MockNotifier
}

func newRegistrationMocks() *registrationMocks {
	return &registrationMocks{
		teams:    new(MockTeamRepository),
		persons:  new(MockPersonRepository),
		limiter:  new(MockRateLimiter),
		sender:   new(MockSender),
		notifier: new(MockNotifier),
	}
}

func (m *registrationMocks) service() *RegistrationService {
	return NewRegistrationService(new(MockTransactor)).
		WithTeamRepo(m.teams).
		WithPersonRepo(m.persons).
		WithSigner(testSigner, auth.NewLinks("https://scrapyard.hackit.tw")).
		WithGate(NewVerificationGate(m.persons, config.TeacherRequired)).
		WithLimiter(m.limiter).
		WithMailer(m.sender).
		WithNotifier(m.notifier)
}

func (m *registrationMocks) assertExpectations(t *testing.T) {
	m.teams.AssertExpectations(t)
	m.persons.AssertExpectations(t)
	m.limiter.AssertExpectations(t)
	m.sender.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func testTeam(status model.TeamStatus) *model.Team {
	return &model.Team{
		ID:           "team-1",
		Name:         "廢料場",
		Size:         3,
		LearnAboutUs: "社群媒體",
		Status:       status,
		LeaderID:     "leader-1",
		TeacherID:    "teacher-1",
		MemberIDs:    []string{"member-1", "member-2"},
	}
}

func verifiedPersons() []*model.Person {
	return []*model.Person{
		{ID: "leader-1", TeamID: "team-1", Role: model.RoleLeader, NameZh: "李隊長", Email: "lead@x.tw", EmailVerified: true},
		{ID: "member-1", TeamID: "team-1", Role: model.RoleMember, NameZh: "王小明", Email: "m1@x.tw", EmailVerified: true},
		{ID: "member-2", TeamID: "team-1", Role: model.RoleMember, NameZh: "陳小華", Email: "m2@x.tw", EmailVerified: true},
		{ID: "teacher-1", TeamID: "team-1", Role: model.RoleTeacher, NameZh: "陳老師", Email: "teacher@x.tw", EmailVerified: true},
	}
}

func issue(t *testing.T, teamID, personID string, role model.Role) string {
	t.Helper()
	token, err := testSigner.Issue(teamID, personID, role)
	require.NoError(t, err)
	return token
}

func tokenFromLink(t *testing.T, link string) *auth.TokenClaims {
	t.Helper()
	parts := strings.SplitN(link, "?auth=", 2)
	require.Len(t, parts, 2)
	claims, err := testSigner.Verify(parts[1])
	require.NoError(t, err)
	return claims
}

func memberPayload(overrides map[string]any) []byte {
	p := map[string]any{
		"name_en": "Wang Xiao Ming",
		"name_zh": "王小明",
		"grade":   "高中/職/專科二年級",
		"school":  "建國中學",
		"student_id": map[string]any{
			"card_front": "https://files.hackit.tw/front.png",
			"card_back":  "https://files.hackit.tw/back.png",
		},
		"shirt_size":                  "M",
		"telephone":                   "0912345678",
		"email":                       "ming@example.com",
		"national_id":                 "A123456789",
		"emergency_contact_name":      "王大明",
		"emergency_contact_telephone": "0987654321",
		"emergency_contact_relation":  "父親",
	}
	for k, v := range overrides {
		if v == nil {
			delete(p, k)
			continue
		}
		p[k] = v
	}
	b, _ := json.Marshal(p)
	return b
}

func allowed() *ratelimit.Result {
	return &ratelimit.Result{Allowed: true, Remaining: 4}
}

func assertCode(t *testing.T, err *Error, code ErrorCode) {
	t.Helper()
	if code == "" {
		assert.Nil(t, err)
		return
	}
	require.NotNil(t, err)
	assert.Equal(t, code, err.Code)
}

var errDB = errors.New("db error")
