package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/scrapyard-registration/internal/auth"
	"github.com/yakoovad/scrapyard-registration/internal/config"
	"github.com/yakoovad/scrapyard-registration/internal/kv"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/ratelimit"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/internal/service"
	"go.uber.org/zap"
)

const (
	testStaffEmail   = "amy@staff.hackit.tw"
	testSessionToken = "live-session"
)

type fixture struct {
	e       *echo.Echo
	signer  *auth.Signer
	store   *kv.Memory
	teams   *service.MockTeamRepository
	persons *service.MockPersonRepository
	reviews *service.MockReviewRepository
	staff   *service.MockStaffRepository
	sender  *service.MockSender
	limiter *service.MockRateLimiter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		e:       echo.New(),
		signer:  auth.NewSigner("handler-test-secret", time.Hour),
		store:   kv.NewMemory(),
		teams:   new(service.MockTeamRepository),
		persons: new(service.MockPersonRepository),
		reviews: new(service.MockReviewRepository),
		staff:   new(service.MockStaffRepository),
		sender:  new(service.MockSender),
		limiter: new(service.MockRateLimiter),
	}

	tx := new(service.MockTransactor)

	registration := service.NewRegistrationService(tx).
		WithTeamRepo(f.teams).
		WithPersonRepo(f.persons).
		WithSigner(f.signer, auth.NewLinks("https://scrapyard.hackit.tw")).
		WithGate(service.NewVerificationGate(f.persons, config.TeacherRequired)).
		WithLimiter(f.limiter).
		WithMailer(f.sender)
	review := service.NewReviewService(tx).
		WithTeamRepo(f.teams).
		WithPersonRepo(f.persons).
		WithReviewRepo(f.reviews)
	staffAuth := service.NewStaffAuthService(config.StaffConfig{
		EmailDomain: "staff.hackit.tw",
		OTPTTL:      5 * time.Minute,
		SessionTTL:  time.Hour,
	}).
		WithStaffRepo(f.staff).
		WithStore(f.store).
		WithMailer(f.sender).
		WithLimiter(f.limiter)
	checkIn := service.NewCheckInService().WithTeamRepo(f.teams).WithPersonRepo(f.persons)

	NewHandler(zap.NewNop()).
		WithRegistrationService(registration).
		WithReviewService(review).
		WithStaffAuthService(staffAuth).
		WithCheckInService(checkIn).
		RegisterRoutes(f.e)

	require.NoError(t, f.store.Set(context.Background(), "session:"+testSessionToken, testStaffEmail, time.Hour))

	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.teams.AssertExpectations(t)
	f.persons.AssertExpectations(t)
	f.reviews.AssertExpectations(t)
	f.staff.AssertExpectations(t)
	f.sender.AssertExpectations(t)
	f.limiter.AssertExpectations(t)
}

func (f *fixture) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) token(t *testing.T, personID string, role model.Role) string {
	t.Helper()
	token, err := f.signer.Issue("team-1", personID, role)
	require.NoError(t, err)
	return url.QueryEscape(token)
}

func staffHeader() http.Header {
	return http.Header{"X-Staff-Session": []string{testSessionToken}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error: %s", rec.Body.String())
	return errBody["code"].(string)
}

func team(status model.TeamStatus) *model.Team {
	return &model.Team{
		ID:        "team-1",
		Name:      "廢料場",
		Size:      3,
		Status:    status,
		LeaderID:  "leader-1",
		TeacherID: "teacher-1",
		MemberIDs: []string{"member-1", "member-2"},
	}
}

const memberForm = `{
	"name_en":"Wang Xiao Ming","name_zh":"王小明","grade":"高中/職/專科二年級","school":"建國中學",
	"student_id":{"card_front":"https://files.hackit.tw/f.png","card_back":"https://files.hackit.tw/b.png"},
	"shirt_size":"M","telephone":"0912345678","email":"ming@example.com","national_id":"A123456789",
	"emergency_contact_name":"王大明","emergency_contact_telephone":"0987654321","emergency_contact_relation":"父親"
}`

func TestHandler_CreateTeam(t *testing.T) {
	t.Run("invalid intake lists field errors", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/apply/team", `{"team_name":"廢料場","team_size":9,"learn_about_us":"社群媒體"}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
		assert.NotEmpty(t, errBody["fields"])
		f.assertExpectations(t)
	})

	t.Run("created", func(t *testing.T) {
		f := newFixture(t)
		f.teams.On("GetActiveByName", mock.Anything, "廢料場").Return(nil, repository.ErrNotFound)
		f.teams.On("Create", mock.Anything, mock.Anything).Return(nil)

		rec := f.do(http.MethodPost, "/api/apply/team", `{"team_name":"廢料場","team_size":3,"learn_about_us":"社群媒體"}`, nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		assert.Contains(t, body["leader_link"], "/leader?auth=")
		assert.Len(t, body["member_links"], 2)
		f.assertExpectations(t)
	})
}

func TestHandler_SubmitRoleForm(t *testing.T) {
	saved := &model.Person{ID: "member-1", TeamID: "team-1", Role: model.RoleMember, Email: "ming@example.com"}

	tests := []struct {
		name       string
		setupMocks func(*fixture)
		status     int
		code       string
		retryAfter string
	}{
		{
			name: "saved and mailed",
			setupMocks: func(f *fixture) {
				f.limiter.On("Allow", mock.Anything, "member-1").Return(&ratelimit.Result{Allowed: true}, nil)
				f.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
			},
			status: http.StatusOK,
		},
		{
			name: "saved but throttled",
			setupMocks: func(f *fixture) {
				f.limiter.On("Allow", mock.Anything, "member-1").Return(&ratelimit.Result{RetryAfter: 30 * time.Minute}, nil)
			},
			status:     http.StatusTooManyRequests,
			code:       "RATE_LIMITED",
			retryAfter: "1800",
		},
		{
			name: "saved but mail failed",
			setupMocks: func(f *fixture) {
				f.limiter.On("Allow", mock.Anything, "member-1").Return(&ratelimit.Result{Allowed: true}, nil)
				f.sender.On("Send", mock.Anything, mock.Anything).Return(assert.AnError)
			},
			status: http.StatusAccepted,
			code:   "NOTIFICATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.teams.On("Get", mock.Anything, "team-1").Return(team(model.TeamStatusFilling), nil)
			f.persons.On("Upsert", mock.Anything, mock.Anything).Return(saved, nil)
			tt.setupMocks(f)

			rec := f.do(http.MethodPost, "/api/apply/team/team-1/member?auth="+f.token(t, "member-1", model.RoleMember), memberForm, nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			body := decode(t, rec)
			if tt.code == "" {
				assert.Equal(t, true, body["verification_sent"])
			} else {
				assert.Equal(t, tt.code, errorCode(t, rec))
				data := body["data"].(map[string]any)
				assert.Equal(t, "member-1", data["person"].(map[string]any)["id"])
			}
			f.assertExpectations(t)
		})
	}
}

func TestHandler_ApplyAuthorization(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/apply/team?auth=forged", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTHORIZATION_FAILED", errorCode(t, rec))

	rec = f.do(http.MethodPost, "/api/apply/team/complete?auth="+f.token(t, "member-1", model.RoleMember), `{}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.assertExpectations(t)
}

func TestHandler_StaffSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/staff/approve/getteam", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "STAFF_UNAUTHORIZED", errorCode(t, rec))

	rec = f.do(http.MethodGet, "/api/staff/approve/getteam", "", http.Header{"Cookie": []string{"session=forged"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/staff/auth/session/verify", "", http.Header{"Cookie": []string{"session=" + testSessionToken}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testStaffEmail, decode(t, rec)["email"])
}

func TestHandler_NextPendingTeam(t *testing.T) {
	f := newFixture(t)
	f.teams.On("LatestCompleted", mock.Anything, model.TeamStatusPendingReview).Return(nil, repository.ErrNotFound).Once()
	f.teams.On("LatestCompleted", mock.Anything, model.TeamStatusPendingReview).Return(team(model.TeamStatusPendingReview), nil).Once()
	f.persons.On("ListByTeam", mock.Anything, "team-1").Return([]*model.Person{}, nil)

	rec := f.do(http.MethodGet, "/api/staff/approve/getteam", "", staffHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NO_MORE_TEAMS", decode(t, rec)["code"])

	rec = f.do(http.MethodGet, "/api/staff/approve/getteam", "", staffHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "team-1", decode(t, rec)["team"].(map[string]any)["id"])

	f.assertExpectations(t)
}

func TestHandler_ListTeams(t *testing.T) {
	f := newFixture(t)
	f.teams.On("ListByStatus", mock.Anything, []model.TeamStatus{model.TeamStatusAwaitingPayment, model.TeamStatusAccepted}).
		Return([]*model.Team{team(model.TeamStatusAccepted)}, nil)

	rec := f.do(http.MethodGet, "/api/staff/approve/get-all-team?status="+url.QueryEscape("待繳費,已接受"), "", staffHeader())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/staff/approve/get-all-team?status=bogus", "", staffHeader())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.assertExpectations(t)
}

func TestHandler_DecideTeam(t *testing.T) {
	t.Run("rejection needs a reason", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/staff/approve", `{"_id":"team-1","review":"rejected"}`, staffHeader())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
		f.assertExpectations(t)
	})

	t.Run("approval is attributed to the session", func(t *testing.T) {
		f := newFixture(t)
		f.teams.On("GetForUpdate", mock.Anything, "team-1").Return(team(model.TeamStatusPendingReview), nil)
		f.teams.On("Patch", mock.Anything, mock.Anything).Return(team(model.TeamStatusAwaitingPayment), nil)
		f.reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Review) bool {
			return r.StaffEmail == testStaffEmail && r.Decision == model.DecisionApprove
		})).Return(nil)

		rec := f.do(http.MethodPost, "/api/staff/approve", `{"_id":"team-1","review":"approve"}`, staffHeader())

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, string(model.TeamStatusAwaitingPayment), decode(t, rec)["status"])
		f.assertExpectations(t)
	})

	t.Run("team no longer under review", func(t *testing.T) {
		f := newFixture(t)
		f.teams.On("GetForUpdate", mock.Anything, "team-1").Return(team(model.TeamStatusAccepted), nil)

		rec := f.do(http.MethodPost, "/api/staff/approve", `{"_id":"team-1","review":"approve"}`, staffHeader())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NOT_PENDING_REVIEW", errorCode(t, rec))
		f.assertExpectations(t)
	})
}

func TestHandler_CheckIn(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/staff/checkin", `{"person_id":"member-1"}`, staffHeader())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	f.persons.On("Get", mock.Anything, "member-1").Return(&model.Person{ID: "member-1", TeamID: "team-1"}, nil)
	f.teams.On("Get", mock.Anything, "team-1").Return(team(model.TeamStatusPendingReview), nil)

	rec = f.do(http.MethodPost, "/api/staff/checkin", `{"person_id":"member-1","checked_in":true}`, staffHeader())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATUS", errorCode(t, rec))

	f.assertExpectations(t)
}

func TestStatusOf(t *testing.T) {
	tests := map[service.ErrorCode]int{
		service.ErrorCodeAuthorizationFailed: http.StatusForbidden,
		service.ErrorCodeStaffUnauthorized:   http.StatusUnauthorized,
		service.ErrorCodeDuplicateName:       http.StatusBadRequest,
		service.ErrorCodeNotAllVerified:      http.StatusBadRequest,
		service.ErrorCodeRoleStateConflict:   http.StatusConflict,
		service.ErrorCodeNotFound:            http.StatusNotFound,
		service.ErrorCodeRateLimited:         http.StatusTooManyRequests,
		service.ErrorCodeNotificationFailed:  http.StatusAccepted,
		service.ErrorCodeUpstreamFailure:     http.StatusInternalServerError,
	}
	for code, status := range tests {
		assert.Equal(t, status, statusOf(code), code)
	}
}
