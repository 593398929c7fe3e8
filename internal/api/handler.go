package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yakoovad/scrapyard-registration/internal/service"
	"github.com/yakoovad/scrapyard-registration/internal/validation"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every request body; forms carry links, never files.
const maxBodyBytes = 64 << 10

type Handler struct {
	registration *service.RegistrationService
	review       *service.ReviewService
	staffAuth    *service.StaffAuthService
	checkIn      *service.CheckInService

	healthChecker HealthChecker
	validator     *validation.Validator
	secureCookies bool

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger:    logger,
		validator: validation.New(),
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithRegistrationService(s *service.RegistrationService) *Handler {
	h.registration = s
	return h
}

func (h *Handler) WithReviewService(s *service.ReviewService) *Handler {
	h.review = s
	return h
}

func (h *Handler) WithStaffAuthService(s *service.StaffAuthService) *Handler {
	h.staffAuth = s
	return h
}

func (h *Handler) WithCheckInService(s *service.CheckInService) *Handler {
	h.checkIn = s
	return h
}

// WithSecureCookies marks the staff session cookie Secure, for deployments behind TLS.
func (h *Handler) WithSecureCookies(secure bool) *Handler {
	h.secureCookies = secure
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = h.validator
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(strconv.Itoa(maxBodyBytes / 1024) + "K"))

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	apply := e.Group("/api/apply")

	apply.POST("/team", h.CreateTeam)
	apply.GET("/team", h.GetTeam)
	apply.POST("/team/complete", h.RequestCompletion)
	apply.POST("/team/update-name", h.UpdateTeamName)
	apply.GET("/team/:team_id/:person_id", h.GetPerson)
	apply.POST("/team/:team_id/member", h.SubmitRoleForm)
	apply.POST("/email-verify", h.VerifyEmail)

	staffAuth := e.Group("/api/staff/auth")

	staffAuth.POST("/send-code", h.SendStaffCode)
	staffAuth.POST("/verify-code", h.VerifyStaffCode)
	staffAuth.POST("/session/verify", h.VerifyStaffSession)
	staffAuth.POST("/logout", h.StaffLogout)

	staff := e.Group("/api/staff", StaffSessionMiddleware(h.staffAuth))

	staff.GET("/approve/get-all-team", h.ListTeams)
	staff.GET("/approve/getteam", h.NextPendingTeam)
	staff.GET("/approve/team/:team_id", h.GetTeamBundle)
	staff.GET("/approve/history/:team_id", h.ReviewHistory)
	staff.POST("/approve", h.DecideTeam)
	staff.POST("/approve/confirm-payment", h.ConfirmPayment)
	staff.POST("/checkin", h.CheckIn)
}

// readBody returns the raw request body for handlers that decode strictly themselves.
func (h *Handler) readBody(e echo.Context) ([]byte, *service.Error) {
	raw, err := io.ReadAll(e.Request().Body)
	if err != nil {
		return nil, service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}
	return raw, nil
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	return ProcessRequest(e, req, bindStep, validateStep)
}

func bindStep(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}
	return nil
}

func validateStep(e echo.Context, req any) *service.Error {
	if err := e.Validate(req); err != nil {
		if fields, ok := err.(validation.Errors); ok {
			return service.NewValidationError(fields)
		}
		return service.NewError(service.ErrorCodeInvalidBody, err.Error())
	}
	return nil
}

func statusOf(code service.ErrorCode) int {
	switch code {
	case service.ErrorCodeAuthorizationFailed:
		return http.StatusForbidden
	case service.ErrorCodeStaffUnauthorized:
		return http.StatusUnauthorized
	case service.ErrorCodeValidationFailed, service.ErrorCodeInvalidBody,
		service.ErrorCodeDuplicateName, service.ErrorCodeNoChange, service.ErrorCodeNotAllVerified,
		service.ErrorCodeNotPendingReview, service.ErrorCodeInvalidOTP:
		return http.StatusBadRequest
	case service.ErrorCodeRoleStateConflict, service.ErrorCodeInvalidStatus:
		return http.StatusConflict
	case service.ErrorCodeNotFound:
		return http.StatusNotFound
	case service.ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case service.ErrorCodeNotificationFailed:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	return respond(e, nil, err)
}

// respond writes data on success. When err is set the body carries the error and, for
// partial successes such as a saved form whose email was not sent, the data as well.
func respond(e echo.Context, data any, err *service.Error) error {
	if err == nil {
		return e.JSON(http.StatusOK, data)
	}

	if err.RetryAfter > 0 {
		e.Response().Header().Set("Retry-After", strconv.Itoa(err.RetryAfter))
	}

	response := struct {
		Data  any            `json:"data,omitempty"`
		Error *service.Error `json:"error"`
	}{Data: data, Error: err}

	return e.JSON(statusOf(err.Code), response)
}
