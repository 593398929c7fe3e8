package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/service"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) SendStaffCode(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if err := h.staffAuth.SendCode(e.Request().Context(), req.Email); err != nil {
		l.Error("failed to send staff code", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]bool{"sent": true})
}

func (h *Handler) VerifyStaffCode(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	session, err := h.staffAuth.VerifyCode(e.Request().Context(), req.Email, req.Code)
	if err != nil {
		l.Error("failed to verify staff code", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	e.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return e.JSON(http.StatusOK, session)
}

func (h *Handler) VerifyStaffSession(e echo.Context) error {
	email, err := h.staffAuth.VerifySession(e.Request().Context(), sessionToken(e))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]string{"email": email})
}

func (h *Handler) StaffLogout(e echo.Context) error {
	if token := sessionToken(e); token != "" {
		if err := h.staffAuth.Logout(e.Request().Context(), token); err != nil {
			return h.transportError(e, err)
		}
	}

	e.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTeams(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var statuses []model.TeamStatus
	for _, param := range e.QueryParams()["status"] {
		for _, s := range strings.Split(param, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, model.TeamStatus(s))
			}
		}
	}

	teams, err := h.review.ListByStatus(e.Request().Context(), statuses)
	if err != nil {
		l.Error("failed to list teams", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) NextPendingTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	bundle, err := h.review.NextPending(e.Request().Context())
	if err != nil {
		l.Error("failed to get next pending team", zap.Any("error", err))
		return h.transportError(e, err)
	}
	if bundle == nil {
		return e.JSON(http.StatusOK, map[string]string{"code": "NO_MORE_TEAMS"})
	}

	return e.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetTeamBundle(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")

	bundle, err := h.review.GetBundle(e.Request().Context(), teamID)
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, bundle)
}

func (h *Handler) ReviewHistory(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")

	reviews, err := h.review.History(e.Request().Context(), teamID)
	if err != nil {
		l.Error("failed to get review history", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, reviews)
}

func (h *Handler) DecideTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	raw, serr := h.readBody(e)
	if serr != nil {
		return h.transportError(e, serr)
	}

	in, errs := h.validator.DecodeReview(raw)
	if len(errs) > 0 {
		return h.transportError(e, service.NewValidationError(errs))
	}

	staffEmail := StaffEmail(e)

	l.Info("reviewing team",
		zap.String("team_id", in.TeamID),
		zap.String("decision", string(in.Review)),
		zap.String("staff_email", staffEmail))

	team, err := h.review.Decide(e.Request().Context(), in.TeamID, in.Review, in.Reason, staffEmail)
	if err != nil {
		l.Error("failed to review team", zap.String("team_id", in.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) ConfirmPayment(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		TeamID string `json:"_id" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	team, err := h.review.ConfirmPayment(e.Request().Context(), req.TeamID, StaffEmail(e))
	if err != nil {
		l.Error("failed to confirm payment", zap.String("team_id", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) CheckIn(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		PersonID  string `json:"person_id" validate:"required"`
		CheckedIn *bool  `json:"checked_in" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	person, err := h.checkIn.CheckIn(e.Request().Context(), req.PersonID, *req.CheckedIn)
	if err != nil {
		l.Error("failed to check in", zap.String("user_id", req.PersonID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, person)
}
