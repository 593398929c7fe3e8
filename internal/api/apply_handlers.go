package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) CreateTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	raw, serr := h.readBody(e)
	if serr != nil {
		return h.transportError(e, serr)
	}

	created, serr := h.registration.CreateTeam(e.Request().Context(), raw)
	if serr != nil {
		l.Error("failed to create team", zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusCreated, created)
}

func (h *Handler) GetTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	view, serr := h.registration.GetTeam(e.Request().Context(), e.QueryParam("auth"))
	if serr != nil {
		l.Error("failed to get team", zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, view)
}

func (h *Handler) GetPerson(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID, personID := e.Param("team_id"), e.Param("person_id")

	person, serr := h.registration.GetPerson(e.Request().Context(), teamID, personID, e.QueryParam("auth"))
	if serr != nil {
		l.Error("failed to get person",
			zap.String("team_id", teamID),
			zap.String("user_id", personID),
			zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, person)
}

// SubmitRoleForm answers 200 when the form is saved and its verification mail sent. A saved
// form whose mail was throttled or failed still returns the saved record next to the error.
func (h *Handler) SubmitRoleForm(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")

	raw, serr := h.readBody(e)
	if serr != nil {
		return h.transportError(e, serr)
	}

	result, serr := h.registration.SubmitRoleForm(e.Request().Context(), teamID, e.QueryParam("auth"), raw)
	if serr != nil {
		l.Error("role form not fully processed", zap.String("team_id", teamID), zap.Any("error", serr))
	}
	if result != nil {
		return respond(e, result, serr)
	}
	return h.transportError(e, serr)
}

func (h *Handler) RequestCompletion(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	raw, serr := h.readBody(e)
	if serr != nil {
		return h.transportError(e, serr)
	}

	team, serr := h.registration.RequestCompletion(e.Request().Context(), e.QueryParam("auth"), raw)
	if serr != nil {
		l.Error("completion not fully processed", zap.Any("error", serr))
	}
	if team != nil {
		return respond(e, team, serr)
	}
	return h.transportError(e, serr)
}

func (h *Handler) UpdateTeamName(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	raw, serr := h.readBody(e)
	if serr != nil {
		return h.transportError(e, serr)
	}

	team, serr := h.registration.UpdateName(e.Request().Context(), e.QueryParam("auth"), raw)
	if serr != nil {
		l.Error("failed to update team name", zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) VerifyEmail(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	person, serr := h.registration.VerifyEmail(e.Request().Context(), e.QueryParam("auth"))
	if serr != nil {
		l.Error("failed to verify email", zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, person)
}
