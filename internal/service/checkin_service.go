package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

type CheckInService struct {
	teams   repository.TeamRepository
	persons repository.PersonRepository
}

func NewCheckInService() *CheckInService {
	return &CheckInService{}
}

// CheckIn flags a person as present. Only accepted teams can check in.
func (s *CheckInService) CheckIn(ctx context.Context, personID string, checkedIn bool) (*model.Person, *Error) {
	l := logger.FromContext(ctx)

	person, err := s.persons.Get(ctx, personID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "person not found")
	}
	if err != nil {
		l.Error("failed to get person", zap.String("user_id", personID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to check in")
	}

	team, err := s.teams.Get(ctx, person.TeamID)
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", person.TeamID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to check in")
	}
	if team.Status != model.TeamStatusAccepted {
		l.Warn("check-in for team not accepted", zap.String("team_id", team.ID), zap.String("status", string(team.Status)))
		return nil, NewError(ErrorCodeInvalidStatus, "team has not been accepted")
	}

	if err = s.persons.SetCheckedIn(ctx, personID, checkedIn); err != nil {
		l.Error("failed to set check-in", zap.String("user_id", personID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to check in")
	}

	person.CheckedIn = checkedIn
	l.Info("check-in updated", zap.String("user_id", personID), zap.Bool("checked_in", checkedIn))

	return person, nil
}

// ResetCheckIns clears every check-in flag and reports how many were set.
func (s *CheckInService) ResetCheckIns(ctx context.Context) (int64, *Error) {
	n, err := s.persons.ResetCheckIns(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to reset check-ins", zap.Error(err))
		return 0, NewError(ErrorCodeUpstreamFailure, "failed to reset check-ins")
	}
	return n, nil
}

func (s *CheckInService) WithTeamRepo(r repository.TeamRepository) *CheckInService {
	s.teams = r
	return s
}

func (s *CheckInService) WithPersonRepo(r repository.PersonRepository) *CheckInService {
	s.persons = r
	return s
}
