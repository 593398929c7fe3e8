package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/internal/validation"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

// ReviewService is the staff side of the pipeline: the review queue and the decisions taken on it.
type ReviewService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	persons repository.PersonRepository
	reviews repository.ReviewRepository

	newID func() string
}

func NewReviewService(tx db.Transactor) *ReviewService {
	return &ReviewService{
		tx:    tx,
		newID: uuid.NewString,
	}
}

// ListByStatus lists teams in any of statuses, most recently completed first.
// An empty filter means the dashboard default.
func (s *ReviewService) ListByStatus(ctx context.Context, statuses []model.TeamStatus) ([]*model.Team, *Error) {
	l := logger.FromContext(ctx)

	if len(statuses) == 0 {
		statuses = model.DashboardStatuses
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, NewValidationError(validation.Errors{{Field: "status", Message: "unknown status " + string(st)}})
		}
	}

	teams, err := s.teams.ListByStatus(ctx, statuses)
	if err != nil {
		l.Error("failed to list teams", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to list teams")
	}
	return teams, nil
}

// NextPending returns the most recently completed team awaiting review, or nil when the queue is empty.
func (s *ReviewService) NextPending(ctx context.Context) (*model.ReviewBundle, *Error) {
	l := logger.FromContext(ctx)

	team, err := s.teams.LatestCompleted(ctx, model.TeamStatusPendingReview)
	if errors.Is(err, repository.ErrNotFound) {
		l.Debug("review queue empty")
		return nil, nil
	}
	if err != nil {
		l.Error("failed to get next pending team", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to get next team")
	}

	return s.bundle(ctx, team)
}

func (s *ReviewService) GetBundle(ctx context.Context, teamID string) (*model.ReviewBundle, *Error) {
	l := logger.FromContext(ctx)

	team, err := s.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to get team")
	}

	return s.bundle(ctx, team)
}

func (s *ReviewService) bundle(ctx context.Context, team *model.Team) (*model.ReviewBundle, *Error) {
	persons, err := s.persons.ListByTeam(ctx, team.ID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list persons", zap.String("team_id", team.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to get team members")
	}
	return bundleOf(team, persons), nil
}

// Decide approves or rejects a team under review. A rejected team returns to filling.
func (s *ReviewService) Decide(ctx context.Context, teamID string, decision model.Decision, reason, staffEmail string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	var to model.TeamStatus
	switch decision {
	case model.DecisionApprove:
		to = model.TeamStatusAwaitingPayment
	case model.DecisionReject:
		if reason == "" {
			return nil, NewValidationError(validation.Errors{{Field: "reason", Message: "is required"}})
		}
		to = model.TeamStatusFilling
	default:
		return nil, NewValidationError(validation.Errors{{Field: "review", Message: "must be one of: approve rejected"}})
	}

	return s.transition(ctx, teamID, model.TeamStatusPendingReview, to, &model.Review{
		TeamID:     teamID,
		Decision:   decision,
		Reason:     reason,
		StaffEmail: staffEmail,
	}, func() *Error {
		l.Warn("decision on team not under review", zap.String("team_id", teamID))
		return NewError(ErrorCodeNotPendingReview, "team is not pending review")
	})
}

// ConfirmPayment accepts a team that has paid.
func (s *ReviewService) ConfirmPayment(ctx context.Context, teamID, staffEmail string) (*model.Team, *Error) {
	return s.transition(ctx, teamID, model.TeamStatusAwaitingPayment, model.TeamStatusAccepted, &model.Review{
		TeamID:     teamID,
		Decision:   model.DecisionPaymentConfirmed,
		StaffEmail: staffEmail,
	}, func() *Error {
		return NewError(ErrorCodeInvalidStatus, "team is not awaiting payment")
	})
}

// transition moves teamID from `from` to `to` under a row lock and records review.
func (s *ReviewService) transition(ctx context.Context, teamID string, from, to model.TeamStatus, review *model.Review, wrongStatus func() *Error) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	var updated *model.Team
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, err := s.teams.GetForUpdate(txCtx, teamID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "team not found")
		}
		if err != nil {
			l.Error("failed to lock team", zap.String("team_id", teamID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to update team")
		}
		if team.Status != from {
			return wrongStatus()
		}

		updated, err = s.teams.Patch(txCtx, &repository.TeamPatch{ID: teamID, Status: &to})
		if err != nil {
			l.Error("failed to update team status", zap.String("team_id", teamID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to update team")
		}

		review.ID = s.newID()
		review.FromStatus = from
		review.ToStatus = to
		if err = s.reviews.Create(txCtx, review); err != nil {
			l.Error("failed to record review", zap.String("team_id", teamID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to update team")
		}
		return nil
	})
	if serr := asServiceError(err); serr != nil {
		return nil, serr
	}

	l.Info("team status changed",
		zap.String("team_id", teamID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("staff_email", review.StaffEmail))

	return updated, nil
}

func (s *ReviewService) History(ctx context.Context, teamID string) ([]*model.Review, *Error) {
	reviews, err := s.reviews.ListByTeam(ctx, teamID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list reviews", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to list reviews")
	}
	return reviews, nil
}

func (s *ReviewService) WithTeamRepo(r repository.TeamRepository) *ReviewService {
	s.teams = r
	return s
}

func (s *ReviewService) WithPersonRepo(r repository.PersonRepository) *ReviewService {
	s.persons = r
	return s
}

func (s *ReviewService) WithReviewRepo(r repository.ReviewRepository) *ReviewService {
	s.reviews = r
	return s
}
