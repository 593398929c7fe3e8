package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/auth"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/notify"
	"github.com/yakoovad/scrapyard-registration/internal/ratelimit"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/internal/validation"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

type TokenSigner interface {
	Issue(teamID, personID string, role model.Role) (string, error)
	IssueVerification(teamID, personID string, role model.Role, email string) (string, error)
	VerifyPurpose(token string, purpose auth.Purpose) (*auth.TokenClaims, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, subject string) (*ratelimit.Result, error)
}

type RegistrationService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	persons repository.PersonRepository

	signer    TokenSigner
	links     *auth.Links
	validator *validation.Validator
	gate      *VerificationGate
	limiter   RateLimiter
	mailer    notify.Sender
	notifier  notify.CompletionNotifier

	newID func() string
	now   func() time.Time
}

func NewRegistrationService(tx db.Transactor) *RegistrationService {
	return &RegistrationService{
		tx:        tx,
		validator: validation.New(),
		notifier:  notify.NewNopNotifier(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// CreateTeam validates the intake, reserves the name and hands out one capability link per slot.
func (s *RegistrationService) CreateTeam(ctx context.Context, raw []byte) (*model.CreatedTeam, *Error) {
	l := logger.FromContext(ctx)

	in, errs := s.validator.DecodeTeam(raw)
	if len(errs) > 0 {
		l.Warn("invalid team intake", zap.Any("fields", errs))
		return nil, NewValidationError(errs)
	}

	if existing, err := s.teams.GetActiveByName(ctx, in.TeamName); err == nil && existing != nil {
		l.Warn("team name taken", zap.String("team_name", in.TeamName))
		return nil, NewError(ErrorCodeDuplicateName, "team name already taken")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to look up team name", zap.String("team_name", in.TeamName), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to create team")
	}

	team := &model.Team{
		ID:           s.newID(),
		Name:         in.TeamName,
		Size:         in.TeamSize,
		LearnAboutUs: in.LearnAboutUs,
		Status:       model.TeamStatusFilling,
		LeaderID:     s.newID(),
		TeacherID:    s.newID(),
		MemberIDs:    make([]string, 0, in.TeamSize-1),
	}
	for i := 0; i < in.TeamSize-1; i++ {
		team.MemberIDs = append(team.MemberIDs, s.newID())
	}

	created := &model.CreatedTeam{
		Team:        team,
		MemberLinks: make([]*model.MemberLink, 0, len(team.MemberIDs)),
	}

	leaderToken, err := s.signer.Issue(team.ID, team.LeaderID, model.RoleLeader)
	if err != nil {
		l.Error("failed to issue leader token", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to issue tokens")
	}
	created.LeaderLink = s.links.Form(team.ID, model.RoleLeader, leaderToken)

	teacherToken, err := s.signer.Issue(team.ID, team.TeacherID, model.RoleTeacher)
	if err != nil {
		l.Error("failed to issue teacher token", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to issue tokens")
	}
	created.TeacherLink = s.links.Form(team.ID, model.RoleTeacher, teacherToken)

	for _, id := range team.MemberIDs {
		token, err := s.signer.Issue(team.ID, id, model.RoleMember)
		if err != nil {
			l.Error("failed to issue member token", zap.Error(err))
			return nil, NewError(ErrorCodeUpstreamFailure, "failed to issue tokens")
		}
		created.MemberLinks = append(created.MemberLinks, &model.MemberLink{
			PersonID: id,
			Link:     s.links.Form(team.ID, model.RoleMember, token),
		})
	}

	err = s.teams.Create(ctx, team)
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("team name taken", zap.String("team_name", team.Name))
		return nil, NewError(ErrorCodeDuplicateName, "team name already taken")
	}
	if err != nil {
		l.Error("failed to create team", zap.String("team_name", team.Name), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to create team")
	}

	l.Info("team created", zap.String("team_id", team.ID), zap.Int("team_size", team.Size))

	return created, nil
}

// authorize verifies an access token and that its holder occupies the claimed slot in team.
func (s *RegistrationService) authorize(ctx context.Context, token, teamID string, roles ...model.Role) (*auth.TokenClaims, *model.Team, *Error) {
	l := logger.FromContext(ctx)

	claims, err := s.signer.VerifyPurpose(token, auth.PurposeAccess)
	if err != nil {
		l.Warn("rejected token", zap.Error(err))
		return nil, nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}
	if teamID == "" {
		teamID = claims.TeamID
	}
	if err = claims.Authorize(teamID, roles...); err != nil {
		l.Warn("token not valid for team", zap.String("team_id", teamID), zap.String("role", string(claims.Role)))
		return nil, nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}

	team, err := s.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, nil, NewError(ErrorCodeUpstreamFailure, "failed to get team")
	}

	if role, ok := team.RoleOf(claims.UserID); !ok || role != claims.Role {
		l.Warn("token holder not in team slot", zap.String("team_id", teamID), zap.String("user_id", claims.UserID))
		return nil, nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}

	return claims, team, nil
}

// SubmitRoleForm stores the form of the token holder. The person record is kept even
// when the verification email is rate limited or cannot be sent; the returned result
// is then accompanied by a RATE_LIMITED or NOTIFICATION_FAILED error.
func (s *RegistrationService) SubmitRoleForm(ctx context.Context, teamID, token string, raw []byte) (*model.SubmitResult, *Error) {
	l := logger.FromContext(ctx)

	claims, team, serr := s.authorize(ctx, token, teamID)
	if serr != nil {
		return nil, serr
	}

	if !team.Status.Editable() {
		l.Warn("form submitted in locked status", zap.String("team_id", team.ID), zap.String("status", string(team.Status)))
		return nil, NewError(ErrorCodeRoleStateConflict, "team can no longer be edited")
	}

	form := roleForms[claims.Role]
	person, serr := form.decode(s.validator, raw, team.ID, claims.UserID)
	if serr != nil {
		l.Warn("invalid role form", zap.String("role", string(claims.Role)), zap.Any("error", serr))
		return nil, serr
	}

	saved, err := s.persons.Upsert(ctx, person)
	if err != nil {
		l.Error("failed to upsert person", zap.String("user_id", person.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to save form")
	}

	l.Info("role form saved",
		zap.String("team_id", team.ID),
		zap.String("user_id", saved.ID),
		zap.String("role", string(saved.Role)),
		zap.Bool("email_verified", saved.EmailVerified))

	result := &model.SubmitResult{Person: saved}
	if saved.EmailVerified {
		return result, nil
	}

	if serr = s.sendVerification(ctx, team, saved, form.verificationKind()); serr != nil {
		result.VerificationError = string(serr.Code)
		return result, serr
	}
	result.VerificationSent = true

	return result, nil
}

func (s *RegistrationService) sendVerification(ctx context.Context, team *model.Team, person *model.Person, kind notify.Kind) *Error {
	l := logger.FromContext(ctx)

	res, err := s.limiter.Allow(ctx, person.ID)
	if err != nil {
		l.Error("rate limiter unavailable", zap.String("user_id", person.ID), zap.Error(err))
		return NewError(ErrorCodeNotificationFailed, "form saved but the verification email could not be sent")
	}
	if !res.Allowed {
		l.Warn("verification email rate limited", zap.String("user_id", person.ID), zap.Duration("retry_after", res.RetryAfter))
		return NewRateLimitedError(res.RetryAfter)
	}

	token, err := s.signer.IssueVerification(team.ID, person.ID, person.Role, person.Email)
	if err != nil {
		l.Error("failed to issue verification token", zap.Error(err))
		return NewError(ErrorCodeNotificationFailed, "form saved but the verification email could not be sent")
	}

	data := notify.VerificationData{
		Name:       person.DisplayName(),
		TeamName:   team.Name,
		VerifyLink: s.links.EmailVerification(token),
	}
	if kind == notify.KindLeaderVerification {
		access, err := s.signer.Issue(team.ID, person.ID, model.RoleLeader)
		if err != nil {
			l.Error("failed to issue leader token", zap.Error(err))
			return NewError(ErrorCodeNotificationFailed, "form saved but the verification email could not be sent")
		}
		data.FinishLink = s.links.Finish(team.ID, access)
	}

	if err = s.mailer.Send(ctx, &notify.Message{To: person.Email, Kind: kind, Data: data}); err != nil {
		l.Error("failed to send verification email", zap.String("user_id", person.ID), zap.Error(err))
		return NewError(ErrorCodeNotificationFailed, "form saved but the verification email could not be sent")
	}

	l.Info("verification email sent", zap.String("user_id", person.ID))
	return nil
}

// VerifyEmail consumes an email verification link.
func (s *RegistrationService) VerifyEmail(ctx context.Context, token string) (*model.Person, *Error) {
	l := logger.FromContext(ctx)

	claims, err := s.signer.VerifyPurpose(token, auth.PurposeEmailVerification)
	if err != nil {
		l.Warn("rejected verification token", zap.Error(err))
		return nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}

	person, err := s.persons.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "person not found")
	}
	if err != nil {
		l.Error("failed to get person", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to verify email")
	}

	if person.TeamID != claims.TeamID || person.Email != claims.Email {
		l.Warn("verification link outdated", zap.String("user_id", person.ID))
		return nil, NewError(ErrorCodeAuthorizationFailed, "verification link is no longer valid")
	}
	if person.EmailVerified {
		return person, nil
	}

	err = s.persons.MarkEmailVerified(ctx, person.ID, claims.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeAuthorizationFailed, "verification link is no longer valid")
	}
	if err != nil {
		l.Error("failed to mark email verified", zap.String("user_id", person.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to verify email")
	}

	person.EmailVerified = true
	l.Info("email verified", zap.String("team_id", person.TeamID), zap.String("user_id", person.ID))

	return person, nil
}

// RequestCompletion submits the team for staff review. Only the leader may do this and only
// once every required party is verified.
func (s *RegistrationService) RequestCompletion(ctx context.Context, token string, raw []byte) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	claims, err := s.signer.VerifyPurpose(token, auth.PurposeAccess)
	if err != nil || claims.Role != model.RoleLeader {
		l.Warn("completion without leader token")
		return nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}

	in, fieldErrs := s.validator.DecodeAffidavits(raw)

	var updated *model.Team
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, err := s.teams.GetForUpdate(txCtx, claims.TeamID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "team not found")
		}
		if err != nil {
			l.Error("failed to lock team", zap.String("team_id", claims.TeamID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to complete registration")
		}
		if team.LeaderID != claims.UserID {
			return NewError(ErrorCodeAuthorizationFailed, "authorization failed")
		}
		if !team.Status.Editable() {
			l.Warn("completion in locked status", zap.String("team_id", team.ID), zap.String("status", string(team.Status)))
			return NewError(ErrorCodeInvalidStatus, "team cannot be submitted in its current status")
		}

		report, err := s.gate.Check(txCtx, team)
		if err != nil {
			l.Error("failed to check verification", zap.String("team_id", team.ID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to complete registration")
		}
		if !report.AllVerified {
			l.Info("completion blocked on verification", zap.String("team_id", team.ID), zap.Strings("outstanding", report.Outstanding))
			return &Error{
				Code:        ErrorCodeNotAllVerified,
				Message:     "not every team member has verified their email",
				Outstanding: report.Outstanding,
			}
		}

		if len(fieldErrs) > 0 {
			return NewValidationError(fieldErrs)
		}

		now := s.now()
		status := model.TeamStatusPendingReview
		patch := &repository.TeamPatch{
			ID:               team.ID,
			Status:           &status,
			TeamAffidavit:    &in.TeamAffidavit,
			ParentsAffidavit: &in.ParentsAffidavit,
			CompletedAt:      &now,
		}

		if in.TeamName != nil && *in.TeamName != team.Name {
			if serr := s.ensureNameFree(txCtx, *in.TeamName, team.ID); serr != nil {
				return serr
			}
			patch.Name = in.TeamName
		}

		updated, err = s.teams.Patch(txCtx, patch)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return NewError(ErrorCodeDuplicateName, "team name already taken")
		}
		if err != nil {
			l.Error("failed to update team", zap.String("team_id", team.ID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to complete registration")
		}
		return nil
	})
	if serr := asServiceError(err); serr != nil {
		return nil, serr
	}

	l.Info("registration completed", zap.String("team_id", updated.ID))

	return updated, s.announceCompletion(ctx, updated)
}

// announceCompletion mails every verified party and notifies staff. Failures never undo the completion.
func (s *RegistrationService) announceCompletion(ctx context.Context, team *model.Team) *Error {
	l := logger.FromContext(ctx)

	persons, err := s.persons.ListByTeam(ctx, team.ID)
	if err != nil {
		l.Error("failed to list persons for completion mail", zap.String("team_id", team.ID), zap.Error(err))
		return NewError(ErrorCodeNotificationFailed, "registration completed but confirmation emails could not be sent")
	}

	failed := 0
	for _, p := range persons {
		if !p.EmailVerified {
			continue
		}
		msg := &notify.Message{
			To:   p.Email,
			Kind: notify.KindCompletion,
			Data: notify.CompletionData{Name: p.DisplayName(), TeamName: team.Name, TeamID: team.ID},
		}
		if err = s.mailer.Send(ctx, msg); err != nil {
			failed++
			l.Error("failed to send completion email", zap.String("user_id", p.ID), zap.Error(err))
		}
	}

	if err = s.notifier.NotifyCompletion(ctx, bundleOf(team, persons)); err != nil {
		l.Error("failed to notify staff", zap.String("team_id", team.ID), zap.Error(err))
	}

	if failed > 0 {
		return NewError(ErrorCodeNotificationFailed, "registration completed but some confirmation emails could not be sent")
	}
	return nil
}

func (s *RegistrationService) ensureNameFree(ctx context.Context, name, selfID string) *Error {
	l := logger.FromContext(ctx)

	other, err := s.teams.GetActiveByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		l.Error("failed to look up team name", zap.String("team_name", name), zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to check team name")
	}
	if other.ID != selfID {
		l.Warn("team name taken", zap.String("team_name", name))
		return NewError(ErrorCodeDuplicateName, "team name already taken")
	}
	return nil
}

// UpdateName renames the team on behalf of its leader.
func (s *RegistrationService) UpdateName(ctx context.Context, token string, raw []byte) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	claims, err := s.signer.VerifyPurpose(token, auth.PurposeAccess)
	if err != nil || claims.Role != model.RoleLeader {
		return nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}

	in, errs := s.validator.DecodeTeamName(raw)
	if len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	var updated *model.Team
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, err := s.teams.GetForUpdate(txCtx, claims.TeamID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "team not found")
		}
		if err != nil {
			l.Error("failed to lock team", zap.String("team_id", claims.TeamID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to update team name")
		}
		if team.LeaderID != claims.UserID {
			return NewError(ErrorCodeAuthorizationFailed, "authorization failed")
		}
		if !team.Status.Editable() {
			return NewError(ErrorCodeInvalidStatus, "team name can no longer be changed")
		}
		if in.TeamName == team.Name {
			return NewError(ErrorCodeNoChange, "team name is unchanged")
		}
		if serr := s.ensureNameFree(txCtx, in.TeamName, team.ID); serr != nil {
			return serr
		}

		updated, err = s.teams.Patch(txCtx, &repository.TeamPatch{ID: team.ID, Name: &in.TeamName})
		if errors.Is(err, repository.ErrAlreadyExists) {
			return NewError(ErrorCodeDuplicateName, "team name already taken")
		}
		if err != nil {
			l.Error("failed to rename team", zap.String("team_id", team.ID), zap.Error(err))
			return NewError(ErrorCodeUpstreamFailure, "failed to update team name")
		}
		return nil
	})
	if serr := asServiceError(err); serr != nil {
		return nil, serr
	}

	l.Info("team renamed", zap.String("team_id", updated.ID), zap.String("team_name", updated.Name))

	return updated, nil
}

// GetTeam returns the token holder's team with its verification progress.
func (s *RegistrationService) GetTeam(ctx context.Context, token string) (*model.TeamView, *Error) {
	l := logger.FromContext(ctx)

	_, team, serr := s.authorize(ctx, token, "")
	if serr != nil {
		return nil, serr
	}

	report, err := s.gate.Check(ctx, team)
	if err != nil {
		l.Error("failed to check verification", zap.String("team_id", team.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to get team")
	}

	return &model.TeamView{Team: team, Verification: report}, nil
}

// GetPerson returns the token holder's own record, used to prefill their form.
func (s *RegistrationService) GetPerson(ctx context.Context, teamID, personID, token string) (*model.Person, *Error) {
	l := logger.FromContext(ctx)

	claims, _, serr := s.authorize(ctx, token, teamID)
	if serr != nil {
		return nil, serr
	}
	if claims.UserID != personID {
		return nil, NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}

	person, err := s.persons.Get(ctx, personID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "person not found")
	}
	if err != nil {
		l.Error("failed to get person", zap.String("user_id", personID), zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to get person")
	}
	return person, nil
}

func bundleOf(team *model.Team, persons []*model.Person) *model.ReviewBundle {
	bundle := &model.ReviewBundle{Team: team, Members: make([]*model.Person, 0, len(team.MemberIDs))}

	byID := make(map[string]*model.Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}

	bundle.Leader = byID[team.LeaderID]
	bundle.Teacher = byID[team.TeacherID]
	for _, id := range team.MemberIDs {
		if p, ok := byID[id]; ok {
			bundle.Members = append(bundle.Members, p)
		}
	}
	return bundle
}

func (s *RegistrationService) WithTeamRepo(r repository.TeamRepository) *RegistrationService {
	s.teams = r
	return s
}

func (s *RegistrationService) WithPersonRepo(r repository.PersonRepository) *RegistrationService {
	s.persons = r
	return s
}

func (s *RegistrationService) WithSigner(signer TokenSigner, links *auth.Links) *RegistrationService {
	s.signer = signer
	s.links = links
	return s
}

func (s *RegistrationService) WithGate(g *VerificationGate) *RegistrationService {
	s.gate = g
	return s
}

func (s *RegistrationService) WithLimiter(l RateLimiter) *RegistrationService {
	s.limiter = l
	return s
}

func (s *RegistrationService) WithMailer(m notify.Sender) *RegistrationService {
	s.mailer = m
	return s
}

func (s *RegistrationService) WithNotifier(n notify.CompletionNotifier) *RegistrationService {
	s.notifier = n
	return s
}
