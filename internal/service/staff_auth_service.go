package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/config"
	"github.com/yakoovad/scrapyard-registration/internal/kv"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/notify"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/internal/validation"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpDigits        = 6
	maxOTPAttempts   = 5
	sessionAlphabet  = "0123456789abcdef"
	sessionTokenSize = 128
)

// StaffAuthService signs staff in with a one-time code mailed to their staff address.
type StaffAuthService struct {
	staff   repository.StaffRepository
	store   kv.Store
	mailer  notify.Sender
	limiter RateLimiter

	emailPattern *regexp.Regexp
	otpTTL       time.Duration
	sessionTTL   time.Duration

	generateOTP     func() (string, error)
	generateSession func() (string, error)
	now             func() time.Time
}

func NewStaffAuthService(cfg config.StaffConfig) *StaffAuthService {
	return &StaffAuthService{
		emailPattern: regexp.MustCompile(`^[^@\s]+@` + regexp.QuoteMeta(strings.ToLower(cfg.EmailDomain)) + `$`),
		otpTTL:       cfg.OTPTTL,
		sessionTTL:   cfg.SessionTTL,
		generateOTP:  randomOTP,
		generateSession: func() (string, error) {
			return gonanoid.Generate(sessionAlphabet, sessionTokenSize)
		},
		now: time.Now,
	}
}

func randomOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func otpKey(email string) string      { return "otp:" + email }
func attemptsKey(email string) string { return "otp_attempts:" + email }
func sessionKey(token string) string  { return "session:" + token }

func (s *StaffAuthService) normalizeEmail(email string) (string, *Error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.emailPattern.MatchString(email) {
		return "", NewValidationError(validation.Errors{{Field: "email", Message: "must be a staff email address"}})
	}
	return email, nil
}

// SendCode mails a fresh one-time code to an active staff member.
func (s *StaffAuthService) SendCode(ctx context.Context, email string) *Error {
	l := logger.FromContext(ctx)

	email, serr := s.normalizeEmail(email)
	if serr != nil {
		return serr
	}

	staff, err := s.staff.Get(ctx, email)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !staff.Active) {
		l.Warn("code requested for unknown staff", zap.String("email", email))
		return NewError(ErrorCodeAuthorizationFailed, "authorization failed")
	}
	if err != nil {
		l.Error("failed to get staff", zap.String("email", email), zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to send code")
	}

	res, err := s.limiter.Allow(ctx, "staff:"+email)
	if err != nil {
		l.Error("rate limiter unavailable", zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to send code")
	}
	if !res.Allowed {
		return NewRateLimitedError(res.RetryAfter)
	}

	code, err := s.generateOTP()
	if err != nil {
		l.Error("failed to generate otp", zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to send code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		l.Error("failed to hash otp", zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to send code")
	}

	if err = s.store.Set(ctx, otpKey(email), string(hash), s.otpTTL); err != nil {
		l.Error("failed to store otp", zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to send code")
	}
	_ = s.store.Delete(ctx, attemptsKey(email))

	msg := &notify.Message{
		To:   email,
		Kind: notify.KindStaffOTP,
		Data: notify.OTPData{Code: code, TTLMinutes: int(s.otpTTL / time.Minute)},
	}
	if err = s.mailer.Send(ctx, msg); err != nil {
		l.Error("failed to send otp", zap.String("email", email), zap.Error(err))
		_ = s.store.Delete(ctx, otpKey(email))
		return NewError(ErrorCodeNotificationFailed, "failed to send code")
	}

	l.Info("staff code sent", zap.String("email", email))
	return nil
}

// VerifyCode exchanges a valid one-time code for a session token.
func (s *StaffAuthService) VerifyCode(ctx context.Context, email, code string) (*model.StaffSession, *Error) {
	l := logger.FromContext(ctx)

	email, serr := s.normalizeEmail(email)
	if serr != nil {
		return nil, serr
	}

	hash, err := s.store.Get(ctx, otpKey(email))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, NewError(ErrorCodeInvalidOTP, "invalid or expired code")
	}
	if err != nil {
		l.Error("failed to get otp", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to verify code")
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))) != nil {
		attempts, _, err := s.store.Incr(ctx, attemptsKey(email), s.otpTTL)
		if err == nil && attempts >= maxOTPAttempts {
			l.Warn("too many otp attempts, code revoked", zap.String("email", email))
			_ = s.store.Delete(ctx, otpKey(email))
		}
		return nil, NewError(ErrorCodeInvalidOTP, "invalid or expired code")
	}

	_ = s.store.Delete(ctx, otpKey(email))
	_ = s.store.Delete(ctx, attemptsKey(email))

	token, err := s.generateSession()
	if err != nil {
		l.Error("failed to generate session token", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to create session")
	}
	if err = s.store.Set(ctx, sessionKey(token), email, s.sessionTTL); err != nil {
		l.Error("failed to store session", zap.Error(err))
		return nil, NewError(ErrorCodeUpstreamFailure, "failed to create session")
	}

	l.Info("staff signed in", zap.String("email", email))

	return &model.StaffSession{
		Token:     token,
		Email:     email,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}, nil
}

// VerifySession returns the staff email bound to token.
func (s *StaffAuthService) VerifySession(ctx context.Context, token string) (string, *Error) {
	if token == "" {
		return "", NewError(ErrorCodeStaffUnauthorized, "staff session required")
	}

	email, err := s.store.Get(ctx, sessionKey(token))
	if errors.Is(err, kv.ErrNotFound) {
		return "", NewError(ErrorCodeStaffUnauthorized, "staff session expired")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get session", zap.Error(err))
		return "", NewError(ErrorCodeUpstreamFailure, "failed to verify session")
	}
	return email, nil
}

func (s *StaffAuthService) Logout(ctx context.Context, token string) *Error {
	if err := s.store.Delete(ctx, sessionKey(token)); err != nil {
		logger.FromContext(ctx).Error("failed to delete session", zap.Error(err))
		return NewError(ErrorCodeUpstreamFailure, "failed to sign out")
	}
	return nil
}

func (s *StaffAuthService) WithStaffRepo(r repository.StaffRepository) *StaffAuthService {
	s.staff = r
	return s
}

func (s *StaffAuthService) WithStore(store kv.Store) *StaffAuthService {
	s.store = store
	return s
}

func (s *StaffAuthService) WithMailer(m notify.Sender) *StaffAuthService {
	s.mailer = m
	return s
}

func (s *StaffAuthService) WithLimiter(l RateLimiter) *StaffAuthService {
	s.limiter = l
	return s
}
