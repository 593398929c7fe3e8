package service

import (
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/validation"
)

type ErrorCode string

const (
	ErrorCodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
	ErrorCodeAuthorizationFailed  ErrorCode = "AUTHORIZATION_FAILED"
	ErrorCodeStaffUnauthorized    ErrorCode = "STAFF_UNAUTHORIZED"
	ErrorCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInvalidBody          ErrorCode = "INVALID_BODY"
	ErrorCodeDuplicateName        ErrorCode = "DUPLICATE_NAME"
	ErrorCodeNoChange             ErrorCode = "NO_CHANGE"
	ErrorCodeNotAllVerified       ErrorCode = "NOT_ALL_VERIFIED"
	ErrorCodeNotPendingReview     ErrorCode = "NOT_PENDING_REVIEW"
	ErrorCodeInvalidOTP           ErrorCode = "INVALID_OTP"
	ErrorCodeRoleStateConflict    ErrorCode = "ROLE_STATE_CONFLICT"
	ErrorCodeInvalidStatus        ErrorCode = "INVALID_STATUS"
	ErrorCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrorCodeRateLimited          ErrorCode = "RATE_LIMITED"
	ErrorCodeNotificationFailed   ErrorCode = "NOTIFICATION_FAILED"
	ErrorCodeUpstreamFailure      ErrorCode = "UPSTREAM_FAILURE"
)

type Error struct {
	Code        ErrorCode         `json:"code"`
	Message     string            `json:"message"`
	Fields      validation.Errors `json:"fields,omitempty"`
	Outstanding []string          `json:"outstanding,omitempty"`
	// RetryAfter is in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewValidationError(fields validation.Errors) *Error {
	return &Error{
		Code:    ErrorCodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

func NewRateLimitedError(retryAfter time.Duration) *Error {
	secs := int(retryAfter / time.Second)
	if retryAfter%time.Second != 0 {
		secs++
	}
	return &Error{
		Code:       ErrorCodeRateLimited,
		Message:    "too many emails requested, try again later",
		RetryAfter: secs,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// asServiceError unwraps the *Error returned from inside a transaction.
// Anything else, such as a failed commit, becomes UPSTREAM_FAILURE.
func asServiceError(err error) *Error {
	if err == nil {
		return nil
	}
	var res *Error
	if errors.As(err, &res) {
		return res
	}
	return NewError(ErrorCodeUpstreamFailure, "storage failure")
}
