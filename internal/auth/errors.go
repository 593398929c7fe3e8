package auth

import "github.com/pkg/errors"

var (
	// ErrInvalidToken covers malformed, expired and forged tokens alike.
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrTokenMismatch        = errors.New("token does not grant access to this resource")
)
