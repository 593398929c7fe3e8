package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeEmailVerification Purpose = "email_verification"
)

// DefaultTokenTTL is how long capability links stay valid.
const DefaultTokenTTL = 21 * 24 * time.Hour

type TokenClaims struct {
	TeamID  string     `json:"team_id"`
	UserID  string     `json:"user_id"`
	Role    model.Role `json:"role"`
	Purpose Purpose    `json:"purpose"`
	Email   string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authorize checks the token is bound to teamID with one of roles.
func (c *TokenClaims) Authorize(teamID string, roles ...model.Role) error {
	if c.TeamID == "" || c.TeamID != teamID {
		return ErrTokenMismatch
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return ErrTokenMismatch
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a form access token for personID in role on teamID.
func (s *Signer) Issue(teamID, personID string, role model.Role) (string, error) {
	return s.sign(TokenClaims{
		TeamID:  teamID,
		UserID:  personID,
		Role:    role,
		Purpose: PurposeAccess,
	})
}

// IssueVerification returns a token that only confirms email for personID.
func (s *Signer) IssueVerification(teamID, personID string, role model.Role, email string) (string, error) {
	return s.sign(TokenClaims{
		TeamID:  teamID,
		UserID:  personID,
		Role:    role,
		Purpose: PurposeEmailVerification,
		Email:   email,
	})
}

func (s *Signer) sign(claims TokenClaims) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify returns the claims of a valid token. Every failure is ErrInvalidToken.
func (s *Signer) Verify(tokenString string) (*TokenClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	return claims, nil
}

// VerifyPurpose is Verify plus a check of the token purpose.
func (s *Signer) VerifyPurpose(tokenString string, purpose Purpose) (*TokenClaims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, errors.Wrap(ErrInvalidToken, "unexpected purpose")
	}
	return claims, nil
}

func (s *Signer) parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			alg, _ := token.Header["alg"].(string)
			return nil, errors.Wrap(ErrInvalidSigningMethod, alg)
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TeamID == "" || claims.UserID == "" || !claims.Role.Valid() {
		return nil, errors.New("incomplete claims")
	}
	return claims, nil
}
