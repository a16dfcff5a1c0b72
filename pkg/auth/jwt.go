package auth

import (
	"errors"
	"fmt"
	"time"

	"seatbook/pkg/model"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the subject (user alias), role and, when the issuer already
// resolved it, the user id.
type Claims struct {
	Role   string `json:"role"`
	UserID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() model.CallerIdentity {
	return model.CallerIdentity{
		Subject: c.Subject,
		Role:    c.Role,
		UserID:  c.UserID,
	}
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Parse accepts only HS256 tokens signed with the shared secret that carry a
// subject and an expiry.
func (v *Verifier) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Role == "" {
		claims.Role = model.RoleUser
	}
	return claims, nil
}

// NewToken signs an access token. Issuance belongs to the identity service;
// this exists for tests and local development.
func NewToken(secret, issuer string, caller model.CallerIdentity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:   caller.Role,
		UserID: caller.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
