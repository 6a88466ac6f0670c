// Package rbac authenticates bearer tokens and gates routes by role.
package rbac

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brickflow/brickflow/internal/shared"
)

const defaultIssuer = "brickflow"

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("rbac: invalid token")

// Claims is the token payload: sub carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Name string      `json:"name"`
	Role shared.Role `json:"role"`
}

// TokenService signs and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. ttl is used by Issue only.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for actor.
func (s *TokenService) Issue(actor shared.Actor) (string, error) {
	if actor.UserID <= 0 || !actor.Role.IsValid() {
		return "", fmt.Errorf("issue token: invalid actor %d/%q", actor.UserID, actor.Role)
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(actor.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name: actor.Name,
		Role: actor.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses tokenString and returns the actor it carries.
func (s *TokenService) Verify(tokenString string) (shared.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return shared.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return shared.Actor{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return shared.Actor{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	if !claims.Role.IsValid() {
		return shared.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return shared.Actor{UserID: id, Name: claims.Name, Role: claims.Role}, nil
}
