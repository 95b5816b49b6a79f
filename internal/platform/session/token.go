// Package session issues signed, short-lived session tokens to the embedded
// widget and keeps small per-session values (cached geolocation, host page
// information) for the lifetime of a session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

// IDKey is the request context key holding the session id.
const IDKey contextKey = "session_id"

// TokenHeader carries the session token when cookies are unavailable.
const TokenHeader = "X-Session-Token"

const issuerName = "cvrisk"

var (
	// ErrInvalidToken indicates a malformed, expired or wrongly signed token.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrNoSecret is returned by NewIssuer when the signing secret is empty.
	ErrNoSecret = errors.New("session secret is required")
)

// Claims are the JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is an issued session.
type Token struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. ttl is the session lifetime.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the session lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue starts a new session.
func (i *Issuer) Issue() (*Token, error) {
	now := i.now()
	id := uuid.New().String()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Token{Token: signed, SessionID: id, ExpiresAt: exp}, nil
}

// Verify parses a token and returns its session id.
func (i *Issuer) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware attaches the session id to the request context. Requests without
// a token pass through anonymously; an invalid token is rejected with 401.
func Middleware(issuer *Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c.Request())
			if raw == "" {
				return next(c)
			}
			id, err := issuer.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			ctx := context.WithValue(c.Request().Context(), IDKey, id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(string(IDKey), id)
			return next(c)
		}
	}
}

func extractToken(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// IDFromContext returns the session id, or "" for anonymous requests.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(IDKey).(string)
	return id
}
