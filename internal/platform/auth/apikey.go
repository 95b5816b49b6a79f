// Package auth protects the administrative endpoints with a static API key.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// APIKeyHeader carries the admin key. Authorization: Bearer is also accepted.
const APIKeyHeader = "X-API-Key"

var (
	// ErrInvalidKey indicates a missing or non-matching key.
	ErrInvalidKey = errors.New("invalid api key")

	// ErrAdminDisabled is returned when no admin key is configured.
	ErrAdminDisabled = errors.New("admin api disabled")
)

// KeyVerifier compares presented keys against the configured admin key. Only
// the SHA-256 digest of the key is held in memory.
type KeyVerifier struct {
	hash [sha256.Size]byte
	set  bool
}

// NewKeyVerifier creates a verifier for key. An empty key disables admin
// access entirely.
func NewKeyVerifier(key string) *KeyVerifier {
	key = strings.TrimSpace(key)
	if key == "" {
		return &KeyVerifier{}
	}
	return &KeyVerifier{hash: hashKey(key), set: true}
}

// Enabled reports whether an admin key is configured.
func (v *KeyVerifier) Enabled() bool { return v.set }

// Verify checks rawKey in constant time.
func (v *KeyVerifier) Verify(rawKey string) error {
	if !v.set {
		return ErrAdminDisabled
	}
	if rawKey == "" {
		return ErrInvalidKey
	}
	got := hashKey(rawKey)
	if subtle.ConstantTimeCompare(got[:], v.hash[:]) != 1 {
		return ErrInvalidKey
	}
	return nil
}

func hashKey(rawKey string) [sha256.Size]byte {
	return sha256.Sum256([]byte(rawKey))
}

// APIKeyMiddleware rejects requests that do not present the admin key.
// Disabled admin access answers 403 so the endpoints cannot be probed for a
// key; a wrong or missing key answers 401.
func APIKeyMiddleware(v *KeyVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := v.Verify(extractAPIKey(c))
			switch {
			case err == nil:
				c.Set("admin", true)
				return next(c)
			case errors.Is(err, ErrAdminDisabled):
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
		}
	}
}

// extractAPIKey returns the raw key from X-API-Key, then from
// Authorization: Bearer.
func extractAPIKey(c echo.Context) string {
	if apiKey := c.Request().Header.Get(APIKeyHeader); apiKey != "" {
		return apiKey
	}
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
