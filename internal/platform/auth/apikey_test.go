package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestKeyVerifier(t *testing.T) {
	v := NewKeyVerifier("  s3cret  ")
	if !v.Enabled() {
		t.Fatal("expected verifier to be enabled")
	}
	if err := v.Verify("s3cret"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.Verify("s3cret2"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := v.Verify(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for empty key, got %v", err)
	}
}

func TestKeyVerifier_Disabled(t *testing.T) {
	v := NewKeyVerifier("")
	if v.Enabled() {
		t.Fatal("expected verifier to be disabled")
	}
	if err := v.Verify(""); !errors.Is(err, ErrAdminDisabled) {
		t.Errorf("expected ErrAdminDisabled, got %v", err)
	}
	if err := v.Verify("anything"); !errors.Is(err, ErrAdminDisabled) {
		t.Errorf("expected ErrAdminDisabled, got %v", err)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		value      string
		wantCode   int
	}{
		{"x-api-key", "k1", APIKeyHeader, "k1", http.StatusOK},
		{"bearer", "k1", "Authorization", "Bearer k1", http.StatusOK},
		{"bearer lowercase", "k1", "Authorization", "bearer k1", http.StatusOK},
		{"wrong key", "k1", APIKeyHeader, "k2", http.StatusUnauthorized},
		{"basic scheme", "k1", "Authorization", "Basic k1", http.StatusUnauthorized},
		{"missing", "k1", "", "", http.StatusUnauthorized},
		{"disabled", "", APIKeyHeader, "k1", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := APIKeyMiddleware(NewKeyVerifier(tt.configured))(func(c echo.Context) error {
				if c.Get("admin") != true {
					t.Error("expected admin flag on context")
				}
				return c.String(http.StatusOK, "ok")
			})
			err := handler(c)
			if tt.wantCode == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if rec.Code != http.StatusOK {
					t.Errorf("expected 200, got %d", rec.Code)
				}
				return
			}
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError, got %T", err)
			}
			if he.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, he.Code)
			}
		})
	}
}
