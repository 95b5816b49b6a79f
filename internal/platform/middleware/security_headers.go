package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets hardening headers on every response. The widget is
// served inside host frames, so framing is limited to trustedParents through
// CSP frame-ancestors; with no trusted parents any host may frame it.
func SecurityHeaders(trustedParents []string) echo.MiddlewareFunc {
	ancestors := "*"
	if len(trustedParents) > 0 {
		ancestors = "'self' " + strings.Join(trustedParents, " ")
	}
	csp := "default-src 'none'; frame-ancestors " + ancestors

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", csp)
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=()")
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
