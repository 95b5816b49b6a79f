package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are infrastructure endpoints that bypass rate limiting and
// request timeouts.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// PublicSkipper reports whether the matched route is a public infrastructure
// endpoint. It is meant as the Skipper of echo middleware configs.
func PublicSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path is a public infrastructure endpoint.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
