package geo

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tascvd/cvrisk/internal/platform/session"
)

// Report is what the browser observed when the consent box was ticked.
type Report struct {
	Permission string   `json:"permission"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Error      string   `json:"error,omitempty"`
	// Unavailable is set when the browser has no geolocation API at all.
	Unavailable bool `json:"unavailable,omitempty"`
}

// reportedLocator replays a browser Report as a Locator.
type reportedLocator struct {
	r Report
}

// LocatorFromReport returns a Locator backed by r. The permission state is
// honoured even when the browser reported no geolocation API.
func LocatorFromReport(r Report) Locator {
	return reportedLocator{r: r}
}

func (l reportedLocator) Available() bool { return !l.r.Unavailable }

func (l reportedLocator) Permission(context.Context) (PermissionState, error) {
	return ParsePermission(l.r.Permission), nil
}

func (l reportedLocator) Locate(ctx context.Context, _ Options) (Coords, error) {
	if err := ctx.Err(); err != nil {
		return Blank(), err
	}
	if l.r.Error != "" {
		return Blank(), errors.New(l.r.Error)
	}
	if l.r.Lat == nil || l.r.Lon == nil {
		return Blank(), ErrUnavailable
	}
	return Coords{Lat: l.r.Lat, Lon: l.r.Lon}, nil
}

// Handler exposes the consent-time geolocation prompt.
type Handler struct {
	cache *Cache
}

func NewHandler(cache *Cache) *Handler {
	return &Handler{cache: cache}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/geolocation", h.Acquire)
}

// Acquire handles POST /api/v1/sessions/geolocation. It is the only place
// where the user may be prompted.
func (h *Handler) Acquire(c echo.Context) error {
	sid := session.IDFromContext(c.Request().Context())
	if sid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "session required")
	}
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	coords := h.cache.Acquire(c.Request().Context(), sid, LocatorFromReport(r), true)
	return c.JSON(http.StatusOK, coords)
}
