package embed

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tascvd/cvrisk/internal/platform/session"
)

// OriginHeader carries the parent origin observed by the widget's message
// listener. Browsers do not expose it any other way.
const OriginHeader = "X-Parent-Origin"

type Handler struct {
	bridge *Bridge
}

func NewHandler(bridge *Bridge) *Handler {
	return &Handler{bridge: bridge}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/host-info", h.Relay)
	g.GET("/host-info/request", h.Request)
}

type relayRequest struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

// Relay handles POST /api/v1/sessions/host-info. Ignored messages still get
// a 202 so the widget cannot tell trusted from untrusted parents apart.
func (h *Handler) Relay(c echo.Context) error {
	var req relayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	origin := req.Origin
	if origin == "" {
		origin = c.Request().Header.Get(OriginHeader)
	}
	sid := session.IDFromContext(c.Request().Context())
	accepted := h.bridge.Accept(c.Request().Context(), sid, origin, req.Message)
	return c.JSON(http.StatusAccepted, map[string]bool{"accepted": accepted})
}

// Request handles GET /api/v1/sessions/host-info/request.
func (h *Handler) Request(c echo.Context) error {
	return c.JSON(http.StatusOK, RequestHostInfo())
}
