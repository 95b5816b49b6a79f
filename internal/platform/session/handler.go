package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes session creation.
type Handler struct {
	issuer *Issuer
	// Handshake is returned with every new session so the widget can ask its
	// host frame for page information straight away.
	handshake interface{}
}

func NewHandler(issuer *Issuer, handshake interface{}) *Handler {
	return &Handler{issuer: issuer, handshake: handshake}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateSession)
}

type createResponse struct {
	*Token
	Handshake interface{} `json:"handshake,omitempty"`
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handler) CreateSession(c echo.Context) error {
	tok, err := h.issuer.Issue()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, createResponse{Token: tok, Handshake: h.handshake})
}
