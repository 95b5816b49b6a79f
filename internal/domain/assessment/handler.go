package assessment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tascvd/cvrisk/internal/platform/session"
	"github.com/tascvd/cvrisk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public assessment endpoint and the admin
// listing endpoints behind admin.
func (h *Handler) RegisterRoutes(api *echo.Group, admin echo.MiddlewareFunc) {
	api.POST("/assessments", h.Assess)

	read := api.Group("", admin)
	read.GET("/assessments", h.List)
	read.GET("/assessments/export", h.Export)
}

func (h *Handler) Assess(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if f.Lang == "" {
		f.Lang = c.Request().Header.Get("Accept-Language")
	}
	if f.Referrer == "" {
		f.Referrer = c.Request().Referer()
	}

	ctx := c.Request().Context()
	res, err := h.svc.Assess(ctx, session.IDFromContext(ctx), f)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Submission{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) Export(c echo.Context) error {
	data, err := h.svc.Export(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	name := fmt.Sprintf("submissions-%s.xlsx", h.svc.now().In(h.svc.loc).Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
