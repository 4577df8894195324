package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
	"github.com/homereach/dispatch/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	group.GET("/audit-log", h.ListAuditLog)
}

func (h *Handler) ListAuditLog(c echo.Context) error {
	pg := pagination.FromContext(c)
	action := c.QueryParam("action")
	items, total, err := h.svc.ListAuditLog(c.Request().Context(), action, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
