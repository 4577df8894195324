package event

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/requests/:id/events", h.Timeline)
	api.GET("/notifications", h.Notifications)
}

func (h *Handler) Timeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	events, err := h.svc.Timeline(c.Request().Context(), actor, id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	if events == nil {
		events = []*Event{}
	}
	return c.JSON(http.StatusOK, events)
}

func (h *Handler) Notifications(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var sinceID int64
	if raw := c.QueryParam("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since cursor")
		}
		sinceID = v
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, err := h.svc.Notifications(c.Request().Context(), actor, sinceID, limit)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	if events == nil {
		events = []*Event{}
	}

	next := sinceID
	if len(events) > 0 {
		next = events[len(events)-1].ID
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":      events,
		"next_cursor": next,
	})
}
