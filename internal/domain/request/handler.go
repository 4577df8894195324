package request

import (
	"net/http"

	"github.com/google/uuid"
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
	g := api.Group("/requests")
	g.POST("", h.Create, auth.RequireRole(auth.RolePatient))
	g.GET("", h.ListMine)
	g.GET("/queue", h.Queue, auth.RequireRole(auth.RoleAdmin))
	g.GET("/:id", h.Get)
	g.POST("/:id/accept", h.action(ActionAccept), auth.RequireRole(auth.RoleNurse))
	g.POST("/:id/reject", h.action(ActionReject), auth.RequireRole(auth.RoleNurse))
	g.POST("/:id/enroute", h.action(ActionEnroute), auth.RequireRole(auth.RoleNurse))
	g.POST("/:id/complete", h.action(ActionComplete), auth.RequireRole(auth.RoleNurse))
	g.POST("/:id/cancel", h.action(ActionCancel), auth.RequireRole(auth.RolePatient))
	g.POST("/:id/reassign", h.Reassign, auth.RequireRole(auth.RoleAdmin))
}

type createRequest struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sr, err := h.svc.Create(c.Request().Context(), actor, req.Address, req.Lat, req.Lng)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, sr)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sr, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, sr)
}

// ListMine returns the caller's own requests: those they opened as a
// patient, or those assigned to them as a nurse.
func (h *Handler) ListMine(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var (
		items []*ServiceRequest
		total int
		err   error
	)
	if actor.Role == auth.RoleNurse {
		items, total, err = h.svc.ListByNurse(c.Request().Context(), actor.ID, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.ListByRequester(c.Request().Context(), actor.ID, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) action(a Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		actor := auth.ActorFromContext(c.Request().Context())
		sr, err := h.svc.Act(c.Request().Context(), actor, id, a)
		if err != nil {
			return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, sr)
	}
}

// reassignRequest carries the target nurse. A null (or absent) nurse_id
// unassigns the request back to the open pool.
type reassignRequest struct {
	NurseID *uuid.UUID `json:"nurse_id"`
}

func (h *Handler) Reassign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.NurseID != nil && *req.NurseID == uuid.Nil {
		req.NurseID = nil
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sr, err := h.svc.Reassign(c.Request().Context(), actor, id, req.NurseID)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, sr)
}

func (h *Handler) Queue(c echo.Context) error {
	results, err := h.svc.Queue(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"queue": results,
		"total": len(results),
	})
}
