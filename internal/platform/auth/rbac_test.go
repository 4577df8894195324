package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func callWithActor(t *testing.T, actor Actor, mw echo.MiddlewareFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return handler(c)
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: RoleNurse}
	if err := callWithActor(t, actor, RequireRole(RoleNurse)); err != nil {
		t.Errorf("nurse rejected from nurse-only route: %v", err)
	}
}

func TestRequireRoleAdminOverride(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: RoleAdmin}
	if err := callWithActor(t, actor, RequireRole(RoleNurse)); err != nil {
		t.Errorf("admin rejected from nurse-only route: %v", err)
	}
}

func TestRequireRoleRejectsOtherRole(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: RolePatient}
	err := callWithActor(t, actor, RequireRole(RoleNurse))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
}

func TestRequireRoleMultipleRoles(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: RolePatient}
	if err := callWithActor(t, actor, RequireRole(RoleNurse, RolePatient)); err != nil {
		t.Errorf("patient rejected from nurse-or-patient route: %v", err)
	}
}
