package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/homereach/dispatch/internal/platform/auth"
)

// AuditEntry captures who touched which dispatch resource, when, from
// where, and with what outcome. Service requests carry patient
// addresses, so every access is logged.
type AuditEntry struct {
	ActorID    string
	ActorRole  string
	Resource   string
	RequestID  string // service request id when present in the path
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	TraceID    string
	StatusCode int
}

// AuditRecorder is the interface the audit middleware uses to persist
// entries. Tests provide a mock implementation.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns Echo middleware that logs access to dispatch API routes:
// the resolved actor, the resource and service request touched, and the
// response status.
//
// If no AuditRecorder is provided, it falls back to structured zerolog
// logging only.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			// Execute the handler first so we capture the response status
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			actor := auth.ActorFromContext(req.Context())
			if actor.ID != uuid.Nil {
				entry.ActorID = actor.ID.String()
			}
			entry.ActorRole = actor.Role

			if rid, ok := c.Get("request_id").(string); ok {
				entry.TraceID = rid
			}

			entry.Action = httpMethodToAction(req.Method)
			entry.Resource = extractResource(path)
			entry.RequestID = extractServiceRequestID(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("trace_id", entry.TraceID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("trace_id", entry.TraceID).
				Str("actor_id", entry.ActorID).
				Str("actor_role", entry.ActorRole).
				Str("resource", entry.Resource).
				Str("service_request_id", entry.RequestID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("resource_access")

			return err
		}
	}
}

// isAuditablePath returns true for versioned API routes.
func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

// httpMethodToAction maps HTTP methods to audit action codes.
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource parses the first path segment after the API prefix:
// /api/v1/requests/123 -> requests.
func extractResource(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// extractServiceRequestID finds a service request identifier in paths
// of the form /api/v1/requests/<uuid>/...
func extractServiceRequestID(path string) string {
	if !strings.HasPrefix(path, "/api/v1/requests/") {
		return ""
	}
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/requests/"), "/")
	if len(segments) > 0 {
		if _, err := uuid.Parse(segments[0]); err == nil {
			return segments[0]
		}
	}
	return ""
}
