package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/service"
	"github.com/talentflow/recruiting/internal/metrics"
)

// SessionKey is the echo context key under which guards store the session
// they decided on.
const SessionKey = "session"

// SessionReader is the slice of the session service the guards need.
type SessionReader interface {
	GetSession() domain.Session
}

type pendingResponse struct {
	Status string `json:"status"`
}

// RequireSession lets authenticated sessions through, answers 503 while the
// session is still pending and redirects everyone else to the login route.
func RequireSession(sessions SessionReader, routes service.Routes) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := sessions.GetSession()
			return render(c, "session", service.RequireSession(s, routes), s, next)
		}
	}
}

// RequireRole runs the session guard first, then lets through sessions whose
// role is in roles. super_admin passes every role guard.
func RequireRole(sessions SessionReader, routes service.Routes, roles ...domain.Role) echo.MiddlewareFunc {
	allowed := append([]domain.Role(nil), roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := sessions.GetSession()
			if v := service.RequireSession(s, routes); v.Kind != service.VerdictAllow {
				return render(c, "session", v, s, next)
			}
			return render(c, "role", service.RequireRole(s, routes, allowed...), s, next)
		}
	}
}

func render(c echo.Context, guard string, v service.Verdict, s domain.Session, next echo.HandlerFunc) error {
	metrics.GuardDecisionsTotal.WithLabelValues(guard, string(v.Kind)).Inc()

	switch v.Kind {
	case service.VerdictAllow:
		c.Set(SessionKey, s)
		return next(c)
	case service.VerdictWait:
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, pendingResponse{Status: string(domain.SessionPending)})
	default:
		return c.Redirect(http.StatusFound, v.Target)
	}
}
