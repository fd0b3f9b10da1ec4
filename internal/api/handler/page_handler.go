package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talentflow/recruiting/internal/api/middleware"
	"github.com/talentflow/recruiting/internal/core/domain"
)

type pageResponse struct {
	Page        string              `json:"page"`
	Role        domain.Role         `json:"role"`
	Permissions []domain.Permission `json:"permissions"`
}

// Page renders a guarded area. It expects a guard to have stored the
// session it allowed.
func Page(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, ok := c.Get(middleware.SessionKey).(domain.Session)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "route is not guarded")
		}
		return c.JSON(http.StatusOK, pageResponse{
			Page:        name,
			Role:        s.Role(),
			Permissions: s.Permissions(),
		})
	}
}
