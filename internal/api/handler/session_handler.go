package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/ports"
)

// SessionHandler exposes the current session snapshot and profile operations.
type SessionHandler struct {
	sessions ports.SessionService
}

func NewSessionHandler(sessions ports.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionResponse struct {
	Status      domain.SessionStatus `json:"status"`
	Principal   *domain.Principal    `json:"principal,omitempty"`
	Profile     *domain.Profile      `json:"profile,omitempty"`
	Permissions []domain.Permission  `json:"permissions"`
	Error       string               `json:"error,omitempty"`
}

type permissionsResponse struct {
	Role        domain.Role         `json:"role,omitempty"`
	Permissions []domain.Permission `json:"permissions"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	resp := sessionResponse{
		Status:      s.Status,
		Principal:   s.Principal,
		Profile:     s.Profile,
		Permissions: s.Permissions(),
	}
	if resp.Permissions == nil {
		resp.Permissions = []domain.Permission{}
	}
	if s.Error != nil {
		resp.Error = s.Error.Error()
	}
	return resp
}

// Get returns the current snapshot, whatever its status.
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, toSessionResponse(h.sessions.GetSession()))
}

// Permissions lists what the current session may do.
func (h *SessionHandler) Permissions(c echo.Context) error {
	s := h.sessions.GetSession()
	resp := permissionsResponse{Role: s.Role(), Permissions: s.Permissions()}
	if !s.Authenticated() {
		resp.Role = ""
	}
	if resp.Permissions == nil {
		resp.Permissions = []domain.Permission{}
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateProfile applies the user-editable profile fields.
func (h *SessionHandler) UpdateProfile(c echo.Context) error {
	var req domain.ProfileUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.sessions.UpdateProfile(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(h.sessions.GetSession()))
}

// RefreshProfile re-reads the profile from the store.
func (h *SessionHandler) RefreshProfile(c echo.Context) error {
	profile, err := h.sessions.RefreshProfile(c.Request().Context())
	if err != nil {
		return err
	}
	if profile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, profile)
}
