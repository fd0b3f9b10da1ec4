package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/ports"
)

// AuthHandler signs users in and out. Sign-in only reports the principal;
// the session itself is built asynchronously and read from GET /session.
type AuthHandler struct {
	accounts ports.AccountService
	sessions ports.SessionService
}

func NewAuthHandler(accounts ports.AccountService, sessions ports.SessionService) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

type federatedRequest struct {
	Assertion string `json:"assertion" validate:"required"`
}

type signInResponse struct {
	Principal *domain.Principal    `json:"principal"`
	Session   domain.SessionStatus `json:"session"`
}

// SignUp creates a direct account and signs it in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req ports.Registration
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	principal, err := h.accounts.SignUp(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, h.signedIn(principal))
}

// Login authenticates a direct-channel account.
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.Credentials
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	principal, err := h.accounts.Authenticate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.signedIn(principal))
}

// Federated signs in with an assertion issued by the federation partner.
func (h *AuthHandler) Federated(c echo.Context) error {
	var req federatedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	principal, err := h.accounts.SignInFederated(c.Request().Context(), req.Assertion)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.signedIn(principal))
}

// Logout clears the session. It never fails.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.SignOut()
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) signedIn(p *domain.Principal) signInResponse {
	return signInResponse{Principal: p, Session: h.sessions.GetSession().Status}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
