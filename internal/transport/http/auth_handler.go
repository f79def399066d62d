package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rrrobertsson/airmango-admin-panel/internal/service"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

// AuthProvider is the session surface the auth endpoints need.
type AuthProvider interface {
	Authenticator
	LoginWithEmail(ctx context.Context, email, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

type authHandler struct {
	auth     AuthProvider
	validate *validator.Validate
}

func RegisterAuth(e *echo.Echo, auth AuthProvider) {
	h := &authHandler{auth: auth, validate: validator.New()}

	group := e.Group("/api/v1/auth")
	group.POST("/login", h.login)
	group.POST("/logout", h.logout, RequireAuth(auth))
	group.GET("/me", h.me, RequireAuth(auth))
}

// login godoc
// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body LoginRequest true "Credentials"
// @Success 200 {object} AuthTokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *authHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("email and password are required"))
	}

	res, err := h.auth.LoginWithEmail(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
		}
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("login")
		return c.JSON(http.StatusInternalServerError, util.Error("unable to sign in"))
	}
	return c.JSON(http.StatusOK, AuthTokenResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toAuthUser(res.User),
	})
}

// logout godoc
// @Summary Revoke the current session
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *authHandler) logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), currentToken(c)); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("logout")
		return c.JSON(http.StatusInternalServerError, util.Error("unable to sign out"))
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// me godoc
// @Summary Current user
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} AuthUser
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *authHandler) me(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	return c.JSON(http.StatusOK, util.Data("user", toAuthUser(user)))
}
