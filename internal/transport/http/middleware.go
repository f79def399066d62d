package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/service"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

const (
	contextUserKey  = "auth.user"
	contextTokenKey = "auth.token"
	requestIDHeader = "X-Request-ID"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimSpace(authHeader) == "" {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid authorization header"))
			}
			token := strings.TrimSpace(parts[1])
			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) || errors.Is(err, service.ErrSessionExpired) {
					return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
				}
				zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("authenticate request")
				return c.JSON(http.StatusInternalServerError, util.Error("unable to verify session"))
			}
			c.Set(contextUserKey, user)
			c.Set(contextTokenKey, token)

			ctx := upload.WithBearerToken(c.Request().Context(), token)
			logger := zerolog.Ctx(ctx).With().Str("user_id", user.ID.String()).Logger()
			c.SetRequest(c.Request().WithContext(logger.WithContext(ctx)))
			return next(c)
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
			}
			if !user.IsAdmin() {
				return c.JSON(http.StatusForbidden, util.Error("admin privileges required"))
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(contextUserKey).(*domain.User)
	return user, ok && user != nil
}

func currentToken(c echo.Context) string {
	token, _ := c.Get(contextTokenKey).(string)
	return token
}

// requestLogger attaches a request-scoped zerolog logger to the request
// context, tagged with the request id.
func requestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := strings.TrimSpace(req.Header.Get(requestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, id)
			logger := base.With().Str("request_id", id).Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))
			return next(c)
		}
	}
}
