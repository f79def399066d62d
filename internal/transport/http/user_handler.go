package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

type UserLister interface {
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

func RegisterUsers(e *echo.Echo, auth Authenticator, users UserLister) {
	group := e.Group("/api/v1/users", RequireAuth(auth), RequireAdmin())

	// @Summary List users
	// @Tags Users
	// @Security BearerAuth
	// @Produce json
	// @Param limit query int false "Page size" default(100)
	// @Param offset query int false "Offset" default(0)
	// @Success 200 {object} UsersListResponse
	// @Failure 401 {object} ErrorResponse
	// @Failure 403 {object} ErrorResponse
	// @Router /api/v1/users [get]
	group.GET("", func(c echo.Context) error {
		limit, offset := parsePagination(c, 100, 0)
		list, err := users.List(c.Request().Context(), limit, offset)
		if err != nil {
			zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("list users")
			return c.JSON(http.StatusInternalServerError, util.Error("unable to list users"))
		}
		out := make([]AuthUser, 0, len(list))
		for i := range list {
			out = append(out, toAuthUser(&list[i]))
		}
		return c.JSON(http.StatusOK, UsersListResponse{
			Users: out,
			Meta:  UsersMeta{Limit: limit, Offset: offset, Count: len(out)},
		})
	})
}

func parsePagination(c echo.Context, defaultLimit, defaultOffset int) (int, int) {
	limit := defaultLimit
	offset := defaultOffset
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := strings.TrimSpace(c.QueryParam("offset")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
