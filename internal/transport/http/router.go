package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	AllowOrigins []string
	Logger       zerolog.Logger
	// Gatherer backs /metrics; nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer
	// BodyLimit caps request bodies, e.g. "64M". Empty disables the cap.
	BodyLimit string
}

func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	allowCredentials := true
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	e.Use(requestLogger(cfg.Logger))
	registerLogging(e)

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderOrigin,
			echo.HeaderXRequestedWith,
			requestIDHeader,
		},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: allowCredentials,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	return e
}
