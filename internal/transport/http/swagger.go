package http

import (
	"net/http"
	"os"

	"github.com/ghodss/yaml"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

// DefaultSwaggerPath is the OpenAPI document served under /swagger.
const DefaultSwaggerPath = "docs/swagger.yaml"

// RegisterSwagger serves the YAML document at specPath as JSON, plus the
// Swagger UI under /swagger.
func RegisterSwagger(e *echo.Echo, specPath string) {
	if specPath == "" {
		specPath = DefaultSwaggerPath
	}
	e.GET("/swagger/doc.json", func(c echo.Context) error {
		logger := zerolog.Ctx(c.Request().Context())
		data, err := os.ReadFile(specPath)
		if err != nil {
			logger.Error().Err(err).Str("path", specPath).Msg("load swagger spec")
			return c.JSON(http.StatusInternalServerError, util.Error("unable to load swagger spec"))
		}
		jsonSpec, err := yaml.YAMLToJSON(data)
		if err != nil {
			logger.Error().Err(err).Msg("convert swagger spec")
			return c.JSON(http.StatusInternalServerError, util.Error("unable to parse swagger spec"))
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, jsonSpec)
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}
