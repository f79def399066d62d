package http

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
)

var redactedKeys = []string{"password", "token", "secret"}

func registerLogging(e *echo.Echo) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger := zerolog.Ctx(c.Request().Context())
			event := logger.Info()
			switch {
			case v.Status >= 500:
				event = logger.Error()
			case v.Status >= 400:
				event = logger.Warn()
			}
			event = event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds())
			if user, ok := CurrentUser(c); ok {
				event = event.Str("user_id", user.ID.String())
			}
			if summary := c.Get(requestBodyLogKey); summary != nil {
				event = event.Interface("request_body", summary)
			}
			if summary := c.Get(responseBodyLogKey); summary != nil {
				event = event.Interface("response_body", summary)
			}
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.Msg("http request")
			return nil
		},
	}))

	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		// Multipart uploads are summarized by the handlers; dumping them would
		// buffer every file twice.
		Skipper: func(c echo.Context) bool {
			return isMultipart(c.Request().Header.Get(echo.HeaderContentType))
		},
		Handler: func(c echo.Context, reqBody, resBody []byte) {
			if summary := sanitizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
				c.Set(requestBodyLogKey, summary)
			}
			if summary := sanitizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
				c.Set(responseBodyLogKey, summary)
			}
		},
	}))
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), echo.MIMEMultipartForm)
}

// sanitizeBody turns a body into a loggable summary with credentials redacted.
func sanitizeBody(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}
	lowered := strings.ToLower(strings.TrimSpace(contentType))

	if strings.HasPrefix(lowered, echo.MIMEApplicationJSON) || json.Valid(body) {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			return limitJSONSize(sanitizeJSON(data))
		}
	}

	if strings.HasPrefix(lowered, echo.MIMEApplicationForm) {
		if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 {
			out := make(map[string]any, len(values))
			for key, vals := range values {
				if isSensitiveKey(key) {
					out[key] = "redacted"
					continue
				}
				out[key] = clampString(strings.Join(vals, ","))
			}
			return limitJSONSize(out)
		}
	}

	if !utf8.Valid(body) {
		return "binary"
	}
	text := string(body)
	if isSensitiveKey(text) {
		return "redacted"
	}
	return clampString(text)
}

func sanitizeJSON(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if isSensitiveKey(key) {
				out[key] = "redacted"
				continue
			}
			out[key] = sanitizeJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeJSON(item)
		}
		return out
	case string:
		return clampString(v)
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range redactedKeys {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func limitJSONSize(value any) any {
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	return map[string]any{"_truncated": true, "_bytes": len(buf)}
}

func clampString(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	cut := maxLoggedBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
