package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

// SenderFromCtx extracts the authenticated sender identity set by
// APIKeyMiddleware.
func SenderFromCtx(c echo.Context) (string, bool) {
	v := c.Get("sender")
	s, ok := v.(string)
	return s, ok && s != ""
}

// APIKeyMiddleware authenticates requests using the X-API-Key header. Keys
// are static config entries mapping to a sender identity, which ends up on
// every event the request dispatches.
func APIKeyMiddleware(keys map[string]string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			sender, ok := keys[key]
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("sender", sender)
			return next(c)
		}
	}
}
