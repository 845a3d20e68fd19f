package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/evently/ticketing/internal/utils"
)

// RequireServiceKey guards the internal reserve/release endpoints called by
// the booking service.  The caller presents its credential in the
// X-Service-Key header and it is checked against the bcrypt hash loaded
// from configuration.  bcrypt comparison keeps the stored credential
// non-recoverable if the environment leaks.
func RequireServiceKey(keyHash string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := c.Request().Header.Get("X-Service-Key")
            if key == "" || !utils.VerifyServiceKey(keyHash, key) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid service key"})
            }
            return next(c)
        }
    }
}
