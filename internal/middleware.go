package internal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware requires a live session cookie and exposes the session to
// handlers as "session", "user_id" and "username"
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized: No session found",
			})
		}

		session, err := GetSession(cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				slog.Error("Error loading session", "error", err)
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized: Invalid or expired session",
			})
		}

		c.Set("session", session)
		c.Set("user_id", session.UserID)
		c.Set("username", session.Username)

		return next(c)
	}
}

// NoCacheMiddleware keeps browsers from caching API responses
func NoCacheMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")

		return next(c)
	}
}
