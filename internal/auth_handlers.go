package internal

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const sessionCookie = "session_id"

func authError(c echo.Context, status int, msg string) error {
	return c.JSON(status, AuthResponse{Success: false, Error: msg})
}

// bindAndValidate decodes the request body into req and runs its validate
// tags, replying 400 on failure. ok is false when a response was written.
func bindAndValidate(c echo.Context, req interface{}) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, authError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return false, authError(c, http.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

func setSessionCookie(c echo.Context, session *Session) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
}

func startSession(c echo.Context, user *User) error {
	session, err := CreateSession(user.ID, user.Username)
	if err != nil {
		slog.Error("Error creating session", "error", err)
		return authError(c, http.StatusInternalServerError, "Failed to create session")
	}
	setSessionCookie(c, session)

	return c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		User:    user,
		Session: session,
	})
}

func HandleRegister(c echo.Context) error {
	var req RegisterRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := CreateUser(req.Username, req.Password)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return authError(c, http.StatusConflict, "Username already exists")
		}
		slog.Error("Error creating user", "error", err)
		return authError(c, http.StatusInternalServerError, "Failed to create user")
	}

	if err := InitUserDB(user.ID, userDBPath(user.ID)); err != nil {
		slog.Error("Error initializing user database", "user_id", user.ID, "error", err)
		return echo.ErrInternalServerError
	}

	return startSession(c, user)
}

func HandleLogin(c echo.Context) error {
	var req LoginRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	user, err := GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			slog.Error("Error looking up user", "error", err)
		}
		return authError(c, http.StatusUnauthorized, "Invalid username or password")
	}
	if !VerifyPassword(user, req.Password) {
		return authError(c, http.StatusUnauthorized, "Invalid username or password")
	}

	return startSession(c, user)
}

func HandleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		if err := DeleteSession(cookie.Value); err != nil {
			slog.Warn("Failed to delete session", "error", err)
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	return c.JSON(http.StatusOK, map[string]bool{
		"success": true,
	})
}

func HandleMe(c echo.Context) error {
	session, ok := c.Get("session").(*Session)
	if !ok {
		return authError(c, http.StatusUnauthorized, "Unauthorized")
	}

	user, err := GetUserByID(session.UserID)
	if err != nil {
		return authError(c, http.StatusInternalServerError, "Failed to get user info")
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		User:    user,
		Session: session,
	})
}

func HandleChangePassword(c echo.Context) error {
	session, ok := c.Get("session").(*Session)
	if !ok {
		return authError(c, http.StatusUnauthorized, "Unauthorized")
	}

	var req ChangePasswordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	user, err := GetUserByID(session.UserID)
	if err != nil {
		return authError(c, http.StatusInternalServerError, "Failed to get user info")
	}
	if !VerifyPassword(user, req.OldPassword) {
		return authError(c, http.StatusUnauthorized, "Current password is incorrect")
	}

	if err := UpdatePassword(user.ID, req.NewPassword); err != nil {
		slog.Error("Error updating password", "error", err)
		return authError(c, http.StatusInternalServerError, "Failed to update password")
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Success: true,
	})
}
