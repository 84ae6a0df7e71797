package internal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Settings represents user settings stored as JSON
type Settings struct {
	Matching MatchingSettings `json:"matching"`
}

// MatchingSettings controls how numbers are grouped and shown
type MatchingSettings struct {
	// DefaultRegion interprets numbers without a country code for display
	DefaultRegion string `json:"default_region" validate:"region"`
	// MergeEquivalent folds differently written numbers of one party into a
	// single conversation
	MergeEquivalent bool `json:"merge_equivalent"`
}

// GetDefaultSettings returns the settings of a user who never saved any
func GetDefaultSettings() Settings {
	return Settings{
		Matching: MatchingSettings{
			DefaultRegion:   cfg.DefaultRegion,
			MergeEquivalent: true,
		},
	}
}

// GetUserSettings retrieves settings for a user
func GetUserSettings(userID string) (Settings, error) {
	var settingsJSON string
	err := authDB.QueryRow("SELECT settings_json FROM settings WHERE user_id = ?", userID).Scan(&settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return GetDefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}

	// Start from defaults so fields added later keep sensible values
	settings := GetDefaultSettings()
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SaveUserSettings saves settings for a user
func SaveUserSettings(userID string, settings Settings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	_, err = authDB.Exec(`
		INSERT INTO settings (user_id, settings_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			settings_json = excluded.settings_json,
			updated_at = excluded.updated_at
	`, userID, string(settingsJSON), time.Now().Unix())
	return err
}

// HandleGetSettings handles GET /api/settings
func HandleGetSettings(c echo.Context) error {
	userID := c.Get("user_id").(string)

	settings, err := GetUserSettings(userID)
	if err != nil {
		slog.Error("Error loading settings", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to get settings",
		})
	}

	return c.JSON(http.StatusOK, settings)
}

// HandleUpdateSettings handles PUT /api/settings
func HandleUpdateSettings(c echo.Context) error {
	userID := c.Get("user_id").(string)

	var settings Settings
	if err := c.Bind(&settings); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid settings data",
		})
	}
	settings.Matching.DefaultRegion = strings.ToUpper(strings.TrimSpace(settings.Matching.DefaultRegion))
	if err := c.Validate(&settings); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": validationMessage(err),
		})
	}

	if err := SaveUserSettings(userID, settings); err != nil {
		slog.Error("Error saving settings", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save settings",
		})
	}

	return c.JSON(http.StatusOK, settings)
}
