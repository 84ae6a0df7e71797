package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lowcarbdev/callmatch/internal/phonenumber"
)

// getUserDB is a helper function to get the user's database connection from the context
func getUserDB(c echo.Context) (*sql.DB, error) {
	userID, ok := c.Get("user_id").(string)
	if !ok {
		return nil, fmt.Errorf("user_id not found in context")
	}
	return GetUserDB(userID)
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// parseDateRange reads the optional RFC 3339 start and end query parameters.
// Unparseable values are ignored.
func parseDateRange(c echo.Context) (startDate, endDate *time.Time) {
	if t, err := time.Parse(time.RFC3339, c.QueryParam("start")); err == nil {
		startDate = &t
	}
	if t, err := time.Parse(time.RFC3339, c.QueryParam("end")); err == nil {
		endDate = &t
	}
	return startDate, endDate
}

// HandleCompare reports whether two numbers dial the same party
func HandleCompare(c echo.Context) error {
	var req CompareRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, validationMessage(err))
	}

	return c.JSON(http.StatusOK, CompareResponse{
		Equal: phonenumber.Equal(req.A, req.B),
	})
}

// HandleNormalize returns the reversed dialable form of a number
func HandleNormalize(c echo.Context) error {
	var req NormalizeRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, validationMessage(err))
	}

	capacity := len(req.Number)
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	reversed := phonenumber.StrippedReversed(req.Number, capacity)

	return c.JSON(http.StatusOK, NormalizeResponse{
		Reversed: reversed,
		Length:   len(reversed),
		MinMatch: phonenumber.MinMatchKey(req.Number),
	})
}

func HandleUpload(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, UploadResponse{
			Success: false,
			Error:   "User not authenticated",
		})
	}

	// Large files are streamed to disk past 32 MB
	if err := c.Request().ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Error parsing form", "error", err)
		return c.JSON(http.StatusBadRequest, UploadResponse{
			Success: false,
			Error:   "Failed to parse form data. File may be too large or corrupted.",
		})
	}

	file, header, err := c.Request().FormFile("file")
	if err != nil {
		slog.Error("Error getting file", "error", err)
		return c.JSON(http.StatusBadRequest, UploadResponse{
			Success: false,
			Error:   "Failed to get file from form",
		})
	}
	defer file.Close()

	slog.Info("Receiving file", "filename", header.Filename, "size", header.Size)

	tempFilePath, err := SaveUploadedFile(file)
	if err != nil {
		slog.Error("Error saving file", "error", err)
		return c.JSON(http.StatusInternalServerError, UploadResponse{
			Success: false,
			Error:   "Failed to save uploaded file",
		})
	}

	importID := NewImportID()
	go ProcessUploadedFile(userID, importID, tempFilePath)

	// Client polls /api/progress for status
	return c.JSON(http.StatusOK, UploadResponse{
		Success:    true,
		ImportID:   importID,
		Processing: true,
	})
}

func HandleProgress(c echo.Context) error {
	progress := GetUploadProgress()
	if progress == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "no_upload",
		})
	}

	return c.JSON(http.StatusOK, progress)
}

// HandleConversations lists conversations, grouping equal numbers when the
// user's merge setting is on
func HandleConversations(c echo.Context) error {
	userDB, err := getUserDB(c)
	if err != nil {
		slog.Error("Error getting user database", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get user database")
	}

	settings, err := GetUserSettings(c.Get("user_id").(string))
	if err != nil {
		slog.Error("Error getting user settings", "error", err)
		settings = GetDefaultSettings()
	}

	startDate, endDate := parseDateRange(c)
	conversations, err := GetConversations(userDB, startDate, endDate, settings.Matching.MergeEquivalent)
	if err != nil {
		slog.Error("Error getting conversations", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get conversations")
	}

	applyDisplayAddresses(conversations, settings.Matching.DefaultRegion)
	return c.JSON(http.StatusOK, conversations)
}

// HandleCalls lists the calls with a number, however it was written
func HandleCalls(c echo.Context) error {
	number := strings.TrimSpace(c.QueryParam("number"))
	if number == "" {
		return jsonError(c, http.StatusBadRequest, "Number parameter required")
	}

	userDB, err := getUserDB(c)
	if err != nil {
		slog.Error("Error getting user database", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get user database")
	}

	startDate, endDate := parseDateRange(c)
	calls, err := FindCallsByNumber(userDB, number, startDate, endDate)
	if err != nil {
		slog.Error("Error getting calls", "number", number, "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get calls")
	}

	return c.JSON(http.StatusOK, calls)
}

// HandleMessages lists the messages exchanged with an address
func HandleMessages(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return jsonError(c, http.StatusBadRequest, "Address parameter required")
	}

	userDB, err := getUserDB(c)
	if err != nil {
		slog.Error("Error getting user database", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get user database")
	}

	startDate, endDate := parseDateRange(c)
	messages, err := FindMessagesByAddress(userDB, address, startDate, endDate)
	if err != nil {
		slog.Error("Error getting messages", "address", address, "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get messages")
	}

	return c.JSON(http.StatusOK, messages)
}

func HandleDateRange(c echo.Context) error {
	userDB, err := getUserDB(c)
	if err != nil {
		slog.Error("Error getting user database", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get user database")
	}

	minDate, maxDate, err := GetDateRange(userDB)
	if err != nil {
		slog.Error("Error getting date range", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get date range")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"min_date": minDate,
		"max_date": maxDate,
	})
}

// HandleVersion returns the application version
func HandleVersion(c echo.Context) error {
	// Docker builds write version.json
	if data, err := os.ReadFile("/app/version.json"); err == nil {
		var versionData map[string]string
		if err := json.Unmarshal(data, &versionData); err == nil {
			return c.JSON(http.StatusOK, versionData)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"version": "dev",
	})
}
