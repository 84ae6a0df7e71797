package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lowcarbdev/callmatch/internal"
	"github.com/lowcarbdev/callmatch/internal/phonenumber"
	"golang.org/x/term"
)

var logger *slog.Logger

func main() {
	resetPassword := flag.String("reset-password", "", "Reset password for the specified username")
	listUsers := flag.Bool("list-users", false, "List all users")
	journalMode := flag.Bool("journal", false, "Use rollback journal mode instead of WAL (for network filesystems)")
	compare := flag.Bool("compare", false, "Compare the two numbers given as arguments and exit")
	normalize := flag.String("normalize", "", "Print the reversed dialable form of a number and exit")
	flag.Parse()

	// The matching tools need no database
	if *compare {
		os.Exit(runCompare(flag.Args()))
	}
	if *normalize != "" {
		fmt.Println(phonenumber.StrippedReversed(*normalize, len(*normalize)))
		os.Exit(0)
	}

	internal.UseWALMode = !*journalMode

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := internal.LoadConfig()
	internal.Configure(cfg)

	authDBPath := filepath.Join(cfg.DBPathPrefix, "callmatch.db")
	if err := internal.InitAuthDB(authDBPath); err != nil {
		logger.Error("Failed to initialize authentication database", "error", err)
		os.Exit(1)
	}
	defer internal.CloseAuthDB()
	logger.Info("Authentication database initialized", "path", authDBPath)

	if *resetPassword != "" {
		if err := handleResetPassword(*resetPassword); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listUsers {
		if err := handleListUsers(cfg.DBPathPrefix); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	validator, err := internal.NewRequestValidator()
	if err != nil {
		logger.Error("Failed to build request validator", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(internal.CustomCORSMiddleware(cfg.CORSOrigins))

	// Public routes
	e.POST("/api/auth/register", internal.HandleRegister, internal.NoCacheMiddleware)
	e.POST("/api/auth/login", internal.HandleLogin, internal.NoCacheMiddleware)
	e.POST("/api/auth/logout", internal.HandleLogout, internal.NoCacheMiddleware)
	e.POST("/api/compare", internal.HandleCompare)
	e.POST("/api/normalize", internal.HandleNormalize)
	e.GET("/api/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/api/version", internal.HandleVersion)

	protected := e.Group("/api")
	protected.Use(internal.AuthMiddleware)
	protected.Use(internal.NoCacheMiddleware)

	protected.GET("/auth/me", internal.HandleMe)
	protected.POST("/auth/change-password", internal.HandleChangePassword)
	protected.POST("/upload", internal.HandleUpload)
	protected.GET("/progress", internal.HandleProgress)
	protected.GET("/conversations", internal.HandleConversations)
	protected.GET("/calls", internal.HandleCalls)
	protected.GET("/messages", internal.HandleMessages)
	protected.GET("/daterange", internal.HandleDateRange)
	protected.GET("/settings", internal.HandleGetSettings)
	protected.PUT("/settings", internal.HandleUpdateSettings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := internal.NewIngestScanner(filepath.Join(cfg.DBPathPrefix, "data"), cfg.ImportInterval)
	scanner.Start(ctx)

	go cleanSessions(ctx)

	// Uploads of large backups need long timeouts
	e.Server = &http.Server{
		Addr:              ":" + cfg.Port,
		ReadTimeout:       30 * time.Minute,
		WriteTimeout:      30 * time.Minute,
		ReadHeaderTimeout: 1 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	scanner.Stop()
	internal.CloseUserDBs()
}

// runCompare prints whether two numbers are equal and returns the exit code
func runCompare(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: callmatch -compare <number> <number>")
		return 2
	}
	equal := phonenumber.Equal(args[0], args[1])
	fmt.Println(equal)
	if !equal {
		return 1
	}
	return 0
}

func cleanSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := internal.CleanExpiredSessions()
			if err != nil {
				logger.Error("Failed to clean expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Removed expired sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleResetPassword prompts for a new password and resets it for the given username
func handleResetPassword(username string) error {
	user, err := internal.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return fmt.Errorf("user '%s' not found", username)
		}
		return err
	}

	fmt.Print("Enter new password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm new password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}

	password := string(passwordBytes)
	if password != string(confirmBytes) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	if err := internal.UpdatePassword(user.ID, password); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Printf("Password reset successfully for user '%s'\n", username)
	return nil
}

// handleListUsers lists all users with their usernames, UUIDs, and ingest directories
func handleListUsers(dbPathPrefix string) error {
	users, err := internal.ListUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tUUID\tINGEST DIRECTORY")
	fmt.Fprintln(w, "--------\t----\t----------------")
	for _, user := range users {
		ingestDir := filepath.Join(dbPathPrefix, "data", user.ID, "ingest")
		fmt.Fprintf(w, "%s\t%s\t%s\n", user.Username, user.ID, ingestDir)
	}
	return w.Flush()
}
