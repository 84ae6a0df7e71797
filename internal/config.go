package internal

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings read from the environment
type Config struct {
	Port           string
	DBPathPrefix   string
	DefaultRegion  string
	CORSOrigins    []string
	SessionTTL     time.Duration
	ImportInterval time.Duration
}

// UseWALMode controls whether WAL journal mode is enabled for databases
var UseWALMode bool

var cfg = defaultConfig()

func defaultConfig() Config {
	return Config{
		Port:          "8081",
		DBPathPrefix:  ".",
		DefaultRegion: "US",
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
			"http://localhost:8081",
		},
		SessionTTL:     30 * 24 * time.Hour,
		ImportInterval: time.Minute,
	}
}

// LoadConfig reads an optional .env file and then the process environment.
// Unset or malformed values fall back to defaults.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	c := defaultConfig()
	c.Port = getEnv("PORT", c.Port)
	c.DBPathPrefix = getEnv("DB_PATH_PREFIX", c.DBPathPrefix)
	c.DefaultRegion = strings.ToUpper(getEnv("DEFAULT_REGION", c.DefaultRegion))

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	if hours, err := strconv.Atoi(os.Getenv("SESSION_TTL_HOURS")); err == nil && hours > 0 {
		c.SessionTTL = time.Duration(hours) * time.Hour
	}

	if d, err := time.ParseDuration(os.Getenv("IMPORT_INTERVAL")); err == nil && d > 0 {
		c.ImportInterval = d
	}

	return c
}

// Configure installs c as the configuration used by the package
func Configure(c Config) {
	cfg = c
}

// CurrentConfig returns the configuration in effect
func CurrentConfig() Config {
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
