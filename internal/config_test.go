package internal

import (
	"os"
	"testing"
	"time"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH_PREFIX", "DEFAULT_REGION", "CORS_ORIGINS", "SESSION_TTL_HOURS", "IMPORT_INTERVAL"} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())

	c := LoadConfig()
	if c.Port != "8081" || c.DBPathPrefix != "." || c.DefaultRegion != "US" {
		t.Errorf("Unexpected defaults: %+v", c)
	}
	if c.SessionTTL != 30*24*time.Hour || c.ImportInterval != time.Minute {
		t.Errorf("Unexpected duration defaults: %v %v", c.SessionTTL, c.ImportInterval)
	}
	if len(c.CORSOrigins) != 3 {
		t.Errorf("Expected 3 default origins, got %v", c.CORSOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH_PREFIX", "/data")
	t.Setenv("DEFAULT_REGION", "gb")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("IMPORT_INTERVAL", "30s")

	c := LoadConfig()
	if c.Port != "9000" || c.DBPathPrefix != "/data" || c.DefaultRegion != "GB" {
		t.Errorf("Unexpected config: %+v", c)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", c.CORSOrigins)
	}
	if c.SessionTTL != 2*time.Hour || c.ImportInterval != 30*time.Second {
		t.Errorf("Unexpected durations: %v %v", c.SessionTTL, c.ImportInterval)
	}
}

func TestLoadConfigIgnoresMalformedDurations(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SESSION_TTL_HOURS", "forever")
	t.Setenv("IMPORT_INTERVAL", "-5s")

	c := LoadConfig()
	if c.SessionTTL != 30*24*time.Hour || c.ImportInterval != time.Minute {
		t.Errorf("Expected defaults for malformed values, got %v %v", c.SessionTTL, c.ImportInterval)
	}
}
