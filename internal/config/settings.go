package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings carries the runtime configuration shared by the desktop companion
// and the CLI. Values come from the process environment, optionally seeded
// from .env files.
type Settings struct {
	BackendURL     string // Base URL of the Touch backend (no trailing /api)
	APIUser        string // Account whose token is kept in the OS keyring
	SourceMode     string // SourceModeWeb or SourceModeLocal
	LocalPath      string // vCard export used in local mode
	DBPath         string // Local notification queue
	FeedPort       string // Port of the iCalendar reminder feed
	RefreshMinutes int    // Pending reminder refresh cadence
}

// LoadSettings reads Settings from the environment. Missing .env files are
// not an error; variables already set in the process win over file values.
func LoadSettings(envFiles ...string) Settings {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug(MsgEnvFileSkipped,
			LogKeyComponent, CompConfig,
			LogKeyError, err)
	}

	s := Settings{
		BackendURL:     strings.TrimRight(getEnv(EnvBackendURL, ""), "/"),
		APIUser:        getEnv(EnvAPIUser, ""),
		SourceMode:     getEnv(EnvSourceMode, DefaultSourceMode),
		LocalPath:      getEnv(EnvLocalPath, ""),
		DBPath:         getEnv(EnvDBPath, ""),
		FeedPort:       getEnv(EnvFeedPort, DefaultFeedPort),
		RefreshMinutes: DefaultRefreshMin,
	}

	if v, err := strconv.Atoi(getEnv(EnvRefreshMin, "")); err == nil && v > 0 {
		s.RefreshMinutes = v
	}

	if s.DBPath == "" {
		if p, err := DefaultDBPath(); err == nil {
			s.DBPath = p
		}
	}
	return s
}

// DefaultDBPath returns the queue location inside the user's config directory,
// creating the application directory if needed.
func DefaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}

	appDir := filepath.Join(dir, AppID)
	if err := os.MkdirAll(appDir, DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", ErrCreateDir, err)
	}
	return filepath.Join(appDir, QueueFileName), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
