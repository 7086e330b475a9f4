package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/touch/internal/config"
	"github.com/zalando/go-keyring"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"IDDailyCheck", config.IDDailyCheck},
		{"IDWeeklyReflection", config.IDWeeklyReflection},
		{"ChannelReminders", config.ChannelReminders},
		{"ChannelWeekly", config.ChannelWeekly},
		{"ICalProdid", config.ICalProdid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

// TestScheduling_Sanity pins the scheduling policy numbers the reminder
// campaign depends on.
func TestScheduling_Sanity(t *testing.T) {
	assert.Equal(t, 5, config.MaxContactReminders)
	assert.Equal(t, 3600, config.ReminderStaggerSeconds)
	assert.Equal(t, int64(24*time.Hour/time.Second), int64(config.DailyPeriodSeconds))
	assert.Equal(t, int64(7*24*time.Hour/time.Second), int64(config.WeeklyPeriodSeconds))
	assert.NotEqual(t, config.ChannelReminders, config.ChannelWeekly, "Weekly reflections need their own channel")

	// Fixed identifiers double as type tags for the recurring notifications.
	assert.Equal(t, config.IDDailyCheck, config.TypeDailyCheck)
	assert.Equal(t, config.IDWeeklyReflection, config.TypeWeeklyReflection)
}

// TestHealthThresholds_Ordering guards the color bands.
func TestHealthThresholds_Ordering(t *testing.T) {
	assert.Less(t, config.HealthMin, config.AttentionThreshold)
	assert.Less(t, config.AttentionThreshold, config.HealthWarnThreshold)
	assert.Less(t, config.HealthWarnThreshold, config.HealthGoodThreshold)
	assert.Less(t, config.HealthGoodThreshold, config.HealthMax)
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Touch-Companion/"))
}

// TestTimeoutsAndLimits ensures that operational constraints are reasonable.
func TestTimeoutsAndLimits(t *testing.T) {
	t.Parallel()

	assert.Greater(t, config.HTTPTimeout, 0*time.Second)
	assert.LessOrEqual(t, config.HTTPTimeout, 2*time.Minute)
	assert.Greater(t, config.ShutdownTimeout, 0*time.Second)
	assert.Greater(t, config.MaxHTTPResponseSize, 0)
	assert.Greater(t, config.DefaultDispatchInterval, 0*time.Second)
}

func TestLoadSettings_FromEnvironment(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	t.Setenv(config.EnvBackendURL, "https://touch.example.com/")
	t.Setenv(config.EnvAPIUser, "ada")
	t.Setenv(config.EnvSourceMode, config.SourceModeLocal)
	t.Setenv(config.EnvLocalPath, "/tmp/contacts.vcf")
	t.Setenv(config.EnvDBPath, dbPath)
	t.Setenv(config.EnvFeedPort, "19000")
	t.Setenv(config.EnvRefreshMin, "15")

	s := config.LoadSettings(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "https://touch.example.com", s.BackendURL, "Trailing slash should be trimmed")
	assert.Equal(t, "ada", s.APIUser)
	assert.Equal(t, config.SourceModeLocal, s.SourceMode)
	assert.Equal(t, "/tmp/contacts.vcf", s.LocalPath)
	assert.Equal(t, dbPath, s.DBPath)
	assert.Equal(t, "19000", s.FeedPort)
	assert.Equal(t, 15, s.RefreshMinutes)
}

func TestLoadSettings_DotEnvAndDefaults(t *testing.T) {
	t.Setenv(config.EnvDBPath, filepath.Join(t.TempDir(), "queue.db"))
	t.Setenv(config.EnvRefreshMin, "not-a-number")

	envFile := filepath.Join(t.TempDir(), "touch.env")
	require.NoError(t, os.WriteFile(envFile, []byte(config.EnvFeedPort+"=19191\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv(config.EnvFeedPort) })

	s := config.LoadSettings(envFile)

	assert.Equal(t, "19191", s.FeedPort, "Value should come from the .env file")
	assert.Equal(t, config.DefaultRefreshMin, s.RefreshMinutes, "Invalid refresh falls back to default")
}

func TestAPIToken_Keyring(t *testing.T) {
	keyring.MockInit()

	token, err := config.APIToken("nobody")
	require.NoError(t, err)
	assert.Empty(t, token, "Missing secret is not an error")

	require.NoError(t, config.StoreAPIToken("ada", "s3cret"))
	token, err = config.APIToken("ada")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", token)

	token, err = config.APIToken("")
	require.NoError(t, err)
	assert.Empty(t, token)

	assert.EqualError(t, config.StoreAPIToken("", "x"), config.ErrAPIUserRequired)
}
