package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/assessment-engine/recommender/internal/config"
)

var configEnvKeys = []string{
	"SERVER_ADDR",
	"SERVER_READ_TIMEOUT",
	"CORS_ALLOWED_ORIGINS",
	"RATE_LIMIT_REQUESTS",
	"CATALOG_PATH",
	"CATALOG_URL",
	"CATALOG_WATCH",
	"CATALOG_WATCH_DEBOUNCE",
	"INDEX_STOPWORDS",
	"INDEX_MIN_TOKEN_LENGTH",
	"INDEX_WORKERS",
	"RECOMMEND_DEFAULT_TOP_N",
	"RECOMMEND_MAX_TOP_N",
	"FETCH_RESPECT_ROBOTS",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnvVars(t)

	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 120, cfg.Server.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.Server.RateLimitWindow)

	assert.Equal(t, "./data/shl_assessments.csv", cfg.Catalog.Path)
	assert.Empty(t, cfg.Catalog.URL)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.WatchDebounce)

	assert.True(t, cfg.Index.Stopwords)
	assert.Equal(t, 2, cfg.Index.MinTokenLength)
	assert.True(t, cfg.Index.FoldDiacritics)
	assert.Equal(t, 4, cfg.Index.Workers)

	assert.Equal(t, 10, cfg.Recommend.DefaultTopN)
	assert.Equal(t, 50, cfg.Recommend.MaxTopN)

	assert.True(t, cfg.Fetch.RespectRobots)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnvVars(t)

	envVars := map[string]string{
		"SERVER_ADDR":             ":9090",
		"SERVER_READ_TIMEOUT":     "5s",
		"CORS_ALLOWED_ORIGINS":    "https://a.example.com, https://b.example.com",
		"RATE_LIMIT_REQUESTS":     "0",
		"CATALOG_PATH":            "/srv/catalog.json",
		"CATALOG_URL":             "https://example.com/catalog.csv",
		"CATALOG_WATCH":           "false",
		"CATALOG_WATCH_DEBOUNCE":  "2s",
		"INDEX_STOPWORDS":         "false",
		"INDEX_MIN_TOKEN_LENGTH":  "1",
		"INDEX_WORKERS":           "16",
		"RECOMMEND_DEFAULT_TOP_N": "5",
		"RECOMMEND_MAX_TOP_N":     "20",
		"FETCH_RESPECT_ROBOTS":    "false",
		"LOG_LEVEL":               "debug",
		"LOG_FORMAT":              "json",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Zero(t, cfg.Server.RateLimitRequests)
	assert.Equal(t, "/srv/catalog.json", cfg.Catalog.Path)
	assert.Equal(t, "https://example.com/catalog.csv", cfg.Catalog.URL)
	assert.False(t, cfg.Catalog.Watch)
	assert.Equal(t, 2*time.Second, cfg.Catalog.WatchDebounce)
	assert.False(t, cfg.Index.Stopwords)
	assert.Equal(t, 1, cfg.Index.MinTokenLength)
	assert.Equal(t, 16, cfg.Index.Workers)
	assert.Equal(t, 5, cfg.Recommend.DefaultTopN)
	assert.Equal(t, 20, cfg.Recommend.MaxTopN)
	assert.False(t, cfg.Fetch.RespectRobots)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestGetStringEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue string
		expected     string
	}{
		{"Existing env var", "TEST_STRING", "test_value", "default", "test_value"},
		{"Non-existing env var", "NON_EXISTENT", "", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.expected, config.GetStringEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetIntEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"Valid int", "42", 10, 42},
		{"Invalid int", "not_a_number", 10, 10},
		{"Negative int", "-5", 10, -5},
		{"Zero", "0", 10, 0},
		{"Unset", "", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			assert.Equal(t, tt.expected, config.GetIntEnv("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"True string", "true", false, true},
		{"False string", "false", true, false},
		{"1 (true)", "1", false, true},
		{"0 (false)", "0", true, false},
		{"Invalid bool", "invalid", true, true},
		{"Unset", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.expected, config.GetBoolEnv("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"Seconds", "5s", time.Second, 5 * time.Second},
		{"Combined", "1h30m", time.Second, 90 * time.Minute},
		{"Invalid duration", "invalid", 5 * time.Second, 5 * time.Second},
		{"Unset", "", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			assert.Equal(t, tt.expected, config.GetDurationEnv("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetStringSliceEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"Single", "a", []string{"a"}},
		{"Trimmed", " a , b ,c", []string{"a", "b", "c"}},
		{"Only separators", " , ,", []string{"default"}},
		{"Unset", "", []string{"default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SLICE", tt.envValue)
			assert.Equal(t, tt.expected, config.GetStringSliceEnv("TEST_SLICE", []string{"default"}))
		})
	}
}

// clearEnvVars unsets every variable read by Load for the duration of the test
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
