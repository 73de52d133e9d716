package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the recommender service
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Index     IndexConfig
	Recommend RecommendConfig
	Fetch     FetchConfig
	LLM       LLMConfig
	Log       LogConfig
}

// ServerConfig holds HTTP transport configuration
type ServerConfig struct {
	Addr               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	// RateLimitRequests per RateLimitWindow and client IP; 0 disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// CatalogConfig describes where the assessment catalog comes from.
// URL takes precedence over Path when set.
type CatalogConfig struct {
	Path          string
	URL           string
	CacheDir      string
	Watch         bool
	WatchDebounce time.Duration
}

// IndexConfig holds tokenizer and build settings
type IndexConfig struct {
	Stopwords      bool
	MinTokenLength int
	FoldDiacritics bool
	Workers        int
}

type RecommendConfig struct {
	DefaultTopN int
	MaxTopN     int
}

// FetchConfig holds remote catalog fetch settings
type FetchConfig struct {
	Timeout       time.Duration
	UserAgent     string
	RespectRobots bool
}

type LLMConfig struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               GetStringEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:        GetDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:       GetDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout:    GetDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRequests:  GetIntEnv("RATE_LIMIT_REQUESTS", 120),
			RateLimitWindow:    GetDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Catalog: CatalogConfig{
			Path:          GetStringEnv("CATALOG_PATH", "./data/shl_assessments.csv"),
			URL:           GetStringEnv("CATALOG_URL", ""),
			CacheDir:      GetStringEnv("CATALOG_CACHE_DIR", "./data/cache"),
			Watch:         GetBoolEnv("CATALOG_WATCH", true),
			WatchDebounce: GetDurationEnv("CATALOG_WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Index: IndexConfig{
			Stopwords:      GetBoolEnv("INDEX_STOPWORDS", true),
			MinTokenLength: GetIntEnv("INDEX_MIN_TOKEN_LENGTH", 2),
			FoldDiacritics: GetBoolEnv("INDEX_FOLD_DIACRITICS", true),
			Workers:        GetIntEnv("INDEX_WORKERS", 4),
		},
		Recommend: RecommendConfig{
			DefaultTopN: GetIntEnv("RECOMMEND_DEFAULT_TOP_N", 10),
			MaxTopN:     GetIntEnv("RECOMMEND_MAX_TOP_N", 50),
		},
		Fetch: FetchConfig{
			Timeout:       GetDurationEnv("FETCH_TIMEOUT", 30*time.Second),
			UserAgent:     GetStringEnv("FETCH_USER_AGENT", "AssessmentRecommender/1.0"),
			RespectRobots: GetBoolEnv("FETCH_RESPECT_ROBOTS", true),
		},
		LLM: LLMConfig{
			Provider: GetStringEnv("LLM_PROVIDER", "ollama"),
			BaseURL:  GetStringEnv("LLM_BASE_URL", ""),
			Model:    GetStringEnv("LLM_MODEL", "qwen3:1.7b"),
			APIKey:   GetStringEnv("LLM_API_KEY", ""),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetStringSliceEnv splits a comma separated value, ignoring empty items
func GetStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
