package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the typed configuration of the diwhy kernel.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Container ContainerConfig
}

type AppConfig struct {
	Name            string
	Env             string // local | production | testing
	Debug           bool
	Port            string
	CORSOrigins     []string
	ShutdownTimeout int // seconds
}

type LogConfig struct {
	Level   string // debug | info | warn | error
	Handler string // text | plain | json
	Driver  string // slog | zap
}

type ContainerConfig struct {
	Manifest      string // YAML manifest loaded on boot, empty for none
	Metrics       bool
	Introspection bool
	MetricsPath   string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Variables already set in the environment win over the files.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:            env("APP_NAME", "DiWhy"),
			Env:             env("APP_ENV", "local"),
			Debug:           envBool("APP_DEBUG", true),
			Port:            env("APP_PORT", "8000"),
			CORSOrigins:     envList("APP_CORS_ORIGINS"),
			ShutdownTimeout: GetInt("APP_SHUTDOWN_TIMEOUT", 10),
		},
		Log: LogConfig{
			Level:   env("LOG_LEVEL", "info"),
			Handler: env("LOG_HANDLER", "text"),
			Driver:  env("LOG_DRIVER", "slog"),
		},
		Container: ContainerConfig{
			Manifest:      env("CONTAINER_MANIFEST", ""),
			Metrics:       envBool("CONTAINER_METRICS", true),
			Introspection: envBool("CONTAINER_INTROSPECTION", true),
			MetricsPath:   env("CONTAINER_METRICS_PATH", "/metrics"),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList splits a comma-separated value, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
