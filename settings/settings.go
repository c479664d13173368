// Package settings loads runtime settings from environment variables.
package settings

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds runtime tunables that are not part of the hot-reloaded
// content documents.
type Settings struct {
	ConfigDir string
	ModsDir   string
	Watch     bool

	LogLevel  string
	LogFormat string

	TickBudget        time.Duration
	BackgroundCadence int
	ReputationDecay   float64
	HistoryCapacity   int
	Seed              int64
}

// Default returns the settings used when no environment is set.
func Default() Settings {
	return Settings{
		ConfigDir:         "config",
		ModsDir:           "mods",
		Watch:             true,
		LogLevel:          "info",
		LogFormat:         "text",
		TickBudget:        4 * time.Millisecond,
		BackgroundCadence: 4,
		ReputationDecay:   1.0,
		HistoryCapacity:   1000,
		Seed:              1,
	}
}

// Load reads AICORE_* and LOG_* variables on top of Default.
func Load() Settings {
	s := Default()
	s.ConfigDir = getEnv("AICORE_CONFIG_DIR", s.ConfigDir)
	s.ModsDir = getEnv("AICORE_MODS_DIR", s.ModsDir)
	s.Watch = getEnvBool("AICORE_WATCH", s.Watch)
	s.LogLevel = getEnv("LOG_LEVEL", s.LogLevel)
	s.LogFormat = getEnv("LOG_FORMAT", s.LogFormat)
	s.TickBudget = getEnvDuration("AICORE_TICK_BUDGET", s.TickBudget)
	s.BackgroundCadence = getEnvInt("AICORE_BACKGROUND_CADENCE", s.BackgroundCadence)
	s.ReputationDecay = getEnvFloat("AICORE_REPUTATION_DECAY", s.ReputationDecay)
	s.HistoryCapacity = getEnvInt("AICORE_HISTORY_CAPACITY", s.HistoryCapacity)
	s.Seed = int64(getEnvInt("AICORE_SEED", int(s.Seed)))

	if s.BackgroundCadence < 1 {
		s.BackgroundCadence = 1
	}
	if s.ReputationDecay < 0 {
		s.ReputationDecay = 0
	}
	return s
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
