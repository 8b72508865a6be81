package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the settings of the translate step.
type Config struct {
	Backend               string
	SourceLang            string
	TargetLang            string
	GeminiAPIKey          string
	TranslationModel      string
	BatchSize             int
	MaxConcurrentAPICalls int
	RequestDelay          time.Duration
	// DatabaseURL enables the persistent translation cache when set.
	DatabaseURL string
	LogLevel    zerolog.Level
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		Backend:               strings.ToLower(getEnv("TRANSLATE_BACKEND", "google")),
		SourceLang:            getEnv("SOURCE_LANG", "auto"),
		TargetLang:            getEnv("TARGET_LANG", "en"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		TranslationModel:      getEnv("TRANSLATION_MODEL", "gemini-2.5-flash"),
		BatchSize:             getEnvInt("BATCH_SIZE", 20),
		MaxConcurrentAPICalls: getEnvInt("MAX_CONCURRENT_API_CALLS", 4),
		RequestDelay:          time.Duration(getEnvInt("REQUEST_DELAY_MS", 10)) * time.Millisecond,
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		LogLevel:              getEnvLevel("LOG_LEVEL", zerolog.InfoLevel),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvLevel(key string, fallback zerolog.Level) zerolog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid log level, using default")
		return fallback
	}
	return lvl
}
