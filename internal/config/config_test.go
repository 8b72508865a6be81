package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"TRANSLATE_BACKEND", "SOURCE_LANG", "TARGET_LANG", "GEMINI_API_KEY", "TRANSLATION_MODEL",
		"BATCH_SIZE", "MAX_CONCURRENT_API_CALLS", "REQUEST_DELAY_MS", "DATABASE_URL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, &Config{
		Backend:               "google",
		SourceLang:            "auto",
		TargetLang:            "en",
		TranslationModel:      "gemini-2.5-flash",
		BatchSize:             20,
		MaxConcurrentAPICalls: 4,
		RequestDelay:          10 * time.Millisecond,
		LogLevel:              zerolog.InfoLevel,
	}, cfg)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRANSLATE_BACKEND", "Gemini")
	t.Setenv("SOURCE_LANG", "es")
	t.Setenv("TARGET_LANG", "de")
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("MAX_CONCURRENT_API_CALLS", "lots")
	t.Setenv("REQUEST_DELAY_MS", "250")
	t.Setenv("DATABASE_URL", "postgres://localhost/cache")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	assert.Equal(t, "gemini", cfg.Backend)
	assert.Equal(t, "es", cfg.SourceLang)
	assert.Equal(t, "de", cfg.TargetLang)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 4, cfg.MaxConcurrentAPICalls)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, "postgres://localhost/cache", cfg.DatabaseURL)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}
