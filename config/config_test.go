package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"library-lending/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LMS_DATA_DIR", "data")
	t.Setenv("LMS_STORE", "file")
	t.Setenv("LMS_SQLITE_FILE", "library.db")
	t.Setenv("LMS_PASSWORD_SCHEME", "plain")
	t.Setenv("LMS_LOG_LEVEL", "warn")
	t.Setenv("LMS_SEED", "true")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.True(t, cfg.Seed)
	assert.Equal(t, filepath.Join("data", "library.db"), cfg.SQLitePath())

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LMS_DATA_DIR", "/tmp/lms")
	t.Setenv("LMS_STORE", "SQLite")
	t.Setenv("LMS_PASSWORD_SCHEME", "bcrypt")
	t.Setenv("LMS_LOG_LEVEL", "debug")
	t.Setenv("LMS_SEED", "false")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/tmp/lms", cfg.DataDir)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "bcrypt", cfg.PasswordScheme)
	assert.False(t, cfg.Seed)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	base := Config{DataDir: "data", Store: StoreFile, PasswordScheme: "plain", LogLevel: "info"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"unknown store", func(c *Config) { c.Store = "postgres" }},
		{"unknown scheme", func(c *Config) { c.PasswordScheme = "md5" }},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsLibraryPasswordSchemes(t *testing.T) {
	for _, scheme := range []library.PasswordScheme{library.PlainPasswords, library.BcryptPasswords} {
		cfg := Config{DataDir: "data", Store: StoreFile, PasswordScheme: string(scheme), LogLevel: "info"}
		assert.NoError(t, cfg.Validate(), scheme)
	}
}
