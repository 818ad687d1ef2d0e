package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"library-lending/library"

	"github.com/joho/godotenv"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds the settings shared by the console and the import tool.
type Config struct {
	DataDir        string
	Store          string
	SQLiteFile     string
	PasswordScheme string
	LogLevel       string
	Seed           bool
}

// LoadConfig reads the environment, after loading a .env file from the working
// directory when there is one.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	return Config{
		DataDir:        getEnv("LMS_DATA_DIR", "data"),
		Store:          strings.ToLower(getEnv("LMS_STORE", StoreFile)),
		SQLiteFile:     getEnv("LMS_SQLITE_FILE", "library.db"),
		PasswordScheme: strings.ToLower(getEnv("LMS_PASSWORD_SCHEME", string(library.PlainPasswords))),
		LogLevel:       strings.ToLower(getEnv("LMS_LOG_LEVEL", "warn")),
		Seed:           getEnvBool("LMS_SEED", true),
	}
}

// Validate rejects values the rest of the program cannot act on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data directory cannot be empty")
	}
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreFile, StoreSQLite)
	}
	if _, err := library.ParsePasswordScheme(c.PasswordScheme); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SQLitePath is the database file inside the data directory.
func (c Config) SQLitePath() string { return filepath.Join(c.DataDir, c.SQLiteFile) }

// SlogLevel maps LogLevel onto slog levels.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
