package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override config file values.
const (
	EnvBaseURL     = "SETLIST_API_BASE_URL"
	EnvLoginURL    = "SETLIST_API_LOGIN_URL"
	EnvMaxRetries  = "SETLIST_API_MAX_RETRIES"
	EnvStorage     = "SETLIST_SESSION_STORAGE"
	EnvSessionDir  = "SETLIST_SESSION_DIR"
	EnvDatabase    = "SETLIST_DATABASE_PATH"
	EnvRedisAddr   = "SETLIST_REDIS_ADDR"
	EnvRedisPass   = "SETLIST_REDIS_PASSWORD"
	EnvLogLevel    = "SETLIST_LOG_LEVEL"
	EnvServerPort  = "SETLIST_SERVER_PORT"
	defaultEnvFile = ".env"
)

// LoadEnv loads variables from the given dotenv files (".env" when none are given)
// without overriding variables already present in the process environment.
//
// Missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{defaultEnvFile}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays SETLIST_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	setString(EnvBaseURL, &c.API.BaseURL)
	setString(EnvLoginURL, &c.API.LoginURL)
	setString(EnvStorage, &c.Session.Storage)
	setString(EnvSessionDir, &c.Session.Dir)
	setString(EnvDatabase, &c.Database.Path)
	setString(EnvRedisAddr, &c.Redis.Addr)
	setString(EnvRedisPass, &c.Redis.Password)
	setString(EnvLogLevel, &c.Log.Level)

	if err := setInt(EnvMaxRetries, &c.API.MaxRetries); err != nil {
		return err
	}
	return setInt(EnvServerPort, &c.Server.Port)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	*dst = n
	return nil
}
