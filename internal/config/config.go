package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Log struct {
		Level string
	}
	Auth struct {
		SessionSecret        string
		SessionTTLMinutes    int
		PruneIntervalMinutes int
		BcryptCost           int
		CookieName           string
		CookieSecure         bool
	}
	Session struct {
		Backend string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("LEARNBYTECH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/learnbytech.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.sessionsecret", "")
	v.SetDefault("auth.sessionttlminutes", 24*60)
	v.SetDefault("auth.pruneintervalminutes", 30)
	v.SetDefault("auth.bcryptcost", 0)
	v.SetDefault("auth.cookiename", "learnbytech_session")
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("session.backend", SessionBackendSQLite)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "course-materials")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

const (
	SessionBackendSQLite = "sqlite"
	SessionBackendMemory = "memory"
)

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if len(strings.TrimSpace(c.Auth.SessionSecret)) < 16 {
		return fmt.Errorf("auth.sessionsecret must be at least 16 characters")
	}
	if c.Auth.SessionTTLMinutes < 0 {
		return fmt.Errorf("auth.sessionttlminutes must not be negative")
	}
	if strings.TrimSpace(c.Auth.CookieName) == "" {
		return fmt.Errorf("auth.cookiename is required")
	}
	switch c.Session.Backend {
	case SessionBackendSQLite, SessionBackendMemory:
	default:
		return fmt.Errorf("session.backend must be %q or %q", SessionBackendSQLite, SessionBackendMemory)
	}
	return nil
}

// loadDotEnv reads an optional .env file. Variables already set in the
// environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring .env: %v\n", err)
	}
}
