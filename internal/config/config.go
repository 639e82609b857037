package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"taskcal/internal/util"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	ClientSecretFile string `yaml:"client_secret_file"`
	CalendarID       string `yaml:"calendar_id"`
	RedirectURL      string `yaml:"redirect_url"`
}

type SessionConfig struct {
	// Secret signs the session cookies. Operator supplied, never defaulted.
	Secret string `yaml:"secret"`
}

type SyncConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Google  GoogleConfig  `yaml:"google"`
	Session SessionConfig `yaml:"session"`
	Sync    SyncConfig    `yaml:"sync"`
}

// Load reads the yaml config file when it exists, applies environment
// overrides and validates required settings. A missing file is not an error;
// defaults plus environment cover local development.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{Path: "data/tasks.db"},
		Google: GoogleConfig{
			ClientSecretFile: "client_secret.json",
			CalendarID:       "primary",
			RedirectURL:      "http://localhost:8080/oauth2callback",
		},
		Sync: SyncConfig{TimeoutSeconds: 10},
	}

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	overrideFromEnv(cfg)

	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session secret must be configured (session.secret or TASKCAL_SESSION_SECRET)")
	}
	if cfg.Sync.TimeoutSeconds <= 0 {
		cfg.Sync.TimeoutSeconds = 10
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	cfg.Server.Addr = util.EnvOrDefault("TASKCAL_ADDR", cfg.Server.Addr)
	cfg.Storage.Path = util.EnvOrDefault("TASKCAL_DB_PATH", cfg.Storage.Path)
	cfg.Google.ClientSecretFile = util.EnvOrDefault("TASKCAL_CLIENT_SECRET_FILE", cfg.Google.ClientSecretFile)
	cfg.Google.CalendarID = util.EnvOrDefault("TASKCAL_CALENDAR_ID", cfg.Google.CalendarID)
	cfg.Google.RedirectURL = util.EnvOrDefault("TASKCAL_REDIRECT_URL", cfg.Google.RedirectURL)
	cfg.Session.Secret = util.EnvOrDefault("TASKCAL_SESSION_SECRET", cfg.Session.Secret)

	if v := os.Getenv("TASKCAL_SYNC_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.TimeoutSeconds = n
		}
	}
}
