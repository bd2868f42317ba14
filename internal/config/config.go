package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRemoteURL    = "https://jsonplaceholder.typicode.com"
	DefaultCollection   = "posts"
	DefaultPullLimit    = 12
	DefaultSyncInterval = 30 * time.Second
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultDaemonAddr   = "127.0.0.1:7272"
)

// Duration decodes from YAML strings such as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the application configuration
type Config struct {
	DBPath       string   `yaml:"db_path"`
	RemoteURL    string   `yaml:"remote_url"`
	Collection   string   `yaml:"collection"`
	UserID       int      `yaml:"user_id"`
	PullLimit    int      `yaml:"pull_limit"`
	SyncInterval Duration `yaml:"sync_interval"`
	HTTPTimeout  Duration `yaml:"http_timeout"`
	SeedDefaults bool     `yaml:"seed_defaults"`
	LogLevel     string   `yaml:"log_level"`
	LogFile      string   `yaml:"log_file"`
	Output       string   `yaml:"output"`
	DaemonAddr   string   `yaml:"daemon_addr"`
	DaemonToken  string   `yaml:"daemon_token"`
	WebhookURLs  []string `yaml:"webhook_urls"`
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	return &Config{
		RemoteURL:    DefaultRemoteURL,
		Collection:   DefaultCollection,
		UserID:       1,
		PullLimit:    DefaultPullLimit,
		SyncInterval: Duration(DefaultSyncInterval),
		HTTPTimeout:  Duration(DefaultHTTPTimeout),
		SeedDefaults: true,
		LogLevel:     "info",
		Output:       "table",
		DaemonAddr:   DefaultDaemonAddr,
	}
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/quotesync/config.yaml (YAML)
// 4. Defaults
func Load() (*Config, error) {
	cfg := Defaults()

	// godotenv.Load never overrides variables already set.
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		if _, err := os.Stat(".quotesync/quotesync.db"); err == nil {
			cfg.DBPath = ".quotesync/quotesync.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "quotesync", "quotesync.db")
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if dbPath := getEnvOrFile("QUOTESYNC_DB_PATH", "QUOTESYNC_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if v := os.Getenv("QUOTESYNC_REMOTE_URL"); v != "" {
		cfg.RemoteURL = v
	}
	if v := os.Getenv("QUOTESYNC_COLLECTION"); v != "" {
		cfg.Collection = v
	}
	if v := os.Getenv("QUOTESYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QUOTESYNC_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("QUOTESYNC_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("QUOTESYNC_DAEMON_ADDR"); v != "" {
		cfg.DaemonAddr = v
	}
	if v := getEnvOrFile("QUOTESYNC_DAEMON_TOKEN", "QUOTESYNC_DAEMON_TOKEN_FILE"); v != "" {
		cfg.DaemonToken = v
	}
	if v := os.Getenv("QUOTESYNC_WEBHOOK_URLS"); v != "" {
		cfg.WebhookURLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.WebhookURLs = append(cfg.WebhookURLs, u)
			}
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"QUOTESYNC_USER_ID", &cfg.UserID},
		{"QUOTESYNC_PULL_LIMIT", &cfg.PullLimit},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", e.name, v, err)
			}
			*e.dst = n
		}
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{"QUOTESYNC_SYNC_INTERVAL", &cfg.SyncInterval},
		{"QUOTESYNC_HTTP_TIMEOUT", &cfg.HTTPTimeout},
	}
	for _, e := range durations {
		if v := os.Getenv(e.name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", e.name, v, err)
			}
			*e.dst = Duration(d)
		}
	}

	if v := os.Getenv("QUOTESYNC_SEED_DEFAULTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid QUOTESYNC_SEED_DEFAULTS %q: %w", v, err)
		}
		cfg.SeedDefaults = b
	}
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.RemoteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote_url must be an http(s) URL, got %q", c.RemoteURL)
	}
	if strings.Trim(c.Collection, "/") == "" {
		return fmt.Errorf("collection must not be empty")
	}
	if c.PullLimit <= 0 {
		return fmt.Errorf("pull_limit must be positive, got %d", c.PullLimit)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive, got %s", time.Duration(c.SyncInterval))
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", time.Duration(c.HTTPTimeout))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// Interval returns the sync interval as a time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.SyncInterval)
}

// Timeout returns the HTTP timeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout)
}

// loadYAMLConfig loads configuration from ~/.config/quotesync/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return loadYAMLFile(filepath.Join(homeDir, ".config", "quotesync", "config.yaml"), cfg)
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)
	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		if dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
