package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TASKDESK_"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Auth       AuthConfig       `yaml:"auth"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Worker     WorkerConfig     `yaml:"worker"`
	Client     ClientConfig     `yaml:"client"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       int           `yaml:"rate_limit"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LoggingConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres" or "inmemory"
}

type AuthConfig struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	DevTokens bool          `yaml:"dev_tokens"`
}

type HolidayConfig struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

type CalendarConfig struct {
	// Source is "static", "postgres" or "google".
	Source          string          `yaml:"source"`
	Holidays        []HolidayConfig `yaml:"holidays"`
	GoogleID        string          `yaml:"google_calendar_id"`
	CredentialsFile string          `yaml:"credentials_file"`
	MaxSearchDays   int             `yaml:"max_search_days"`
	CacheTTL        time.Duration   `yaml:"cache_ttl"`
}

type WorkerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Schedule  string `yaml:"schedule"`
	BatchSize int    `yaml:"batch_size"`
}

type ClientConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       100,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			MigrateOnStart: true,
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379",
		},
		Logging: LoggingConfig{
			Development: true,
			Level:       "info",
		},
		Repository: RepositoryConfig{Type: "inmemory"},
		Auth: AuthConfig{
			Issuer:   "taskdesk",
			TokenTTL: 24 * time.Hour,
		},
		Calendar: CalendarConfig{
			Source:        "static",
			MaxSearchDays: 365,
			CacheTTL:      12 * time.Hour,
		},
		Worker: WorkerConfig{
			Schedule:  "0 7 * * *",
			BatchSize: 100,
		},
		Client: ClientConfig{
			BaseURL:    "http://localhost:8080",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
	}
}

// Load reads path over the defaults, then .env and TASKDESK_* variables on top.
// A missing file is fine; a malformed one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open %s: %w", path, err)
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load(".env")
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getString("SERVER_PORT", c.Server.Port)
	c.Server.Host = getString("SERVER_HOST", c.Server.Host)
	c.Server.RateLimit = getInt("SERVER_RATE_LIMIT", c.Server.RateLimit)
	c.Database.URL = getString("DATABASE_URL", c.Database.URL)
	c.Database.MigrateOnStart = getBool("DATABASE_MIGRATE", c.Database.MigrateOnStart)
	c.Redis.Enabled = getBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.URL = getString("REDIS_URL", c.Redis.URL)
	c.Redis.Password = getString("REDIS_PASSWORD", c.Redis.Password)
	c.Logging.Development = getBool("LOG_DEVELOPMENT", c.Logging.Development)
	c.Logging.Level = getString("LOG_LEVEL", c.Logging.Level)
	c.Repository.Type = getString("REPOSITORY_TYPE", c.Repository.Type)
	c.Auth.Secret = getString("AUTH_SECRET", c.Auth.Secret)
	c.Auth.DevTokens = getBool("AUTH_DEV_TOKENS", c.Auth.DevTokens)
	c.Calendar.Source = getString("CALENDAR_SOURCE", c.Calendar.Source)
	c.Calendar.GoogleID = getString("CALENDAR_GOOGLE_ID", c.Calendar.GoogleID)
	c.Calendar.CredentialsFile = getString("CALENDAR_CREDENTIALS_FILE", c.Calendar.CredentialsFile)
	c.Worker.Enabled = getBool("WORKER_ENABLED", c.Worker.Enabled)
	c.Worker.Schedule = getString("WORKER_SCHEDULE", c.Worker.Schedule)
	c.Client.BaseURL = getString("API_URL", c.Client.BaseURL)
	c.Client.Token = getString("TOKEN", c.Client.Token)
	c.Client.Timeout = getDuration("CLIENT_TIMEOUT", c.Client.Timeout)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Repository.Type {
	case "inmemory":
	case "postgres":
		if c.Database.URL == "" {
			result = multierror.Append(result, errors.New("database.url is required for the postgres repository"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("repository.type %q is unknown", c.Repository.Type))
	}

	switch c.Calendar.Source {
	case "static":
	case "postgres":
		if c.Repository.Type != "postgres" {
			result = multierror.Append(result, errors.New("calendar.source postgres needs repository.type postgres"))
		}
	case "google":
		if c.Calendar.GoogleID == "" {
			result = multierror.Append(result, errors.New("calendar.google_calendar_id is required for the google source"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("calendar.source %q is unknown", c.Calendar.Source))
	}

	if c.Calendar.MaxSearchDays <= 0 {
		result = multierror.Append(result, errors.New("calendar.max_search_days must be positive"))
	}
	if c.Server.RateLimit <= 0 {
		result = multierror.Append(result, errors.New("server.rate_limit must be positive"))
	}

	return result.ErrorOrNil()
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func getString(key, fallback string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
