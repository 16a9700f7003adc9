package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CounterDriverSQLite   = "sqlite3"
	CounterDriverPostgres = "pgx"
	CounterDriverDynamoDB = "dynamodb"
)

type Config struct {
	Server struct {
		Port          int           `yaml:"port"`
		SessionTTL    time.Duration `yaml:"session_ttl"`
		SecureCookies bool          `yaml:"secure_cookies"`
		MaxUploadMB   int64         `yaml:"max_upload_mb"`
	} `yaml:"server"`
	Remote struct {
		BaseURL     string        `yaml:"base_url"`
		ProcessPath string        `yaml:"process_path"`
		ImportPath  string        `yaml:"import_path"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"remote"`
	Counter struct {
		Driver      string `yaml:"driver"`
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		DynamoDB    struct {
			Region string `yaml:"region"`
			Table  string `yaml:"table"`
			Key    string `yaml:"key"`
		} `yaml:"dynamodb"`
	} `yaml:"counter"`
	Cache struct {
		URL string `yaml:"url"`
	} `yaml:"cache"`
	Feedback struct {
		Endpoint   string        `yaml:"endpoint"`
		ServiceID  string        `yaml:"service_id"`
		TemplateID string        `yaml:"template_id"`
		PublicKey  string        `yaml:"public_key"`
		PrivateKey string        `yaml:"private_key"`
		ClearAfter time.Duration `yaml:"clear_after"`
		PerMinute  int           `yaml:"per_minute"`
	} `yaml:"feedback"`
	Downloads struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"downloads"`
}

// LoadDotEnv loads KEY=VALUE pairs into the environment. Missing files are
// skipped; values already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads the YAML file at path (skipped when path is empty), then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("ANKIX_REMOTE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Counter.DSN = v
		if c.Counter.Driver == "" && isPostgresURL(v) {
			c.Counter.Driver = CounterDriverPostgres
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.URL = v
	}
	if v := os.Getenv("EMAILJS_SERVICE_ID"); v != "" {
		c.Feedback.ServiceID = v
	}
	if v := os.Getenv("EMAILJS_TEMPLATE_ID"); v != "" {
		c.Feedback.TemplateID = v
	}
	if v := os.Getenv("EMAILJS_PUBLIC_KEY"); v != "" {
		c.Feedback.PublicKey = v
	}
	if v := os.Getenv("EMAILJS_PRIVATE_KEY"); v != "" {
		c.Feedback.PrivateKey = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = time.Hour
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 32
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = "https://ankix.pythonanywhere.com"
	}
	if c.Counter.Driver == "" {
		c.Counter.Driver = CounterDriverSQLite
	}
	if c.Counter.Driver == CounterDriverSQLite && c.Counter.DSN == "" {
		c.Counter.DSN = "ankix.db"
		c.Counter.AutoMigrate = true
	}
	if c.Counter.DynamoDB.Region == "" {
		c.Counter.DynamoDB.Region = "us-east-1"
	}
	if c.Counter.DynamoDB.Table == "" {
		c.Counter.DynamoDB.Table = "ankix"
	}
	if c.Feedback.ServiceID == "" {
		c.Feedback.ServiceID = "service_tisfysq"
	}
	if c.Feedback.TemplateID == "" {
		c.Feedback.TemplateID = "template_igfu9n9"
	}
	if c.Feedback.ClearAfter == 0 {
		c.Feedback.ClearAfter = 3 * time.Second
	}
	if c.Feedback.PerMinute == 0 {
		c.Feedback.PerMinute = 5
	}
	if c.Downloads.TTL == 0 {
		c.Downloads.TTL = time.Hour
	}
}

func (c *Config) Validate() error {
	switch c.Counter.Driver {
	case CounterDriverSQLite, CounterDriverPostgres, CounterDriverDynamoDB:
	default:
		return fmt.Errorf("unknown counter driver %q", c.Counter.Driver)
	}
	if c.Counter.Driver == CounterDriverPostgres && c.Counter.DSN == "" {
		return fmt.Errorf("counter driver %s needs a dsn or DATABASE_URL", c.Counter.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Feedback.PerMinute < 0 {
		return fmt.Errorf("feedback per_minute must not be negative")
	}
	return nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
