package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration. Values come from
// environment variables (prefix IDME) with struct-tag defaults; an optional
// YAML file overrides whatever it sets.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Sheets   SheetsConfig   `yaml:"sheets" envconfig:"SHEETS"`
	License  LicenseConfig  `yaml:"license" envconfig:"LICENSE"`
	Mail     MailConfig     `yaml:"mail" envconfig:"MAIL"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// AllowedOrigins lists web origins allowed by CORS in addition to
	// browser extension origins, which are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// SheetsConfig locates the license spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	SheetName       string `yaml:"sheet_name" envconfig:"SHEET_NAME" default:"ACTIVE_LICENSES"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE" default:"credentials.json"`
}

// LicenseConfig carries the issuance and validation policy.
type LicenseConfig struct {
	DurationDays int    `yaml:"duration_days" envconfig:"DURATION_DAYS" default:"30"`
	ReminderDays int    `yaml:"reminder_days" envconfig:"REMINDER_DAYS" default:"3"`
	PriceRM      int    `yaml:"price_rm" envconfig:"PRICE_RM" default:"10"`
	AdminEmail   string `yaml:"admin_email" envconfig:"ADMIN_EMAIL"`
	SupportURL   string `yaml:"support_url" envconfig:"SUPPORT_URL"`
}

// MailConfig configures the SMTP mailer. Disabled by default so local runs
// never try to deliver mail.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT" default:"587"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	From     string `yaml:"from" envconfig:"FROM"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// AdminKeyHash is the bcrypt hash of the admin API key. Admin routes are
	// disabled when empty.
	AdminKeyHash string          `yaml:"admin_key_hash" envconfig:"ADMIN_KEY_HASH"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// Load loads configuration from environment variables and the optional
// config file named by IDME_CONFIG_FILE (default config.yaml).
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("IDME", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := os.Getenv("IDME_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays YAML file values onto cfg. Fields absent from the
// file keep their env/default values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required")
	}
	if c.License.DurationDays < 1 {
		return fmt.Errorf("license.duration_days must be positive, got %d", c.License.DurationDays)
	}
	if c.License.ReminderDays < 0 {
		return fmt.Errorf("license.reminder_days must not be negative, got %d", c.License.ReminderDays)
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" || c.Mail.From == "" {
			return fmt.Errorf("mail.host and mail.from are required when mail is enabled")
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
