package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Ops       OpsConfig       `yaml:"ops"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings (with seconds field)
type SchedulerConfig struct {
	ExpireStaleNegotiations string `yaml:"expire_stale_negotiations"`
	FlagOverdueFinancing    string `yaml:"flag_overdue_financing"`
}

// WorkflowConfig contains business timing rules
type WorkflowConfig struct {
	NegotiationWindowHours int `yaml:"negotiation_window_hours"`
}

// OpsConfig contains the operations HTTP listener. Port 0 disables it.
type OpsConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded into the environment first so its values
// take part in the environment overrides.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a validated configuration from YAML bytes and the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Ops
	if val := os.Getenv("OPS_HOST"); val != "" {
		c.Ops.Host = val
	}
	if val := os.Getenv("OPS_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Ops.Port)
	}

	// Workflow
	if val := os.Getenv("NEGOTIATION_WINDOW_HOURS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Workflow.NegotiationWindowHours)
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// Ops validation
	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("invalid ops port: %d", c.Ops.Port)
	}

	// Workflow defaults
	if c.Workflow.NegotiationWindowHours < 0 {
		return fmt.Errorf("negotiation window cannot be negative: %d", c.Workflow.NegotiationWindowHours)
	}
	if c.Workflow.NegotiationWindowHours == 0 {
		c.Workflow.NegotiationWindowHours = 48
	}

	// Scheduler defaults
	if c.Scheduler.ExpireStaleNegotiations == "" {
		c.Scheduler.ExpireStaleNegotiations = "0 0 * * * *" // Hourly, on the hour
	}
	if c.Scheduler.FlagOverdueFinancing == "" {
		c.Scheduler.FlagOverdueFinancing = "0 0 * * * *" // Hourly, on the hour
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetOpsAddress returns the ops HTTP listen address
func (c *Config) GetOpsAddress() string {
	return fmt.Sprintf("%s:%d", c.Ops.Host, c.Ops.Port)
}

// NegotiationWindow returns how long a negotiation request stays open
func (c *Config) NegotiationWindow() time.Duration {
	return time.Duration(c.Workflow.NegotiationWindowHours) * time.Hour
}
