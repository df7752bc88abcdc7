package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"alpha-radar/src/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides for secrets that should not live in the YAML file.
const (
	EnvDatabaseDSN = "ALPHARADAR_DB_DSN"
	EnvRedisAddr   = "ALPHARADAR_REDIS_ADDR"
	EnvJWTSecret   = "ALPHARADAR_JWT_SECRET"
)

var (
	validate    = validator.New()
	micPattern  = regexp.MustCompile(`^x[a-z]{3}$`)
	dbTypeNeeds = map[string]string{"postgres": "db_connection_string", "sqlite": "db_path"}
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a Config from a YAML file, a sibling .env file and the environment
func NewConfig(configPath string) (*Config, error) {
	// 1. Optional .env next to the working directory
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// Fill zero values from `default` tags
	if err := defaults.Set(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs struct-tag validation plus cross-field checks
func (c *Config) Validate() error {
	if err := validate.Struct(c.MConfig); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed '%s' check (value: %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	// Storage requirements by type
	if field, ok := dbTypeNeeds[c.Storage.DBType]; ok {
		if field == "db_path" && c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
		if field == "db_connection_string" && c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres (set %s)", EnvDatabaseDSN)
		}
	}

	// Schedule needs a known market identifier code
	if c.Schedule.Enabled && !micPattern.MatchString(strings.ToLower(c.Schedule.Market)) {
		return fmt.Errorf("schedule market must be a MIC code like 'xshg', got '%s'", c.Schedule.Market)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Default returns a validated configuration built only from defaults
func Default(name string) *Config {
	cfg, err := Parse([]byte(fmt.Sprintf("name: %q\n", name)))
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}
