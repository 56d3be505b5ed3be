package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the POS system
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Server   ServerConfig   `yaml:"server"`
	POS      POSConfig      `yaml:"pos"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Temporal TemporalConfig `yaml:"temporal"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig configures the RPC HTTP server
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Store selects the backend store: "postgres" or "memory".
	Store string `yaml:"store"`
}

// POSConfig holds pricing and approval policy
type POSConfig struct {
	TaxRate                        float64 `yaml:"tax_rate"`
	ServiceChargeRate              float64 `yaml:"service_charge_rate"`
	ApprovalThresholdPct           float64 `yaml:"approval_threshold_pct"`
	ManualDiscountRequiresApproval bool    `yaml:"manual_discount_requires_approval"`
	PINMinLength                   int     `yaml:"pin_min_length"`
	MinSplitParts                  int     `yaml:"min_split_parts"`
	MaxSplitParts                  int     `yaml:"max_split_parts"`
}

// CheckoutConfig configures the client-side submission path
type CheckoutConfig struct {
	Strategy            string        `yaml:"strategy"`
	Compensate          bool          `yaml:"compensate"`
	APIURL              string        `yaml:"api_url"`
	TerminalID          string        `yaml:"terminal_id"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	CompensationTimeout time.Duration `yaml:"compensation_timeout"`
}

// TemporalConfig configures the durable checkout workflow
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// TelegramConfig configures the staff notification sink
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

const (
	StrategySaga     = "saga"
	StrategyAtomic   = "atomic"
	StrategyWorkflow = "workflow"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "pos", Database: "restaurant"},
		RabbitMQ: RabbitMQConfig{Port: 5672, User: "guest", Password: "guest"},
		Server:   ServerConfig{Port: 3000, RequestTimeout: 30 * time.Second, Store: StorePostgres},
		POS: POSConfig{
			TaxRate:                        0.10,
			ServiceChargeRate:              0.05,
			ApprovalThresholdPct:           10,
			ManualDiscountRequiresApproval: true,
			PINMinLength:                   4,
			MinSplitParts:                  2,
			MaxSplitParts:                  10,
		},
		Checkout: CheckoutConfig{
			Strategy:            StrategySaga,
			Compensate:          true,
			APIURL:              "http://localhost:3000",
			TerminalID:          "terminal-1",
			PollInterval:        5 * time.Second,
			CompensationTimeout: 15 * time.Second,
		},
		Temporal: TemporalConfig{HostPort: "localhost:7233", Namespace: "default", TaskQueue: "pos-checkout"},
	}
}

// Load reads configuration from a YAML file, then applies .env and environment overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() error {
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&c.RabbitMQ.User, "RABBITMQ_USER")
	setString(&c.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&c.Server.Store, "POS_STORE")
	setString(&c.Checkout.APIURL, "POS_API_URL")
	setString(&c.Checkout.Strategy, "CHECKOUT_STRATEGY")
	setString(&c.Checkout.TerminalID, "TERMINAL_ID")
	setString(&c.Temporal.HostPort, "TEMPORAL_HOST")
	setString(&c.Telegram.Token, "TELEGRAM_TOKEN")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Database.Port, "DB_PORT"},
		{&c.RabbitMQ.Port, "RABBITMQ_PORT"},
		{&c.Server.Port, "POS_PORT"},
	}
	for _, v := range ints {
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", v.key, err)
		}
		*v.dst = n
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID value: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks policy values that would make pricing or approval meaningless
func (c *Config) Validate() error {
	if c.POS.TaxRate < 0 || c.POS.TaxRate > 1 {
		return fmt.Errorf("pos.tax_rate must be between 0 and 1")
	}
	if c.POS.ServiceChargeRate < 0 || c.POS.ServiceChargeRate > 1 {
		return fmt.Errorf("pos.service_charge_rate must be between 0 and 1")
	}
	if c.POS.ApprovalThresholdPct < 0 || c.POS.ApprovalThresholdPct > 100 {
		return fmt.Errorf("pos.approval_threshold_pct must be between 0 and 100")
	}
	if c.POS.PINMinLength < 1 {
		return fmt.Errorf("pos.pin_min_length must be positive")
	}
	if c.POS.MinSplitParts < 2 || c.POS.MaxSplitParts < c.POS.MinSplitParts {
		return fmt.Errorf("pos split bounds invalid: min %d, max %d", c.POS.MinSplitParts, c.POS.MaxSplitParts)
	}
	switch c.Checkout.Strategy {
	case StrategySaga, StrategyAtomic, StrategyWorkflow:
	default:
		return fmt.Errorf("checkout.strategy must be one of: saga, atomic, workflow")
	}
	switch c.Server.Store {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("server.store must be one of: memory, postgres")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// MessagingEnabled reports whether a broker host was configured
func (c *Config) MessagingEnabled() bool {
	return c.RabbitMQ.Host != ""
}
