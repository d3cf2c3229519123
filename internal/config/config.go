package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application configuration values.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Services ServicesConfig `mapstructure:"services"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig governs the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug|release|test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the transaction ledger backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory|postgres|sqlite3
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig points at the shared risk counter. An empty Addr keeps
// counters in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServicesConfig locates the collaborating services.
type ServicesConfig struct {
	AccountURL      string        `mapstructure:"account_url"`
	AuditURL        string        `mapstructure:"audit_url"`
	AuthURL         string        `mapstructure:"auth_url"`
	MutationTimeout time.Duration `mapstructure:"mutation_timeout"`
	AuditTimeout    time.Duration `mapstructure:"audit_timeout"`
	AuthTimeout     time.Duration `mapstructure:"auth_timeout"`
}

type AuditConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// KafkaConfig enables the lifecycle event mirror when Brokers is set.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json|console
}

const envPrefix = "TXN"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3003)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("services.account_url", "http://account-service:3002/api")
	v.SetDefault("services.audit_url", "http://audit-service:3005/api")
	v.SetDefault("services.auth_url", "http://auth-service:3001/api")
	v.SetDefault("services.mutation_timeout", 10*time.Second)
	v.SetDefault("services.audit_timeout", 5*time.Second)
	v.SetDefault("services.auth_timeout", 5*time.Second)

	v.SetDefault("audit.workers", 4)
	v.SetDefault("audit.queue_size", 256)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "transaction-events")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads configuration from defaults, an optional config file and the
// environment (TXN_SERVER_PORT, TXN_STORE_DRIVER, ...), in increasing
// precedence. A .env file in the working directory is loaded first when
// present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	switch c.Store.Driver {
	case "memory":
	case "postgres", "sqlite3":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver %q", c.Store.Driver))
	}

	if c.Services.AccountURL == "" {
		errs = append(errs, errors.New("services.account_url is required"))
	}
	if c.Services.AuditURL == "" {
		errs = append(errs, errors.New("services.audit_url is required"))
	}
	if c.Services.AuthURL == "" {
		errs = append(errs, errors.New("services.auth_url is required"))
	}
	if c.Services.MutationTimeout <= 0 || c.Services.AuditTimeout <= 0 || c.Services.AuthTimeout <= 0 {
		errs = append(errs, errors.New("service timeouts must be positive"))
	}

	if c.Audit.Workers <= 0 || c.Audit.QueueSize <= 0 {
		errs = append(errs, errors.New("audit.workers and audit.queue_size must be positive"))
	}

	return errors.Join(errs...)
}

// splitList accepts both YAML lists and a single comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
