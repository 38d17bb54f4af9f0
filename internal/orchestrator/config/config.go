package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "ORCHESTRATOR"

type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	Env         string        `mapstructure:"env"`
	HTTPAddr    string        `mapstructure:"http_addr"`
	GRPCAddr    string        `mapstructure:"grpc_addr"`
	Catalog     Endpoint      `mapstructure:"catalog"`
	Orders      Endpoint      `mapstructure:"orders"`
	Payments    Endpoint      `mapstructure:"payments"`
	Shipping    Endpoint      `mapstructure:"shipping"`
	Downstream  Downstream    `mapstructure:"downstream"`
	Pricing     Pricing       `mapstructure:"pricing"`
	SagaLog     SagaLog       `mapstructure:"saga_log"`
	Idempotency Idempotency   `mapstructure:"idempotency"`
	Redis       Redis         `mapstructure:"redis"`
	Events      Events        `mapstructure:"events"`
	AWS         AWS           `mapstructure:"aws"`
	OTel        OTel          `mapstructure:"otel"`
	Shutdown    time.Duration `mapstructure:"shutdown_timeout"`
}

type Endpoint struct {
	URL string `mapstructure:"url"`
}

type Downstream struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

type Pricing struct {
	Concurrency int `mapstructure:"concurrency"`
}

// SagaLog selects where saga transitions are persisted. Driver is one of
// sqlite, postgres or none.
type SagaLog struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type Idempotency struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type Redis struct {
	Addr string `mapstructure:"addr"`
}

type Events struct {
	SNSTopicArn string `mapstructure:"sns_topic_arn"`
	SNSEndpoint string `mapstructure:"sns_endpoint"`
}

type AWS struct {
	Region string `mapstructure:"region"`
}

type OTel struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load reads <ENVIRONMENT>.json from configDir when it exists, then applies
// ORCHESTRATOR_* environment overrides, e.g. ORCHESTRATOR_CATALOG_URL.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName())
	v.SetConfigType("json")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configName() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "local"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "orchestrator")
	v.SetDefault("env", "local")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("catalog.url", "http://localhost:8081")
	v.SetDefault("orders.url", "http://localhost:8081")
	v.SetDefault("payments.url", "http://localhost:8081")
	v.SetDefault("shipping.url", "http://localhost:8081")

	v.SetDefault("downstream.timeout", 10*time.Second)
	v.SetDefault("downstream.max_attempts", 1)
	v.SetDefault("downstream.backoff", 100*time.Millisecond)

	v.SetDefault("pricing.concurrency", 1)

	v.SetDefault("saga_log.driver", "sqlite")
	v.SetDefault("saga_log.path", "saga_log.db")
	v.SetDefault("saga_log.dsn", "")

	v.SetDefault("idempotency.enabled", false)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("events.sns_topic_arn", "")
	v.SetDefault("events.sns_endpoint", "")
	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
}

func (c *Config) Validate() error {
	var problems []string
	for name, ep := range map[string]Endpoint{
		"catalog.url":  c.Catalog,
		"orders.url":   c.Orders,
		"payments.url": c.Payments,
		"shipping.url": c.Shipping,
	} {
		if strings.TrimSpace(ep.URL) == "" {
			problems = append(problems, name+" is required")
		}
	}
	switch c.SagaLog.Driver {
	case "sqlite":
		if c.SagaLog.Path == "" {
			problems = append(problems, "saga_log.path is required for sqlite")
		}
	case "postgres":
		if c.SagaLog.DSN == "" {
			problems = append(problems, "saga_log.dsn is required for postgres")
		}
	case "none":
	default:
		problems = append(problems, fmt.Sprintf("saga_log.driver %q must be sqlite, postgres or none", c.SagaLog.Driver))
	}
	if c.Downstream.Timeout <= 0 {
		problems = append(problems, "downstream.timeout must be positive")
	}
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		problems = append(problems, "idempotency.ttl must be positive")
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
