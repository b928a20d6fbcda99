// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Pricing PricingConfig `yaml:"pricing"`
	Tracing TracingConfig `yaml:"tracing"`
	Log     LogConfig     `yaml:"log"`
	Gateway GatewayConfig `yaml:"gateway"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	// Driver is "mongo" or "memory".
	Driver   string `yaml:"driver"`
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	OrderEventsTopic   string   `yaml:"order_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	PaymentsTopic      string   `yaml:"payments_topic"`
}

// PricingConfig holds major-unit decimals as written by humans ("150", "5").
type PricingConfig struct {
	FreeShippingThreshold string `yaml:"free_shipping_threshold"`
	StandardShippingRate  string `yaml:"standard_shipping_rate"`
	TaxRatePercent        string `yaml:"tax_rate_percent"`
	Currency              string `yaml:"currency"`
}

type TracingConfig struct {
	Enabled        bool   `yaml:"enabled"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type GatewayConfig struct {
	CartServiceURL   string `yaml:"cart_service_url"`
	OrdersServiceURL string `yaml:"orders_service_url"`
	AdminToken       string `yaml:"admin_token"`
}

// Defaults returns the settings used when neither file nor environment say otherwise.
func Defaults(port string) Config {
	return Config{
		HTTP: HTTPConfig{
			Port:            port,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:   "mongo",
			MongoURI: "mongodb://localhost:27017",
			Database: "storefront",
		},
		Redis: RedisConfig{Addr: "localhost:6379", CacheTTL: 15 * time.Minute},
		Kafka: KafkaConfig{
			Brokers:            []string{"localhost:9092"},
			OrderEventsTopic:   "order-events",
			NotificationsTopic: "notifications",
			PaymentsTopic:      "payment-confirmed",
		},
		Pricing: PricingConfig{
			FreeShippingThreshold: "150",
			StandardShippingRate:  "10",
			TaxRatePercent:        "5",
			Currency:              "USD",
		},
		Tracing: TracingConfig{JaegerEndpoint: "http://localhost:14268/api/traces"},
		Log:     LogConfig{Level: "info"},
		Gateway: GatewayConfig{
			CartServiceURL:   "http://localhost:8081",
			OrdersServiceURL: "http://localhost:8082",
		},
	}
}

// Load reads CONFIG_FILE (if set) over the defaults, then applies environment overrides.
func Load(defaultPort string) (Config, error) {
	cfg := Defaults(defaultPort)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if _, err := cfg.Pricing.Build(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Port = getEnv("HTTP_PORT", cfg.HTTP.Port)
	cfg.HTTP.RequestTimeout = getDuration("REQUEST_TIMEOUT", cfg.HTTP.RequestTimeout)
	cfg.HTTP.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.MongoURI = getEnv("MONGO_URI", cfg.Store.MongoURI)
	cfg.Store.Database = getEnv("MONGO_DB_NAME", cfg.Store.Database)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.CacheTTL = getDuration("CART_CACHE_TTL", cfg.Redis.CacheTTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Kafka.OrderEventsTopic = getEnv("KAFKA_ORDER_EVENTS_TOPIC", cfg.Kafka.OrderEventsTopic)
	cfg.Kafka.NotificationsTopic = getEnv("KAFKA_NOTIFICATIONS_TOPIC", cfg.Kafka.NotificationsTopic)
	cfg.Kafka.PaymentsTopic = getEnv("KAFKA_PAYMENTS_TOPIC", cfg.Kafka.PaymentsTopic)

	cfg.Pricing.FreeShippingThreshold = getEnv("FREE_SHIPPING_THRESHOLD", cfg.Pricing.FreeShippingThreshold)
	cfg.Pricing.StandardShippingRate = getEnv("STANDARD_SHIPPING_RATE", cfg.Pricing.StandardShippingRate)
	cfg.Pricing.TaxRatePercent = getEnv("TAX_RATE_PERCENT", cfg.Pricing.TaxRatePercent)
	cfg.Pricing.Currency = getEnv("CURRENCY", cfg.Pricing.Currency)

	cfg.Tracing.Enabled = getBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", cfg.Tracing.JaegerEndpoint)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.Gateway.CartServiceURL = getEnv("CART_SERVICE_URL", cfg.Gateway.CartServiceURL)
	cfg.Gateway.OrdersServiceURL = getEnv("ORDERS_SERVICE_URL", cfg.Gateway.OrdersServiceURL)
	cfg.Gateway.AdminToken = getEnv("ADMIN_TOKEN", cfg.Gateway.AdminToken)
}

var ErrInvalidPricing = errors.New("invalid pricing settings")

// Build converts the decimal settings into a validated pricing.Config.
func (p PricingConfig) Build() (pricing.Config, error) {
	threshold, err := money.ParseCents(p.FreeShippingThreshold)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("%w: free_shipping_threshold: %w", ErrInvalidPricing, err)
	}
	rate, err := money.ParseCents(p.StandardShippingRate)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("%w: standard_shipping_rate: %w", ErrInvalidPricing, err)
	}
	tax, err := decimal.NewFromString(strings.TrimSpace(p.TaxRatePercent))
	if err != nil {
		return pricing.Config{}, fmt.Errorf("%w: tax_rate_percent: %w", ErrInvalidPricing, err)
	}
	unit, err := money.ParseCurrency(p.Currency)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("%w: %w", ErrInvalidPricing, err)
	}

	cfg := pricing.Config{
		FreeShippingThreshold: threshold,
		StandardShippingRate:  rate,
		TaxRatePercent:        tax,
		Currency:              unit,
	}
	if err := cfg.Validate(); err != nil {
		return pricing.Config{}, fmt.Errorf("%w: %w", ErrInvalidPricing, err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
