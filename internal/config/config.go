// Package config loads storefront settings from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Flow     FlowConfig     `mapstructure:"flow"`
	Email    EmailConfig    `mapstructure:"email"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	WebhookTimeout  time.Duration `mapstructure:"webhook_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	AdminToken      string        `mapstructure:"admin_token"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type CatalogConfig struct {
	DBPath         string `mapstructure:"db_path"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CartTTL  time.Duration `mapstructure:"cart_ttl"`
}

type StripeConfig struct {
	SecretKey      string        `mapstructure:"secret_key"`
	PublishableKey string        `mapstructure:"publishable_key"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	APIURL         string        `mapstructure:"api_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type CheckoutConfig struct {
	Currency            string        `mapstructure:"currency"`
	AllowedCountries    []string      `mapstructure:"allowed_countries"`
	AutomaticTax        bool          `mapstructure:"automatic_tax"`
	AllowPromotionCodes bool          `mapstructure:"allow_promotion_codes"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
}

type FlowConfig struct {
	ShowProgressIndicator bool `mapstructure:"show_progress_indicator"`
	CollectPhone          bool `mapstructure:"collect_phone"`
}

type EmailConfig struct {
	SendGridAPIKey string        `mapstructure:"sendgrid_api_key"`
	From           string        `mapstructure:"from"`
	FromName       string        `mapstructure:"from_name"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	SweepCarts bool     `mapstructure:"sweep_carts"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables the deployment
// already uses.
var envBindings = map[string]string{
	"service.version": "SERVICE_VERSION",

	"http.port":             "HTTP_PORT",
	"http.base_url":         "BASE_URL",
	"http.request_timeout":  "REQUEST_TIMEOUT",
	"http.webhook_timeout":  "WEBHOOK_TIMEOUT",
	"http.shutdown_timeout": "SHUTDOWN_TIMEOUT",
	"http.secure_cookies":   "SECURE_COOKIES",
	"http.admin_token":      "ADMIN_TOKEN",
	"grpc.port":             "GRPC_PORT",

	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.name":            "DB_NAME",
	"database.ssl_mode":        "DB_SSLMODE",
	"database.migrations_path": "DB_MIGRATIONS_PATH",

	"catalog.db_path":         "CATALOG_DB_PATH",
	"catalog.migrations_path": "CATALOG_MIGRATIONS_PATH",

	"redis.addr":     "REDIS_ADDR",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",
	"redis.cart_ttl": "CART_TTL",

	"stripe.secret_key":      "STRIPE_SECRET_KEY",
	"stripe.publishable_key": "STRIPE_PUBLISHABLE_KEY",
	"stripe.webhook_secret":  "STRIPE_WEBHOOK_SECRET",
	"stripe.api_url":         "STRIPE_API_URL",
	"stripe.timeout":         "STRIPE_TIMEOUT",

	"checkout.currency":              "CHECKOUT_CURRENCY",
	"checkout.allowed_countries":     "CHECKOUT_ALLOWED_COUNTRIES",
	"checkout.automatic_tax":         "CHECKOUT_AUTOMATIC_TAX",
	"checkout.allow_promotion_codes": "CHECKOUT_ALLOW_PROMOTION_CODES",
	"checkout.session_ttl":           "CHECKOUT_SESSION_TTL",

	"flow.show_progress_indicator": "FLOW_SHOW_PROGRESS_INDICATOR",
	"flow.collect_phone":           "FLOW_COLLECT_PHONE",

	"email.sendgrid_api_key": "SENDGRID_API_KEY",
	"email.from":             "FROM_EMAIL",
	"email.from_name":        "FROM_NAME",
	"email.timeout":          "EMAIL_TIMEOUT",

	"kafka.brokers":     "KAFKA_BROKERS",
	"kafka.topic":       "KAFKA_TOPIC",
	"kafka.sweep_carts": "KAFKA_SWEEP_CARTS",

	"mongo.uri":      "MONGO_URI",
	"mongo.database": "MONGO_DB_NAME",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "storefront")
	v.SetDefault("service.version", "dev")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.base_url", "http://localhost:8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.webhook_timeout", 20*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.secure_cookies", false)
	v.SetDefault("http.admin_token", "")
	v.SetDefault("grpc.port", "50051")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migrations_path", "internal/repository/migrations")

	v.SetDefault("catalog.db_path", "catalog.db")
	v.SetDefault("catalog.migrations_path", "internal/catalog/migrations")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cart_ttl", 24*time.Hour)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.publishable_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.api_url", "")
	v.SetDefault("stripe.timeout", 10*time.Second)

	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("checkout.allowed_countries", []string{"US"})
	v.SetDefault("checkout.automatic_tax", true)
	v.SetDefault("checkout.allow_promotion_codes", true)
	v.SetDefault("checkout.session_ttl", 30*time.Minute)

	v.SetDefault("flow.show_progress_indicator", true)
	v.SetDefault("flow.collect_phone", true)

	v.SetDefault("email.sendgrid_api_key", "")
	v.SetDefault("email.from", "orders@nomadnet.example")
	v.SetDefault("email.from_name", "NomadNet")
	v.SetDefault("email.timeout", 10*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "storefront-orders")
	v.SetDefault("kafka.sweep_carts", true)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "storefront")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration. An empty path skips the config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.HTTP.BaseURL = strings.TrimRight(strings.TrimSpace(c.HTTP.BaseURL), "/")
	c.Checkout.Currency = strings.ToLower(strings.TrimSpace(c.Checkout.Currency))
	c.Checkout.AllowedCountries = splitList(c.Checkout.AllowedCountries, strings.ToUpper)
	c.Kafka.Brokers = splitList(c.Kafka.Brokers, nil)
}

// splitList flattens comma separated entries, as delivered by env vars, and
// drops blanks.
func splitList(in []string, transform func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if transform != nil {
				part = transform(part)
			}
			out = append(out, part)
		}
	}
	return out
}

// Validate checks what serve needs before it opens any connection.
func (c *Config) Validate() error {
	var errs []error
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		errs = append(errs, errors.New("DB_HOST and DB_NAME are required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if u, err := url.Parse(c.HTTP.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL %q must be an absolute URL", c.HTTP.BaseURL))
	}
	if len(c.Checkout.Currency) != 3 {
		errs = append(errs, fmt.Errorf("checkout currency %q must be a three-letter code", c.Checkout.Currency))
	}
	if len(c.Checkout.AllowedCountries) == 0 {
		errs = append(errs, errors.New("at least one shipping country is required"))
	}
	if c.Checkout.SessionTTL < 30*time.Minute || c.Checkout.SessionTTL > 23*time.Hour {
		errs = append(errs, errors.New("checkout session ttl must be between 30m and 23h"))
	}
	return errors.Join(errs...)
}

// Credentials lists the secrets the health check reports on, by variable name.
func (c *Config) Credentials() map[string]string {
	return map[string]string{
		"STRIPE_SECRET_KEY":      c.Stripe.SecretKey,
		"STRIPE_PUBLISHABLE_KEY": c.Stripe.PublishableKey,
		"STRIPE_WEBHOOK_SECRET":  c.Stripe.WebhookSecret,
		"SENDGRID_API_KEY":       c.Email.SendGridAPIKey,
	}
}
