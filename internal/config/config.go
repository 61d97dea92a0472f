// Package config provides centralized configuration management for the cleaner
// binaries. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Pipeline PipelineConfig
	Server   ServerConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Stream   StreamConfig
}

// PipelineConfig holds batch cleaning inputs, outputs and analytics sizing.
type PipelineConfig struct {
	CustomersCSV string `env:"CUSTOMERS_CSV" default:"data/customers.csv"`
	ProductsCSV  string `env:"PRODUCTS_CSV" default:"data/products.csv"`
	OrdersCSV    string `env:"ORDERS_CSV" default:"data/orders.csv"`

	CleanCustomersCSV string `env:"CLEAN_CUSTOMERS_CSV" default:"data/clean/customers.csv"`
	CleanProductsCSV  string `env:"CLEAN_PRODUCTS_CSV" default:"data/clean/products.csv"`
	CleanOrdersCSV    string `env:"CLEAN_ORDERS_CSV" default:"data/clean/orders.csv"`

	// PhoneRegion is used for numbers without a country code (default: IN)
	PhoneRegion string `env:"PHONE_DEFAULT_REGION" default:"IN"`

	// TopProducts is the length of the revenue ranking (default: 5)
	TopProducts int `env:"ANALYTICS_TOP_PRODUCTS" default:"5"`

	// Months is the number of months in the revenue report (default: 6)
	Months int `env:"ANALYTICS_MONTHS" default:"6"`

	// ReportFormat is how the run report is printed: text, json or yaml (default: text)
	ReportFormat string `env:"REPORT_FORMAT" default:"text"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds multipart upload limits for the clean endpoint.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed size of one source file in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of cleaning runs allowed at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// QueueTimeout is how long a request waits for a free run slot (default: 30s)
	QueueTimeout time.Duration `env:"UPLOAD_QUEUE_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CleanLimit is requests per minute for the clean endpoint (default: 10)
	CleanLimit int `env:"RATE_LIMIT_CLEAN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of keys accepted in X-API-Key.
	// Empty disables authentication.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled exposes /metrics on the HTTP server (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Addr is the listen address of the consumer's metrics endpoint (default: :9102)
	Addr string `env:"METRICS_ADDR" default:":9102"`
}

// StreamConfig holds settings for reconciling order events from Kafka.
type StreamConfig struct {
	// Brokers is a comma-separated list of Kafka brokers
	Brokers []string `env:"KAFKA_BROKERS" envAlt:"KAFKA_BOOTSTRAP_SERVERS" default:"localhost:9092"`

	// Topic carries order events (default: orders-topic)
	Topic string `env:"KAFKA_TOPIC" default:"orders-topic"`

	// GroupID is the consumer group (default: shopclean-orders)
	GroupID string `env:"KAFKA_GROUP_ID" default:"shopclean-orders"`

	// DLQTopic receives undecodable events; empty disables the dead letter queue
	DLQTopic string `env:"KAFKA_DLQ_TOPIC"`

	// BatchSize is the number of events reconciled together (default: 500)
	BatchSize int `env:"STREAM_BATCH_SIZE" default:"500"`

	// FlushInterval bounds how long a partial batch waits (default: 5s)
	FlushInterval time.Duration `env:"STREAM_FLUSH_INTERVAL" default:"5s"`

	// DedupWindow is the number of recent event ids remembered (default: 100000)
	DedupWindow int `env:"STREAM_DEDUP_WINDOW" default:"100000"`

	// OrdersCSV is the file reconciled stream orders are appended to
	OrdersCSV string `env:"CLEAN_STREAM_ORDERS_CSV" default:"data/clean/stream_orders.csv"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Options returns the pipeline options described by the configuration.
func (c *PipelineConfig) Options() core.Options {
	opts := core.DefaultOptions()
	opts.PhoneRegion = c.PhoneRegion
	opts.TopProducts = c.TopProducts
	opts.Months = c.Months
	return opts
}
