package config

import (
	"fmt"
	"net/netip"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error. Use only in main().
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct fills v from the env tags of its fields, descending into the
// section structs. A field whose variables are unset and that has no default
// keeps its zero value.
func loadStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value := lookupEnv(name, field.Tag.Get("envAlt"), field.Tag.Get("default"))
		if value == "" {
			continue
		}
		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

// lookupEnv returns the first non-empty of name, alt and def.
func lookupEnv(name, alt, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v
		}
	}
	return def
}

// setField parses value into the field types used by Config.
func setField(fv reflect.Value, value string) error {
	switch p := fv.Addr().Interface().(type) {
	case *string:
		*p = value
	case *int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		*p = n
	case *int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		*p = n
	case *bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		*p = b
	case *time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		*p = d
	case *[]string:
		*p = splitList(value)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Pipeline validation
	if len(c.Pipeline.PhoneRegion) != 2 || strings.ToUpper(c.Pipeline.PhoneRegion) != c.Pipeline.PhoneRegion {
		errs = append(errs, fmt.Sprintf("PHONE_DEFAULT_REGION (%q) must be a two-letter upper-case region code", c.Pipeline.PhoneRegion))
	}
	if c.Pipeline.TopProducts <= 0 {
		errs = append(errs, "ANALYTICS_TOP_PRODUCTS must be positive")
	}
	if c.Pipeline.Months <= 0 {
		errs = append(errs, "ANALYTICS_MONTHS must be positive")
	}
	validReports := map[string]bool{"text": true, "json": true, "yaml": true}
	if !validReports[strings.ToLower(c.Pipeline.ReportFormat)] {
		errs = append(errs, fmt.Sprintf("REPORT_FORMAT (%q) must be one of: text, json, yaml", c.Pipeline.ReportFormat))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent < 1 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be at least 1")
	}
	if c.Upload.QueueTimeout <= 0 {
		errs = append(errs, "UPLOAD_QUEUE_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.CleanLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_CLEAN must be positive when rate limiting is enabled")
	}

	// Security validation
	for _, cidr := range c.Security.TrustedProxies {
		if !validProxy(cidr) {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP or CIDR", cidr))
		}
	}

	// Stream validation
	if len(c.Stream.Brokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS must list at least one broker")
	}
	if c.Stream.Topic == "" {
		errs = append(errs, "KAFKA_TOPIC is required")
	}
	if c.Stream.DLQTopic != "" && c.Stream.DLQTopic == c.Stream.Topic {
		errs = append(errs, "KAFKA_DLQ_TOPIC must differ from KAFKA_TOPIC")
	}
	if c.Stream.BatchSize <= 0 {
		errs = append(errs, "STREAM_BATCH_SIZE must be positive")
	}
	if c.Stream.FlushInterval <= 0 {
		errs = append(errs, "STREAM_FLUSH_INTERVAL must be positive")
	}
	if c.Stream.DedupWindow <= 0 {
		errs = append(errs, "STREAM_DEDUP_WINDOW must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validProxy reports whether s is an IP address or CIDR prefix.
func validProxy(s string) bool {
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// String returns a short representation of the config for startup logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Pipeline: {Region: %q, TopProducts: %d, Months: %d, Report: %q}, ",
		c.Pipeline.PhoneRegion, c.Pipeline.TopProducts, c.Pipeline.Months, c.Pipeline.ReportFormat))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, MaxConcurrent: %d, QueueTimeout: %s}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.QueueTimeout))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Security: {TrustedProxies: %d, APIKeys: [MASKED x%d]}, ",
		len(c.Security.TrustedProxies), len(c.Security.APIKeys)))
	b.WriteString(fmt.Sprintf("Stream: {Brokers: %v, Topic: %q, GroupID: %q, BatchSize: %d}, ",
		c.Stream.Brokers, c.Stream.Topic, c.Stream.GroupID, c.Stream.BatchSize))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
