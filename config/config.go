// Package config loads and validates the service's single INI configuration
// file (SPEC_FULL.md section 4.11): sections [service], [upstream],
// [downstream], [sanitizer], plus the optional [mirror] and [bridge]
// sections for the NATS mirror and WebSocket bridge. Loading is fail-fast:
// any invalid value is an errors.ErrInvalidConfig that aborts startup
// before any network connection is attempted, echoing the teacher's own
// validate-before-use discipline (config/validator.go in the source tree).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360/quakerelay/errors"
	"gopkg.in/ini.v1"
)

// ServiceConfig is the [service] section.
type ServiceConfig struct {
	Name          string
	LogLevel      string
	LogFormat     string
	HealthAddress string
	MetricsPort   int
}

// UpstreamConfig is the [upstream] section, feeding internal/upstream.Config.
type UpstreamConfig struct {
	Address           string
	ServerCertPEMFile string
	BearerToken       string
	SubscriptionID    string
	ReconnectSchedule []time.Duration
	ImportQueueSize   int
}

// DownstreamConfig is the [downstream] section, feeding internal/downstream.Options.
type DownstreamConfig struct {
	Address     string
	Workers     int
	QueueSize   int
	CallTimeout time.Duration
}

// SanitizerConfig is the [sanitizer] section, feeding internal/sanitizer's
// three detectors.
type SanitizerConfig struct {
	MaxExpiredTime      time.Duration
	MaxFutureTime       time.Duration
	LogInterval         time.Duration
	DuplicateBufferSize int
	DuplicateBufferDuration time.Duration
}

// MirrorConfig is the optional [mirror] section.
type MirrorConfig struct {
	Enabled       bool
	NATSURL       string
	SubjectPrefix string
}

// BridgeConfig is the optional [bridge] section.
type BridgeConfig struct {
	Enabled      bool
	Address      string
	Path         string
	PollInterval time.Duration
}

// Config is the fully parsed and validated configuration.
type Config struct {
	Service    ServiceConfig
	Upstream   UpstreamConfig
	Downstream DownstreamConfig
	Sanitizer  SanitizerConfig
	Mirror     MirrorConfig
	Bridge     BridgeConfig
}

// Load reads path as an INI file, applies defaults, and validates every
// section. A non-nil error is always classified errors.ErrInvalidConfig or
// wraps an I/O failure, never a partially-usable Config.
func Load(path string) (*Config, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	file, err := ini.Load(data)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse INI file")
	}

	cfg := &Config{
		Service:    parseService(file.Section("service")),
		Upstream:   parseUpstream(file.Section("upstream")),
		Downstream: parseDownstream(file.Section("downstream")),
		Sanitizer:  parseSanitizer(file.Section("sanitizer")),
		Mirror:     parseMirror(file.Section("mirror")),
		Bridge:     parseBridge(file.Section("bridge")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseService(s *ini.Section) ServiceConfig {
	return ServiceConfig{
		Name:          s.Key("name").MustString("quakerelay"),
		LogLevel:      s.Key("log_level").MustString("info"),
		LogFormat:     s.Key("log_format").MustString("text"),
		HealthAddress: s.Key("health_address").MustString(":8080"),
		MetricsPort:   s.Key("metrics_port").MustInt(9100),
	}
}

func parseUpstream(s *ini.Section) UpstreamConfig {
	return UpstreamConfig{
		Address:           s.Key("address").String(),
		ServerCertPEMFile: s.Key("server_cert_pem_file").String(),
		BearerToken:       s.Key("bearer_token").String(),
		SubscriptionID:    s.Key("subscription_id").String(),
		ReconnectSchedule: parseDurationList(s.Key("reconnect_schedule").String()),
		ImportQueueSize:   s.Key("import_queue_size").MustInt(1024),
	}
}

func parseDownstream(s *ini.Section) DownstreamConfig {
	return DownstreamConfig{
		Address:     s.Key("address").MustString(":9090"),
		Workers:     s.Key("workers").MustInt(8),
		QueueSize:   s.Key("queue_size").MustInt(256),
		CallTimeout: s.Key("call_timeout").MustDuration(5 * time.Second),
	}
}

func parseSanitizer(s *ini.Section) SanitizerConfig {
	return SanitizerConfig{
		MaxExpiredTime:          s.Key("max_expired_time").MustDuration(5 * time.Minute),
		MaxFutureTime:           s.Key("max_future_time").MustDuration(0),
		LogInterval:             s.Key("log_interval").MustDuration(time.Hour),
		DuplicateBufferSize:     s.Key("duplicate_buffer_size").MustInt(0),
		DuplicateBufferDuration: s.Key("duplicate_buffer_duration").MustDuration(0),
	}
}

func parseMirror(s *ini.Section) MirrorConfig {
	natsURL := "nats://127.0.0.1:4222"
	if s.HasKey("nats_url") {
		natsURL = s.Key("nats_url").String()
	}
	return MirrorConfig{
		Enabled:       s.Key("enabled").MustBool(false),
		NATSURL:       natsURL,
		SubjectPrefix: s.Key("subject_prefix").MustString("packets.sanitized"),
	}
}

func parseBridge(s *ini.Section) BridgeConfig {
	return BridgeConfig{
		Enabled:      s.Key("enabled").MustBool(false),
		Address:      s.Key("address").MustString(":9091"),
		Path:         s.Key("path").MustString("/ws"),
		PollInterval: s.Key("poll_interval").MustDuration(200 * time.Millisecond),
	}
}

// parseDurationList parses a comma-separated list of durations, e.g.
// "0s,5s,15s". An empty string yields a nil slice so the caller's own
// default applies.
func parseDurationList(raw string) []time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Validate fail-fasts the whole config: the first invalid field aborts with
// a wrapped errors.ErrInvalidConfig (SPEC_FULL.md section 4.11).
func (c *Config) Validate() error {
	if c.Upstream.Address == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[upstream] address is required")
	}
	if c.Downstream.Address == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[downstream] address is required")
	}
	if c.Downstream.Workers <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[downstream] workers must be positive")
	}
	if c.Downstream.QueueSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[downstream] queue_size must be positive")
	}
	if c.Upstream.ImportQueueSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[upstream] import_queue_size must be positive")
	}
	if c.Sanitizer.MaxExpiredTime <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[sanitizer] max_expired_time must be positive")
	}
	if c.Sanitizer.MaxFutureTime < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[sanitizer] max_future_time must not be negative")
	}
	if c.Sanitizer.DuplicateBufferSize > 0 && c.Sanitizer.DuplicateBufferDuration > 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"[sanitizer] duplicate_buffer_size and duplicate_buffer_duration are mutually exclusive")
	}
	if c.Sanitizer.DuplicateBufferSize <= 0 && c.Sanitizer.DuplicateBufferDuration <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"[sanitizer] exactly one of duplicate_buffer_size or duplicate_buffer_duration is required")
	}
	if c.Mirror.Enabled && c.Mirror.NATSURL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[mirror] nats_url is required when enabled")
	}
	if c.Bridge.Enabled && c.Bridge.Address == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "[bridge] address is required when enabled")
	}
	for _, d := range c.Upstream.ReconnectSchedule {
		if d < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("[upstream] reconnect_schedule entries must be non-negative, got %s", d))
		}
	}
	return nil
}
