package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ringkeep/internal/logger"
)

// FileLoggerConfig configures lumberjack-backed log rotation when
// Logger.Mode == "file".
type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

// LoggerConfig configures the zap-backed structured logger (§10.1).
type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// NodeConfig describes this process's network identity.
type NodeConfig struct {
	Bind string `yaml:"bind"` // interface to bind UDP/TCP sockets to, e.g. "0.0.0.0"
	Host string `yaml:"host"` // address advertised to peers; derived from Mode if empty
	Mode string `yaml:"mode"` // "private" | "public", used to auto-select an advertise address
	UDP  int    `yaml:"udpPort"`
	TCP  int    `yaml:"tcpPort"`
}

// RingConfig holds the §6 static configuration, lifted into configuration
// per the design note in §9.
type RingConfig struct {
	NumSuccessors     int           `yaml:"numSuccessors"`
	ExpirationSeconds int           `yaml:"expirationSeconds"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	ExpiryScanInterval time.Duration `yaml:"expiryScanInterval"`
}

// RegisterConfig holds the Route53 record settings used by the route53
// bootstrap mode so that dynamic discovery can find this node. Enabled is
// loaded, overridable via REGISTER_ENABLED, and logged, but node.Join does
// not consult it: a route53-mode node registers on every Join and
// deregisters on every Leave.
type RegisterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
}

// BootstrapConfig selects and configures the join-broadcast set source (§11.1).
type BootstrapConfig struct {
	Mode     string         `yaml:"mode"` // "static" | "route53"
	Peers    []string       `yaml:"peers"`
	Register RegisterConfig `yaml:"register"`
}

// MetricsConfig configures the debug/metrics HTTP server (§11.4).
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// TracingConfig configures optional OpenTelemetry tracing (§11.4).
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" | "otlp"
	Endpoint string `yaml:"endpoint"`
}

// Config is the top-level, YAML-loaded configuration for one ringkeepd process.
type Config struct {
	Logger    LoggerConfig     `yaml:"logger"`
	Node      NodeConfig       `yaml:"node"`
	Ring      RingConfig       `yaml:"ring"`
	Bootstrap BootstrapConfig  `yaml:"bootstrap"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Tracing   TracingConfig    `yaml:"tracing"`
}

// LoadConfig reads and parses a YAML configuration file.
//
// This performs only syntactic parsing; call ValidateConfig afterwards to
// check for missing or invalid fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnvOverrides overlays a fixed table of environment variables onto the
// loaded configuration, for deployment-specific fields that are awkward to
// template into a YAML file (container orchestration, CI).
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_BIND"); v != "" {
		cfg.Node.Bind = v
	}
	if v := os.Getenv("NODE_HOST"); v != "" {
		cfg.Node.Host = v
	}
	if v := os.Getenv("NODE_MODE"); v != "" {
		cfg.Node.Mode = v
	}
	if v := os.Getenv("NODE_UDP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Node.UDP = p
		}
	}
	if v := os.Getenv("NODE_TCP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Node.TCP = p
		}
	}
	if v := os.Getenv("BOOTSTRAP_MODE"); v != "" {
		cfg.Bootstrap.Mode = v
	}
	if v := os.Getenv("BOOTSTRAP_PEERS"); v != "" {
		cfg.Bootstrap.Peers = strings.Split(v, ",")
	}
	if v := os.Getenv("REGISTER_ENABLED"); v != "" {
		cfg.Bootstrap.Register.Enabled = parseBool(v)
	}
	if v := os.Getenv("REGISTER_ZONE_ID"); v != "" {
		cfg.Bootstrap.Register.HostedZoneID = v
	}
	if v := os.Getenv("REGISTER_SUFFIX"); v != "" {
		cfg.Bootstrap.Register.DomainSuffix = v
	}
	if v := os.Getenv("REGISTER_TTL"); v != "" {
		if ttl, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bootstrap.Register.TTL = ttl
		}
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// ValidateConfig performs structural validation, accumulating every
// violation into a single joined error rather than failing on the first.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	switch cfg.Node.Mode {
	case "private", "public":
	default:
		errs = append(errs, fmt.Sprintf("invalid node.mode: %s", cfg.Node.Mode))
	}
	if cfg.Node.UDP <= 0 || cfg.Node.UDP > 65535 {
		errs = append(errs, fmt.Sprintf("node.udpPort must be in (0,65535], got %d", cfg.Node.UDP))
	}
	if cfg.Node.TCP <= 0 || cfg.Node.TCP > 65535 {
		errs = append(errs, fmt.Sprintf("node.tcpPort must be in (0,65535], got %d", cfg.Node.TCP))
	}

	if cfg.Ring.NumSuccessors <= 0 {
		errs = append(errs, "ring.numSuccessors must be > 0")
	}
	if cfg.Ring.ExpirationSeconds <= 0 {
		errs = append(errs, "ring.expirationSeconds must be > 0")
	}
	if cfg.Ring.HeartbeatInterval <= 0 {
		errs = append(errs, "ring.heartbeatInterval must be > 0")
	}
	if cfg.Ring.ExpiryScanInterval <= 0 {
		errs = append(errs, "ring.expiryScanInterval must be > 0")
	}

	switch cfg.Bootstrap.Mode {
	case "static":
		for _, p := range cfg.Bootstrap.Peers {
			if _, _, err := net.SplitHostPort(p); err != nil {
				errs = append(errs, fmt.Sprintf("invalid peer address %q in bootstrap.peers: %v", p, err))
			}
		}
	case "route53":
		r := cfg.Bootstrap.Register
		if r.HostedZoneID == "" {
			errs = append(errs, "bootstrap.register.hostedZoneId is required when bootstrap.mode=route53")
		}
		if r.DomainSuffix == "" {
			errs = append(errs, "bootstrap.register.domainSuffix is required when bootstrap.mode=route53")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid bootstrap.mode: %s (must be static or route53)", cfg.Bootstrap.Mode))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics.enabled=true")
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid tracing.exporter: %s", cfg.Tracing.Exporter))
		}
		if cfg.Tracing.Exporter == "otlp" && cfg.Tracing.Endpoint == "" {
			errs = append(errs, "tracing.endpoint is required when tracing.exporter=otlp")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the resolved configuration at DEBUG level, for verifying
// startup wiring without needing to re-read the YAML file by hand.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),

		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.host", cfg.Node.Host),
		logger.F("node.mode", cfg.Node.Mode),
		logger.F("node.udpPort", cfg.Node.UDP),
		logger.F("node.tcpPort", cfg.Node.TCP),

		logger.F("ring.numSuccessors", cfg.Ring.NumSuccessors),
		logger.F("ring.expirationSeconds", cfg.Ring.ExpirationSeconds),
		logger.F("ring.heartbeatInterval", cfg.Ring.HeartbeatInterval.String()),
		logger.F("ring.expiryScanInterval", cfg.Ring.ExpiryScanInterval.String()),

		logger.F("bootstrap.mode", cfg.Bootstrap.Mode),
		logger.F("bootstrap.peers", cfg.Bootstrap.Peers),
		logger.F("bootstrap.register.enabled", cfg.Bootstrap.Register.Enabled),

		logger.F("metrics.enabled", cfg.Metrics.Enabled),
		logger.F("metrics.listen", cfg.Metrics.Listen),

		logger.F("tracing.enabled", cfg.Tracing.Enabled),
		logger.F("tracing.exporter", cfg.Tracing.Exporter),
	)
}
