package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Logger: LoggerConfig{Level: "info", Encoding: "console", Mode: "stdout"},
		Node:   NodeConfig{Mode: "private", UDP: 7946, TCP: 7947},
		Ring: RingConfig{
			NumSuccessors:      3,
			ExpirationSeconds:  15,
			HeartbeatInterval:  3 * time.Second,
			ExpiryScanInterval: 3 * time.Second,
		},
		Bootstrap: BootstrapConfig{Mode: "static", Peers: []string{"127.0.0.1:7946"}},
		Metrics:   MetricsConfig{Enabled: false},
		Tracing:   TracingConfig{Enabled: false},
	}
}

func TestValidateConfigAcceptsWellFormedConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateConfigAccumulatesAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	cfg.Node.UDP = 0
	cfg.Ring.NumSuccessors = 0
	cfg.Bootstrap.Mode = "static"
	cfg.Bootstrap.Peers = []string{"not-a-host-port"}

	err := cfg.ValidateConfig()
	if err == nil {
		t.Fatalf("expected an error")
	}
	msg := err.Error()
	for _, want := range []string{"logger.level", "node.udpPort", "ring.numSuccessors", "bootstrap.peers"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error message to mention %q, got: %s", want, msg)
		}
	}
}

func TestValidateConfigRoute53RequiresZoneAndSuffix(t *testing.T) {
	cfg := validConfig()
	cfg.Bootstrap.Mode = "route53"
	cfg.Bootstrap.Register = RegisterConfig{}

	err := cfg.ValidateConfig()
	if err == nil {
		t.Fatalf("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "hostedZoneId") || !strings.Contains(msg, "domainSuffix") {
		t.Errorf("expected error to mention both missing route53 fields, got: %s", msg)
	}
}

func TestValidateConfigRejectsUnknownBootstrapMode(t *testing.T) {
	cfg := validConfig()
	cfg.Bootstrap.Mode = "consul"
	if err := cfg.ValidateConfig(); err == nil {
		t.Fatalf("expected an error for an unrecognized bootstrap mode")
	}
}

func TestValidateConfigRequiresMetricsListenWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Listen = ""
	if err := cfg.ValidateConfig(); err == nil {
		t.Fatalf("expected an error for metrics.enabled without metrics.listen")
	}
}

func TestApplyEnvOverridesOverlaysConfiguredFields(t *testing.T) {
	cfg := validConfig()

	for k, v := range map[string]string{
		"NODE_BIND":       "10.0.0.1",
		"NODE_UDP_PORT":   "9000",
		"BOOTSTRAP_MODE":  "route53",
		"BOOTSTRAP_PEERS": "a:1,b:2",
		"METRICS_ENABLED": "true",
	} {
		t.Setenv(k, v)
	}

	cfg.ApplyEnvOverrides()

	if cfg.Node.Bind != "10.0.0.1" {
		t.Errorf("expected node.bind to be overridden, got %q", cfg.Node.Bind)
	}
	if cfg.Node.UDP != 9000 {
		t.Errorf("expected node.udpPort to be overridden, got %d", cfg.Node.UDP)
	}
	if cfg.Bootstrap.Mode != "route53" {
		t.Errorf("expected bootstrap.mode to be overridden, got %q", cfg.Bootstrap.Mode)
	}
	if len(cfg.Bootstrap.Peers) != 2 || cfg.Bootstrap.Peers[0] != "a:1" || cfg.Bootstrap.Peers[1] != "b:2" {
		t.Errorf("expected bootstrap.peers to be split from env, got %v", cfg.Bootstrap.Peers)
	}
	if !cfg.Metrics.Enabled {
		t.Errorf("expected metrics.enabled to be overridden to true")
	}
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	yaml := `
logger:
  active: true
  level: info
  encoding: console
  mode: stdout
node:
  bind: "0.0.0.0"
  mode: private
  udpPort: 7946
  tcpPort: 7947
ring:
  numSuccessors: 3
  expirationSeconds: 15
  heartbeatInterval: 3s
  expiryScanInterval: 3s
bootstrap:
  mode: static
  peers:
    - "127.0.0.1:7946"
metrics:
  enabled: false
tracing:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("expected parsed config to validate, got %v", err)
	}
	if cfg.Node.UDP != 7946 {
		t.Errorf("expected node.udpPort 7946, got %d", cfg.Node.UDP)
	}
	if cfg.Ring.HeartbeatInterval != 3*time.Second {
		t.Errorf("expected heartbeatInterval 3s, got %v", cfg.Ring.HeartbeatInterval)
	}
}
