package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `simulator:
  endpoint: "http://sim.local:8000/api/simulate"
  timeout_seconds: 30
output:
  dir: "out"
  chart_format: "svg"
pipeline:
  window: 24
chart:
  step: false
logging:
  level: "debug"
metrics:
  prometheus_address: ":9100"
  sinks:
    - type: "nop"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  topic_prefix: "fleet"
  qos: 1
viewer:
  address: ":9090"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"endpoint", cfg.Simulator.Endpoint, "http://sim.local:8000/api/simulate"},
		{"timeout", cfg.Simulator.TimeoutSeconds, 30},
		{"output.dir", cfg.Output.Dir, "out"},
		{"chart_format", cfg.Output.ChartFormat, "svg"},
		{"chart_name default", cfg.Output.ChartName, "energy_chart"},
		{"window", cfg.Pipeline.Window, 24},
		{"step", cfg.Chart.StepEnabled(), false},
		{"width default", cfg.Chart.Width, 1200},
		{"level", cfg.Logging.Level, "debug"},
		{"prometheus", cfg.Metrics.PrometheusAddress, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "fleet"},
		{"qos", cfg.MQTT.QoS, byte(1)},
		{"viewer", cfg.Viewer.Address, ":9090"},
		{"mock default", cfg.Mock.Address, ":8000"},
		{"sentry env default", cfg.Sentry.Environment, "production"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Simulator.Endpoint != "http://localhost:8000/api/simulate" {
		t.Fatalf("unexpected endpoint %s", cfg.Simulator.Endpoint)
	}
	if cfg.Simulator.Timeout() != 0 {
		t.Fatalf("expected no timeout by default")
	}
	if cfg.Pipeline.Window != 48 || !cfg.Chart.StepEnabled() || cfg.Output.ChartFormat != "png" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MQTT.Enabled() {
		t.Fatalf("mqtt should be disabled without a broker")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("K_SIMULATOR__ENDPOINT", "http://override:9000/api/simulate")
	t.Setenv("K_PIPELINE__WINDOW", "12")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Simulator.Endpoint != "http://override:9000/api/simulate" {
		t.Fatalf("env override ignored: %s", cfg.Simulator.Endpoint)
	}
	if cfg.Pipeline.Window != 12 {
		t.Fatalf("env window ignored: %d", cfg.Pipeline.Window)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"output":{"chart_name":"run"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Output.ChartName != "run" {
		t.Fatalf("unexpected chart name %s", cfg.Output.ChartName)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"format":     "output:\n  chart_format: \"gif\"\n",
		"endpoint":   "simulator:\n  endpoint: \"not a url\"\n",
		"level":      "logging:\n  level: \"loud\"\n",
		"qos":        "mqtt:\n  qos: 3\n",
		"tls":        "mqtt:\n  broker: \"ssl://b:8883\"\n  use_tls: true\n  client_cert: a.pem\n",
		"cert auth":  "mqtt:\n  broker: \"tcp://b:1883\"\n  auth_method: certificate\n",
		"token url":  "simulator:\n  auth:\n    token_url: not-a-url\n",
		"sink":       "metrics:\n  sinks:\n    - conf: {}\n",
		"chart_name": "output:\n  chart_name: \"a/b\"\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Fatalf("unexpected error %v", err)
	}
}
