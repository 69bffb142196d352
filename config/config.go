package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/infra/mqtt"
)

type Config struct {
	Simulator SimulatorConfig `json:"simulator"`
	Output    OutputConfig    `json:"output"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Chart     ChartConfig     `json:"chart"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   metrics.Config  `json:"metrics"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Sentry    SentryConfig    `json:"sentry"`
	Viewer    ViewerConfig    `json:"viewer"`
	Mock      MockConfig      `json:"mock"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// Load reads path, applies K_ environment overrides and defaults, and
// validates the result. A missing file is not an error: defaults and
// environment overrides still apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			parser, err := parserFor(path)
			if err != nil {
				return nil, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// SetDefaults fills every unset field of every section.
func (c *Config) SetDefaults() {
	c.Simulator.SetDefaults()
	c.Output.SetDefaults()
	c.Pipeline.SetDefaults()
	c.Chart.SetDefaults()
	c.Logging.SetDefaults()
	c.MQTT.SetDefaults()
	c.Sentry.SetDefaults()
	c.Viewer.SetDefaults()
	c.Mock.SetDefaults()
}

// Validate checks struct tags first, then the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if (c.MQTT.ClientCert == "") != (c.MQTT.ClientKey == "") {
		return errors.New("mqtt: client_cert and client_key must be set together")
	}
	if c.MQTT.AuthMethod == "certificate" && (!c.MQTT.UseTLS || c.MQTT.ClientCert == "") {
		return errors.New("mqtt: certificate auth requires use_tls and client_cert")
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
