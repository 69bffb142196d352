package metrics

import (
	"errors"

	"github.com/kilianp07/evload/core/factory"
	coremetrics "github.com/kilianp07/evload/core/metrics"
)

// InfluxConfig is the conf block of an "influx" sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func (c InfluxConfig) validate() error {
	if c.URL == "" || c.Org == "" || c.Bucket == "" {
		return errors.New("influx sink requires url, org and bucket")
	}
	return nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", newPromFromConf)
	_ = coremetrics.RegisterMetricsSink("influx", newInfluxFromConf)
}

func newPromFromConf(map[string]any) (coremetrics.MetricsSink, error) {
	s, err := NewPromSink()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newInfluxFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}
