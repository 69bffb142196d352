package metrics

import "github.com/kilianp07/evload/core/factory"

// Config defines the metrics sinks and the Prometheus exposition address.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddress serves /metrics when non-empty, e.g. ":9100".
	PrometheusAddress string `json:"prometheus_address"`
}
