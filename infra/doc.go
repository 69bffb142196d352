// Package infra contains technical adapters: the simulation HTTP client,
// archive storage, MQTT publishing, metrics sinks, Sentry and logging.
// These packages depend only on the interfaces defined in the core packages.
package infra
