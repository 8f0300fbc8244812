// Package observe wires up telemetry for the gateway: an OpenTelemetry
// meter and tracer behind an exporter factory (prometheus, otlp, stdout),
// and a structured JSON logger that stamps the request correlation id on
// every line.
package observe
