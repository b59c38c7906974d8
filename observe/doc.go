// Package observe provides structured logging, metrics, and tracing for
// the query cache.
//
// It wires OpenTelemetry metrics and tracing behind small cache-oriented
// interfaces, plus a JSON structured logger with sensitive-field
// redaction. Everything defaults to no-op so the cache works standalone.
package observe
