// Package tracing provides a thin wrapper around OpenTelemetry so the rest
// of the code-base can instrument permission checks and approval lifecycles
// without importing the upstream packages directly.
package tracing
