package opsgate

import (
	"github.com/viant/x"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/opsgate/opsgate/extension"
	"github.com/opsgate/opsgate/policy"
	"github.com/opsgate/opsgate/risk"
	"github.com/opsgate/opsgate/service/approval"
	"github.com/opsgate/opsgate/service/audit"
	"github.com/opsgate/opsgate/service/messaging"
	"github.com/opsgate/opsgate/service/notify"
	"github.com/opsgate/opsgate/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig supplies the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithProfiles adds risk profiles on top of the built-in tool table.
func WithProfiles(profiles ...*risk.Profile) Option {
	return func(s *Service) { s.profiles = append(s.profiles, profiles...) }
}

// WithPolicyBoundary sets the boundary the policy cache loads from.
func WithPolicyBoundary(boundary policy.Boundary) Option {
	return func(s *Service) { s.policyBoundary = boundary }
}

// WithAuditService sets the audit sink.
func WithAuditService(service audit.Service) Option {
	return func(s *Service) { s.auditor = service }
}

// WithNotifier sets the channel pending approvals are broadcast on.
func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithEventQueue sets the fan-out queue for request lifecycle events.
func WithEventQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *Service) { s.events = queue }
}

// WithTools registers executable tools; their profiles seed the classifier.
func WithTools(tools ...extension.Tool) Option {
	return func(s *Service) { s.extensionTools = append(s.extensionTools, tools...) }
}

// WithExtensionTypes registers Go types for tool inputs and outputs.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) { s.extensionTypes = append(s.extensionTypes, types...) }
}

// WithTracing configures OpenTelemetry tracing for the engine. If outputFile
// is empty the stdout exporter is used. The first successful initialisation
// wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
