package opsgate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/viant/x"

	"github.com/opsgate/opsgate/extension"
	"github.com/opsgate/opsgate/internal/clock"
	"github.com/opsgate/opsgate/internal/idgen"
	"github.com/opsgate/opsgate/policy"
	policymem "github.com/opsgate/opsgate/policy/memory"
	"github.com/opsgate/opsgate/risk"
	"github.com/opsgate/opsgate/service/approval"
	"github.com/opsgate/opsgate/service/audit"
	auditmem "github.com/opsgate/opsgate/service/audit/memory"
	"github.com/opsgate/opsgate/service/messaging"
	"github.com/opsgate/opsgate/service/notify"
	"github.com/opsgate/opsgate/tracing"
)

// ToolRequest describes a tool invocation the orchestration loop wants
// permission for.
type ToolRequest struct {
	TenantID  string                 `json:"tenantId"`
	SessionID string                 `json:"sessionId,omitempty"`
	ToolName  string                 `json:"toolName"`
	Input     map[string]interface{} `json:"input,omitempty"`
	Reasoning string                 `json:"reasoning,omitempty"`
	// Timeout overrides the profile and engine defaults for this call.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Service is the engine front door. It combines the policy evaluator with
// the approval correlator behind a single CanUse entry point.
type Service struct {
	config         *Config
	profiles       []*risk.Profile
	classifier     *risk.Classifier
	policyBoundary policy.Boundary
	store          *policy.Store
	evaluator      *policy.Evaluator
	auditor        audit.Service
	notifier       notify.Notifier
	events         messaging.Queue[approval.Event]
	correlator     *approval.Correlator
	tools          *extension.Tools
	extensionTools []extension.Tool
	extensionTypes []*x.Type
}

// New creates an engine service. All collaborators are injected through
// options; missing ones fall back to in-memory defaults so the engine is
// usable per-process or per-test without external wiring.
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.tools = extension.NewTools(s.extensionTypes...)
	for _, tool := range s.extensionTools {
		s.tools.Register(tool)
	}

	profiles := append(risk.DefaultProfiles(), s.tools.Profiles()...)
	profiles = append(profiles, s.profiles...)
	s.classifier = risk.NewClassifier(profiles...)

	var storeOptions []policy.StoreOption
	if s.config.Policy.RefreshInterval > 0 {
		storeOptions = append(storeOptions, policy.WithRefreshInterval(s.config.Policy.RefreshInterval))
	}
	s.store = policy.NewStore(s.policyBoundary, storeOptions...)
	s.evaluator = policy.NewEvaluator(s.classifier, s.store)

	correlatorOptions := []approval.Option{approval.WithDefaultTimeout(s.config.Approval.DefaultTimeout)}
	if s.notifier != nil {
		correlatorOptions = append(correlatorOptions, approval.WithNotifier(s.notifier))
	}
	if s.events != nil {
		correlatorOptions = append(correlatorOptions, approval.WithEvents(s.events))
	}
	s.correlator = approval.New(s.auditor, correlatorOptions...)
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		log.Printf("[WARN] invalid engine config, using defaults: %v", err)
		s.config = DefaultConfig()
	}
	if s.policyBoundary == nil {
		s.policyBoundary = policymem.New()
	}
	if s.auditor == nil {
		s.auditor = auditmem.New()
	}
}

// CanUse is the single public permission entry point. It returns Allow with
// the input to execute with, Deny with a human-readable reason, or an error
// when the call was cancelled or could not be audited. It never returns a
// raw unrecovered failure for normal operational conditions.
func (s *Service) CanUse(ctx context.Context, request *ToolRequest) (outcome *approval.Outcome, err error) {
	if request == nil || request.ToolName == "" {
		return nil, fmt.Errorf("opsgate: empty tool request")
	}
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("opsgate.CanUse %s", request.ToolName), "INTERNAL")
	span.WithAttributes(map[string]string{"tenant": request.TenantID, "tool": request.ToolName})
	defer func() { tracing.EndSpan(span, err) }()

	verdict := s.evaluator.Evaluate(ctx, request.TenantID, request.ToolName, request.Input)
	switch verdict.Decision {
	case policy.DecisionAllow:
		// Local allows bypass the correlator entirely: no pending entry,
		// no pending audit record.
		return &approval.Outcome{
			Behavior:     approval.BehaviorAllow,
			UpdatedInput: request.Input,
		}, nil
	case policy.DecisionDeny:
		s.auditDenied(ctx, request, verdict)
		return &approval.Outcome{
			Behavior: approval.BehaviorDeny,
			Reason:   verdict.Reason,
		}, nil
	}

	timeout := request.Timeout
	if timeout <= 0 {
		timeout = verdict.Profile.ApprovalTimeout
	}
	return s.correlator.Request(ctx, &approval.Request{
		TenantID:  request.TenantID,
		SessionID: request.SessionID,
		ToolName:  request.ToolName,
		Input:     request.Input,
		RiskLevel: verdict.Profile.Level,
		Reasoning: request.Reasoning,
		Timeout:   timeout,
	})
}

// auditDenied records a policy denial. Denials carry their own disposition
// so audit dashboards can tell them apart from human-issued ones.
func (s *Service) auditDenied(ctx context.Context, request *ToolRequest, verdict *policy.Verdict) {
	entry := &audit.Entry{
		ID:          idgen.New(),
		ApprovalID:  idgen.New(),
		Kind:        "terminal",
		TenantID:    request.TenantID,
		SessionID:   request.SessionID,
		ToolName:    request.ToolName,
		Input:       request.Input,
		RiskLevel:   verdict.Profile.Level,
		Disposition: audit.DispositionPolicyDenied,
		Reason:      verdict.Reason,
		CreatedAt:   clock.Now(),
	}
	if err := s.auditor.RecordTerminal(ctx, entry); err != nil {
		log.Printf("[WARN] failed to audit policy denial for %v: %v", request.ToolName, err)
	}
}

// Resolve settles a pending approval with a human decision; the decision
// may originate from any transport that carries a validated message.
func (s *Service) Resolve(ctx context.Context, approvalID string, decision *approval.Decision) (err error) {
	ctx, span := tracing.StartSpan(ctx, "opsgate.Resolve", "INTERNAL")
	span.WithAttributes(map[string]string{"approvalId": approvalID})
	defer func() { tracing.EndSpan(span, err) }()
	return s.correlator.Resolve(ctx, approvalID, decision)
}

// ListPending returns a snapshot of approvals awaiting a decision.
func (s *Service) ListPending(ctx context.Context, filters ...approval.PendingFilter) ([]*approval.Request, error) {
	return s.correlator.ListPending(ctx, filters...)
}

// UpdatePolicy writes a tenant policy through the boundary and reloads the
// tenant's cache before returning.
func (s *Service) UpdatePolicy(ctx context.Context, tenantID, toolName string, patch *policy.Patch) error {
	return s.store.Update(ctx, tenantID, toolName, patch)
}

// Correlator exposes the approval correlator for decision transports.
func (s *Service) Correlator() *approval.Correlator { return s.correlator }

// Tools returns the tool registry.
func (s *Service) Tools() *extension.Tools { return s.tools }

// RegisterExtensionTypes registers Go types for tool inputs and outputs.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.tools.Types().Register(types[i])
	}
}

// Classifier returns the static risk classifier.
func (s *Service) Classifier() *risk.Classifier { return s.classifier }
