package approval

import (
	"errors"
	"time"

	"github.com/opsgate/opsgate/risk"
)

// Sentinel errors surfaced by the correlator.
var (
	// ErrNotFound is returned by Resolve when the approval id is unknown:
	// already resolved, timed out, aborted, or never registered.
	ErrNotFound = errors.New("approval: not found")

	// ErrAuditUnavailable is returned by Request when the pending audit
	// record could not be written. A request that cannot be proven to
	// exist in the audit trail must not proceed.
	ErrAuditUnavailable = errors.New("approval: could not establish auditable approval")
)

// Request describes a tool invocation awaiting a human decision.
type Request struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenantId"`
	SessionID string                 `json:"sessionId,omitempty"`
	ToolName  string                 `json:"toolName"`
	Input     map[string]interface{} `json:"input,omitempty"`
	RiskLevel risk.Level             `json:"riskLevel,omitempty"`
	Reasoning string                 `json:"reasoning,omitempty"`
	Timeout   time.Duration          `json:"timeout,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	ExpiresAt time.Time              `json:"expiresAt,omitempty"`
}

// DecisionKind enumerates the human-issued terminal decisions.
type DecisionKind string

const (
	DecisionApproved DecisionKind = "approved"
	DecisionDenied   DecisionKind = "denied"
	DecisionModified DecisionKind = "modified"
)

// Decision carries a human verdict for a pending approval.
type Decision struct {
	Kind          DecisionKind           `json:"decision"`
	Reason        string                 `json:"reason,omitempty"`
	ModifiedInput map[string]interface{} `json:"modifiedInput,omitempty"`
	DecidedBy     string                 `json:"decidedBy,omitempty"`
}

// Behavior tags the outcome variant delivered back to the suspended caller.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

// Outcome is the only type that crosses back out of the engine to the
// original caller. Allow carries the input to execute with (the original
// input unless the decision supplied a modified one); Deny carries a
// human-readable reason.
type Outcome struct {
	Behavior     Behavior               `json:"behavior"`
	UpdatedInput map[string]interface{} `json:"updatedInput,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	Interrupt    bool                   `json:"interrupt,omitempty"`
}

// Allowed reports whether the outcome permits execution.
func (o *Outcome) Allowed() bool { return o != nil && o.Behavior == BehaviorAllow }

// Event envelope published on the correlator's fan-out queue. Events exist
// for observability only; the correlator never depends on them for its own
// correctness.
type Event struct {
	Topic   string            `json:"topic"`
	Data    interface{}       `json:"data,omitempty"` // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"`
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestResolved = "request.resolved"
	TopicRequestExpired  = "request.expired"
)
