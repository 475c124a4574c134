// Package audit defines the boundary through which the engine proves that
// approval requests and their final dispositions were recorded. Recording a
// pending request is load-bearing: a request that cannot be written to the
// audit trail must not proceed. Recording a terminal disposition is
// best-effort: by then the human decision has already been made and must be
// honoured regardless.
package audit

import (
	"context"
	"time"

	"github.com/opsgate/opsgate/risk"
)

// Disposition is the final, irreversible classification of an approval.
type Disposition string

const (
	DispositionApproved     Disposition = "approved"
	DispositionDenied       Disposition = "denied"
	DispositionModified     Disposition = "modified"
	DispositionTimedOut     Disposition = "timed_out"
	DispositionAborted      Disposition = "aborted"
	DispositionPolicyDenied Disposition = "policy_denied"
)

// Entry is a single audit record. Kind "pending" entries are written when a
// request is registered; kind "terminal" entries when it reaches a
// disposition.
type Entry struct {
	ID          string                 `json:"id"`
	ApprovalID  string                 `json:"approvalId"`
	Kind        string                 `json:"kind"` // pending | terminal
	TenantID    string                 `json:"tenantId,omitempty"`
	SessionID   string                 `json:"sessionId,omitempty"`
	ToolName    string                 `json:"toolName,omitempty"`
	Input       map[string]interface{} `json:"input,omitempty"`
	RiskLevel   risk.Level             `json:"riskLevel,omitempty"`
	Disposition Disposition            `json:"disposition,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	DecidedBy   string                 `json:"decidedBy,omitempty"`
	Elapsed     time.Duration          `json:"elapsed,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// Service is implemented by audit sinks.
type Service interface {
	// RecordPending durably records that an approval request exists.
	// Failures are fatal to the request being registered.
	RecordPending(ctx context.Context, entry *Entry) error

	// RecordTerminal records the final disposition of an approval.
	// Failures must be absorbed by the caller (logged, never propagated to
	// the already-settled requester).
	RecordTerminal(ctx context.Context, entry *Entry) error
}
