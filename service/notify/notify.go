// Package notify defines the boundary through which pending approvals are
// pushed to whatever human-facing channel is listening. Broadcasting is
// best-effort and fire-and-forget: a delivery failure is logged by the
// caller and never affects the pending request.
package notify

import (
	"context"
	"time"

	"github.com/opsgate/opsgate/risk"
	"github.com/opsgate/opsgate/service/messaging"
)

// Summary is the human-facing projection of a pending approval.
type Summary struct {
	ApprovalID string                 `json:"approvalId"`
	TenantID   string                 `json:"tenantId"`
	SessionID  string                 `json:"sessionId,omitempty"`
	ToolName   string                 `json:"toolName"`
	RiskLevel  risk.Level             `json:"riskLevel"`
	Reasoning  string                 `json:"reasoning,omitempty"`
	Preview    string                 `json:"preview,omitempty"`
	Input      map[string]interface{} `json:"input,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	ExpiresAt  time.Time              `json:"expiresAt"`
}

// Notifier is implemented by notification channels.
type Notifier interface {
	BroadcastPending(ctx context.Context, summary *Summary) error
}

// Queue is a Notifier publishing summaries onto a message queue; decision
// surfaces (chat bridges, dashboards) consume from the other end.
type Queue struct {
	queue messaging.Queue[Summary]
}

// NewQueue creates a queue-backed notifier.
func NewQueue(queue messaging.Queue[Summary]) *Queue {
	return &Queue{queue: queue}
}

// BroadcastPending publishes the summary, enriching it with a rendered
// preview when one can be derived from the tool input.
func (n *Queue) BroadcastPending(ctx context.Context, summary *Summary) error {
	if summary.Preview == "" {
		summary.Preview = Preview(summary.ToolName, summary.Input)
	}
	return n.queue.Publish(ctx, summary)
}

var _ Notifier = (*Queue)(nil)
