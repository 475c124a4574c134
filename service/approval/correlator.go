package approval

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opsgate/opsgate/internal/clock"
	"github.com/opsgate/opsgate/internal/idgen"
	"github.com/opsgate/opsgate/service/audit"
	"github.com/opsgate/opsgate/service/messaging"
	"github.com/opsgate/opsgate/service/notify"
)

// DefaultTimeout applies when neither the request nor the correlator
// specifies how long to wait for a human decision.
const DefaultTimeout = 5 * time.Minute

// Option customises a correlator.
type Option func(*Correlator)

// WithNotifier attaches the channel pending requests are broadcast on.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Correlator) { c.notifier = n }
}

// WithEvents attaches a fan-out queue for request lifecycle events.
func WithEvents(q messaging.Queue[Event]) Option {
	return func(c *Correlator) { c.events = q }
}

// WithDefaultTimeout overrides the fallback decision timeout.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Correlator) {
		if timeout > 0 {
			c.defaultTimeout = timeout
		}
	}
}

// Correlator owns the registry of in-flight approval requests and settles
// each one exactly once, whichever of resolution, timeout or cancellation
// fires first.
type Correlator struct {
	auditor        audit.Service
	notifier       notify.Notifier
	events         messaging.Queue[Event]
	registry       *registry
	defaultTimeout time.Duration
}

// New creates a correlator. The audit service is mandatory: a pending
// request that cannot be audited is never registered.
func New(auditor audit.Service, options ...Option) *Correlator {
	ret := &Correlator{
		auditor:        auditor,
		registry:       newRegistry(),
		defaultTimeout: DefaultTimeout,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Request registers req as pending and suspends the caller until a decision
// arrives, the timeout elapses, or ctx is cancelled. Timeout delivers a
// Deny outcome; cancellation returns ctx's error, since the requester
// withdrew interest rather than being denied.
func (c *Correlator) Request(ctx context.Context, req *Request) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("approval: nil request")
	}
	// Never register on behalf of a caller that is already gone.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("approval request aborted: %w", err)
	}
	if req.ID == "" {
		req.ID = idgen.New()
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	req.Timeout = timeout
	req.CreatedAt = clock.Now()
	req.ExpiresAt = req.CreatedAt.Add(timeout)

	entry := &pending{
		request: req,
		done:    make(chan *Outcome, 1),
		timeout: timeout,
	}
	c.registry.arm(req.ID, entry, func() *time.Timer {
		return time.AfterFunc(timeout, func() { c.expire(req.ID) })
	})

	if err := c.recordPending(ctx, req); err != nil {
		if p, ok := c.registry.take(req.ID); ok {
			p.timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
		}
		// A terminal trigger won between the failed write and the
		// deregistration attempt; its outcome stands.
		return <-entry.done, nil
	}

	c.broadcast(ctx, req)
	c.publish(ctx, TopicRequestCreated, req)

	select {
	case outcome := <-entry.done:
		return outcome, nil
	case <-ctx.Done():
		p, ok := c.registry.take(req.ID)
		if !ok {
			// Lost the race to a resolution or timeout that has
			// already settled this request.
			return <-entry.done, nil
		}
		p.timer.Stop()
		c.recordTerminal(context.Background(), p.request, audit.DispositionAborted, ctx.Err().Error(), "", clock.Now().Sub(p.request.CreatedAt))
		return nil, fmt.Errorf("approval %v aborted: %w", req.ID, ctx.Err())
	}
}

// Resolve settles the pending approval identified by id with a human
// decision. It is safe to call from any goroutine at any time; once a
// request has been settled by any trigger, further calls return ErrNotFound.
func (c *Correlator) Resolve(ctx context.Context, id string, decision *Decision) error {
	if id == "" {
		return fmt.Errorf("approval %q: %w", id, ErrNotFound)
	}
	if decision == nil {
		return fmt.Errorf("approval %v: nil decision", id)
	}
	p, ok := c.registry.take(id)
	if !ok {
		return fmt.Errorf("approval %v: %w", id, ErrNotFound)
	}
	p.timer.Stop()

	outcome := c.translate(p.request, decision)
	disposition := audit.DispositionApproved
	switch decision.Kind {
	case DecisionDenied:
		disposition = audit.DispositionDenied
	case DecisionModified:
		disposition = audit.DispositionModified
	}
	c.recordTerminal(ctx, p.request, disposition, decision.Reason, decision.DecidedBy, clock.Now().Sub(p.request.CreatedAt))
	c.publish(ctx, TopicRequestResolved, decision)

	p.done <- outcome
	return nil
}

// ListPending returns a snapshot of requests still awaiting a decision,
// optionally narrowed by filters.
func (c *Correlator) ListPending(ctx context.Context, filters ...PendingFilter) ([]*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := c.registry.list()
	if len(filters) == 0 {
		return all, nil
	}
	result := make([]*Request, 0, len(all))
outer:
	for _, r := range all {
		for _, filter := range filters {
			if !filter(r) {
				continue outer
			}
		}
		result = append(result, r)
	}
	return result, nil
}

// Size returns the number of in-flight pending approvals.
func (c *Correlator) Size() int { return c.registry.size() }

// expire is the timeout trigger. The suspended caller receives a plain Deny
// so the proposing agent can react to it like any other refusal.
func (c *Correlator) expire(id string) {
	p, ok := c.registry.take(id)
	if !ok {
		return
	}
	elapsed := clock.Now().Sub(p.request.CreatedAt)
	ctx := context.Background()
	reason := fmt.Sprintf("approval timed out after %s", p.timeout)
	c.recordTerminal(ctx, p.request, audit.DispositionTimedOut, reason, "", elapsed)
	c.publish(ctx, TopicRequestExpired, p.request)

	p.done <- &Outcome{Behavior: BehaviorDeny, Reason: reason}
}

func (c *Correlator) translate(req *Request, decision *Decision) *Outcome {
	switch decision.Kind {
	case DecisionDenied:
		reason := decision.Reason
		if reason == "" {
			reason = "denied"
		}
		return &Outcome{Behavior: BehaviorDeny, Reason: reason, Interrupt: true}
	default: // approved or modified
		input := req.Input
		if len(decision.ModifiedInput) > 0 {
			input = decision.ModifiedInput
		}
		return &Outcome{Behavior: BehaviorAllow, UpdatedInput: input}
	}
}

func (c *Correlator) recordPending(ctx context.Context, req *Request) error {
	if c.auditor == nil {
		return fmt.Errorf("no audit service configured")
	}
	return c.auditor.RecordPending(ctx, &audit.Entry{
		ID:         idgen.New(),
		ApprovalID: req.ID,
		Kind:       "pending",
		TenantID:   req.TenantID,
		SessionID:  req.SessionID,
		ToolName:   req.ToolName,
		Input:      req.Input,
		RiskLevel:  req.RiskLevel,
		CreatedAt:  req.CreatedAt,
	})
}

func (c *Correlator) recordTerminal(ctx context.Context, req *Request, disposition audit.Disposition, reason, decidedBy string, elapsed time.Duration) {
	if c.auditor == nil {
		return
	}
	err := c.auditor.RecordTerminal(ctx, &audit.Entry{
		ID:          idgen.New(),
		ApprovalID:  req.ID,
		Kind:        "terminal",
		TenantID:    req.TenantID,
		SessionID:   req.SessionID,
		ToolName:    req.ToolName,
		RiskLevel:   req.RiskLevel,
		Disposition: disposition,
		Reason:      reason,
		DecidedBy:   decidedBy,
		Elapsed:     elapsed,
		CreatedAt:   clock.Now(),
	})
	if err != nil {
		log.Printf("[WARN] failed to audit %v disposition for approval %v: %v", disposition, req.ID, err)
	}
}

func (c *Correlator) broadcast(ctx context.Context, req *Request) {
	if c.notifier == nil {
		return
	}
	summary := &notify.Summary{
		ApprovalID: req.ID,
		TenantID:   req.TenantID,
		SessionID:  req.SessionID,
		ToolName:   req.ToolName,
		RiskLevel:  req.RiskLevel,
		Reasoning:  req.Reasoning,
		Input:      req.Input,
		CreatedAt:  req.CreatedAt,
		ExpiresAt:  req.ExpiresAt,
	}
	if err := c.notifier.BroadcastPending(ctx, summary); err != nil {
		log.Printf("[WARN] failed to broadcast pending approval %v: %v", req.ID, err)
	}
}

func (c *Correlator) publish(ctx context.Context, topic string, data interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, &Event{Topic: topic, Data: data}); err != nil {
		log.Printf("[WARN] failed to publish %v event: %v", topic, err)
	}
}
