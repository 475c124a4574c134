package approval

import (
	"context"
	"errors"
	"time"
)

// PendingFilter narrows a ListPending snapshot.
type PendingFilter func(r *Request) bool

// WithTenant keeps requests belonging to tenantID.
func WithTenant(tenantID string) PendingFilter {
	return func(r *Request) bool { return r.TenantID == tenantID }
}

// WithSession keeps requests belonging to sessionID.
func WithSession(sessionID string) PendingFilter {
	return func(r *Request) bool { return r.SessionID == sessionID }
}

// WithTool keeps requests for the named tool.
func WithTool(toolName string) PendingFilter {
	return func(r *Request) bool { return r.ToolName == toolName }
}

// DecisionFunc decides what to do with a pending request. Return nil to
// leave the request pending.
type DecisionFunc func(r *Request) *Decision

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every request. It returns stop() – call it (or cancel ctx) to exit.
// Intended for tests and headless operation.
func AutoDecider(ctx context.Context, c *Correlator, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				reqs, _ := c.ListPending(ctx)
				for _, r := range reqs {
					decision := fn(r)
					if decision == nil {
						continue
					}
					if err := c.Resolve(ctx, r.ID, decision); err != nil && !errors.Is(err, ErrNotFound) {
						return
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests.
func AutoApprove(ctx context.Context, c *Correlator, interval time.Duration) func() {
	return AutoDecider(ctx, c,
		func(*Request) *Decision { return &Decision{Kind: DecisionApproved, DecidedBy: "auto"} }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason.
func AutoReject(ctx context.Context, c *Correlator, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, c,
		func(*Request) *Decision {
			return &Decision{Kind: DecisionDenied, Reason: reason, DecidedBy: "auto"}
		}, interval)
}
