package decision

import (
	"context"
	"errors"
	"log"

	"github.com/opsgate/opsgate/service/approval"
	"github.com/opsgate/opsgate/service/messaging"
)

// Resolver settles a pending approval by id. *approval.Correlator satisfies
// it.
type Resolver interface {
	Resolve(ctx context.Context, id string, decision *approval.Decision) error
}

// Listener consumes decision messages from a queue and forwards validated
// ones to the resolver. Stale or duplicate ids surface approval.ErrNotFound,
// which is acknowledged rather than retried: the decision can never apply.
type Listener struct {
	queue    messaging.Queue[Message]
	resolver Resolver
	cancel   context.CancelFunc
	stopped  chan struct{}
}

// NewListener creates a listener bridging queue to resolver.
func NewListener(queue messaging.Queue[Message], resolver Resolver) *Listener {
	return &Listener{queue: queue, resolver: resolver}
}

// Start begins consuming in a background goroutine until ctx is cancelled or
// Stop is called.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.stopped = make(chan struct{})
	go func() {
		defer close(l.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			message, err := l.queue.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[WARN] failed to consume decision message: %v", err)
				continue
			}
			if message == nil {
				continue
			}
			l.handle(ctx, message)
		}
	}()
}

// Stop terminates the consume loop and waits for it to exit.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.stopped != nil {
		<-l.stopped
	}
}

func (l *Listener) handle(ctx context.Context, message messaging.Message[Message]) {
	payload := message.T()
	if err := payload.Validate(); err != nil {
		log.Printf("[WARN] rejected decision message: %v", err)
		_ = message.Nack(err)
		return
	}
	err := l.resolver.Resolve(ctx, payload.ApprovalID, payload.Normalize())
	switch {
	case err == nil:
		_ = message.Ack()
	case errors.Is(err, approval.ErrNotFound):
		// Already settled or never existed; retrying cannot help.
		log.Printf("[WARN] decision for unknown approval %v dropped", payload.ApprovalID)
		_ = message.Ack()
	default:
		_ = message.Nack(err)
	}
}
