package approval

import (
	"sync"
	"time"
)

// pending is the live, in-memory record of a suspended tool invocation. It
// is owned exclusively by the correlator; the done channel is buffered so a
// terminal trigger never blocks on a caller that lost a cancellation race.
type pending struct {
	request *Request
	done    chan *Outcome
	timer   *time.Timer
	timeout time.Duration
}

// registry holds every in-flight pending approval. Removal from the map is
// the single point of truth for a terminal transition: whichever trigger
// takes the entry first wins, and the other triggers become no-ops.
type registry struct {
	mu      sync.Mutex
	entries map[string]*pending
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*pending)}
}

// arm installs p and starts its timer in one critical section. Any trigger
// that takes the entry afterwards observes a fully initialized timer, and a
// timer that fires immediately blocks on the mutex until p is registered.
func (r *registry) arm(id string, p *pending, start func() *time.Timer) {
	r.mu.Lock()
	r.entries[id] = p
	p.timer = start()
	r.mu.Unlock()
}

// take removes and returns the entry for id. The caller that receives
// ok=true owns the terminal transition.
func (r *registry) take(id string) (*pending, bool) {
	r.mu.Lock()
	p, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	return p, ok
}

func (r *registry) list() []*Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*Request, 0, len(r.entries))
	for _, p := range r.entries {
		result = append(result, p.request)
	}
	return result
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
