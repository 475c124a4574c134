package policy

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/opsgate/opsgate/internal/clock"
)

// Store caches per-tenant policy lists loaded from the Boundary.
//
// Reads never block on the boundary once a tenant is loaded: a reload
// replaces the tenant's list atomically, so concurrent readers see either
// the old or the new list, never a partial one. A fetch failure leaves the
// tenant with an empty policy set – the evaluator then falls back to static
// classification, which fails closed for anything mutating.
type Store struct {
	boundary Boundary

	// refreshInterval > 0 enables TTL-based reload on access; zero keeps
	// the reference behaviour of refreshing only on explicit update.
	refreshInterval time.Duration

	mu       sync.RWMutex
	cache    map[string][]*Policy
	loadedAt map[string]time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithRefreshInterval enables periodic cache refresh; policies older than
// the interval are reloaded on next access.
func WithRefreshInterval(interval time.Duration) StoreOption {
	return func(s *Store) { s.refreshInterval = interval }
}

// NewStore creates a policy store backed by the supplied boundary.
func NewStore(boundary Boundary, options ...StoreOption) *Store {
	ret := &Store{
		boundary: boundary,
		cache:    make(map[string][]*Policy),
		loadedAt: make(map[string]time.Time),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Load fetches the tenant's policies through the boundary and replaces the
// cached list. Boundary failures are absorbed: the tenant ends up with an
// empty policy set and the error is logged, never propagated to evaluation.
func (s *Store) Load(ctx context.Context, tenantID string) {
	policies, err := s.boundary.FetchPolicies(ctx, tenantID)
	if err != nil {
		log.Printf("policy: failed to load policies for tenant %s, failing closed: %v", tenantID, err)
		policies = nil
	}
	valid := make([]*Policy, 0, len(policies))
	for _, p := range policies {
		if normErr := Normalize(p); normErr != nil {
			log.Printf("policy: dropping invalid policy row for tenant %s: %v", tenantID, normErr)
			continue
		}
		valid = append(valid, p)
	}
	s.mu.Lock()
	s.cache[tenantID] = valid
	s.loadedAt[tenantID] = clock.Now()
	s.mu.Unlock()
}

// Policies returns the cached policy list for a tenant, loading it lazily on
// first reference (and re-loading it when a refresh interval is configured
// and has elapsed).
func (s *Store) Policies(ctx context.Context, tenantID string) []*Policy {
	s.mu.RLock()
	policies, loaded := s.cache[tenantID]
	loadedAt := s.loadedAt[tenantID]
	s.mu.RUnlock()

	stale := s.refreshInterval > 0 && loaded && clock.Now().Sub(loadedAt) > s.refreshInterval
	if !loaded || stale {
		s.Load(ctx, tenantID)
		s.mu.RLock()
		policies = s.cache[tenantID]
		s.mu.RUnlock()
	}
	return policies
}

// Update writes a policy patch through the boundary and reloads the
// tenant's cache before returning, so subsequent evaluations observe it.
func (s *Store) Update(ctx context.Context, tenantID, toolName string, patch *Patch) error {
	if err := s.boundary.UpsertPolicy(ctx, tenantID, toolName, patch); err != nil {
		return fmt.Errorf("policy: failed to update policy %s/%s: %w", tenantID, toolName, err)
	}
	s.Load(ctx, tenantID)
	return nil
}

// Invalidate drops the cached list for a tenant, forcing a reload on next
// access.
func (s *Store) Invalidate(tenantID string) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	delete(s.loadedAt, tenantID)
	s.mu.Unlock()
}
