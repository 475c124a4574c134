// Package memory provides an in-memory policy boundary, useful for tests
// and single-instance deployments.
package memory

import (
	"context"

	"github.com/opsgate/opsgate/policy"
	"github.com/opsgate/opsgate/service/dao"
	"github.com/opsgate/opsgate/service/dao/store"
)

// Boundary keeps policies in a generic in-memory store keyed by policy id.
type Boundary struct {
	policies dao.Service[string, policy.Policy]
}

func policyKey(p *policy.Policy) string { return p.ID }

// New creates an empty in-memory boundary.
func New() *Boundary {
	return &Boundary{policies: store.NewMemoryStore[string, policy.Policy](policyKey)}
}

// Seed inserts policies directly, bypassing patch semantics. Invalid rows
// are rejected.
func (b *Boundary) Seed(ctx context.Context, policies ...*policy.Policy) error {
	for _, p := range policies {
		if err := policy.Normalize(p); err != nil {
			return err
		}
		if err := b.policies.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// FetchPolicies returns clones of all policies belonging to the tenant.
func (b *Boundary) FetchPolicies(ctx context.Context, tenantID string) ([]*policy.Policy, error) {
	all, err := b.policies.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*policy.Policy
	for _, p := range all {
		if p.TenantID == tenantID {
			ret = append(ret, p.Clone())
		}
	}
	return ret, nil
}

// UpsertPolicy creates or patches the tenant policy for toolName.
func (b *Boundary) UpsertPolicy(ctx context.Context, tenantID, toolName string, patch *policy.Patch) error {
	target := &policy.Policy{TenantID: tenantID, ToolName: toolName}
	if err := policy.Normalize(target); err != nil {
		return err
	}
	if existing, _ := b.policies.Load(ctx, target.ID); existing != nil {
		target = existing.Clone()
	}
	patch.Apply(target)
	return b.policies.Save(ctx, target)
}

var _ policy.Boundary = (*Boundary)(nil)
