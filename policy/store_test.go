package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsgate/opsgate/policy"
	policymem "github.com/opsgate/opsgate/policy/memory"
	"github.com/opsgate/opsgate/risk"
)

// flakyBoundary fails every fetch until recovered.
type flakyBoundary struct {
	failing  bool
	policies []*policy.Policy
}

func (b *flakyBoundary) FetchPolicies(context.Context, string) ([]*policy.Policy, error) {
	if b.failing {
		return nil, errors.New("backend unavailable")
	}
	return b.policies, nil
}

func (b *flakyBoundary) UpsertPolicy(context.Context, string, string, *policy.Patch) error {
	return nil
}

func TestStore_FetchFailureFailsClosed(t *testing.T) {
	ctx := context.Background()
	boundary := &flakyBoundary{failing: true, policies: []*policy.Policy{{
		ID:          "acme/Bash",
		TenantID:    "acme",
		ToolName:    "Bash",
		AutoApprove: true,
	}}}
	store := policy.NewStore(boundary)

	// A failing boundary yields an empty set, not an error.
	assert.Empty(t, store.Policies(ctx, "acme"))

	// The tenant stays policy-less until an explicit reload.
	boundary.failing = false
	assert.Empty(t, store.Policies(ctx, "acme"))

	store.Load(ctx, "acme")
	assert.Len(t, store.Policies(ctx, "acme"), 1)
}

func TestStore_LazyLoadAndInvalidate(t *testing.T) {
	ctx := context.Background()
	boundary := policymem.New()
	require.NoError(t, boundary.Seed(ctx, &policy.Policy{
		TenantID:    "acme",
		ToolName:    "Write",
		AutoApprove: true,
	}))
	store := policy.NewStore(boundary)

	policies := store.Policies(ctx, "acme")
	require.Len(t, policies, 1)
	assert.Equal(t, "acme/Write", policies[0].ID)

	// A seed after loading is invisible until the cache is invalidated.
	require.NoError(t, boundary.Seed(ctx, &policy.Policy{
		TenantID:    "acme",
		ToolName:    "Edit",
		AutoApprove: true,
	}))
	assert.Len(t, store.Policies(ctx, "acme"), 1)

	store.Invalidate("acme")
	assert.Len(t, store.Policies(ctx, "acme"), 2)
}

func TestStore_UpdateWritesThroughAndReloads(t *testing.T) {
	ctx := context.Background()
	boundary := policymem.New()
	store := policy.NewStore(boundary)

	autoApprove := true
	threshold := risk.LevelMedium
	require.NoError(t, store.Update(ctx, "acme", "Write", &policy.Patch{
		AutoApprove:   &autoApprove,
		RiskThreshold: &threshold,
	}))

	policies := store.Policies(ctx, "acme")
	require.Len(t, policies, 1)
	assert.True(t, policies[0].AutoApprove)
	assert.EqualValues(t, risk.LevelMedium, policies[0].RiskThreshold)
}

func TestStore_RefreshInterval(t *testing.T) {
	ctx := context.Background()
	boundary := policymem.New()
	store := policy.NewStore(boundary, policy.WithRefreshInterval(10*time.Millisecond))

	assert.Empty(t, store.Policies(ctx, "acme"))

	require.NoError(t, boundary.Seed(ctx, &policy.Policy{
		TenantID:    "acme",
		ToolName:    "Bash",
		AutoApprove: true,
	}))

	// After the interval the next read reloads from the boundary.
	assert.Eventually(t, func() bool {
		return len(store.Policies(ctx, "acme")) == 1
	}, time.Second, 5*time.Millisecond)
}
