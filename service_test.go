package opsgate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opsgate "github.com/opsgate/opsgate"
	"github.com/opsgate/opsgate/policy"
	policymem "github.com/opsgate/opsgate/policy/memory"
	"github.com/opsgate/opsgate/risk"
	"github.com/opsgate/opsgate/service/approval"
	"github.com/opsgate/opsgate/service/audit"
	auditmem "github.com/opsgate/opsgate/service/audit/memory"
)

func boolPtr(v bool) *bool { return &v }

func seededBoundary(t *testing.T, policies ...*policy.Policy) *policymem.Boundary {
	t.Helper()
	boundary := policymem.New()
	require.NoError(t, boundary.Seed(context.Background(), policies...))
	return boundary
}

// Scenario: a read-only tool with no tenant policy is allowed immediately,
// without a pending entry or a pending audit record.
func TestService_ReadOnlyBypass(t *testing.T) {
	ctx := context.Background()
	sink := auditmem.New()
	service := opsgate.New(opsgate.WithAuditService(sink))

	input := map[string]interface{}{"path": "/etc/hosts"}
	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "Read",
		Input:    input,
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorAllow, outcome.Behavior)
	assert.Equal(t, input, outcome.UpdatedInput)

	pending, err := service.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := sink.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Scenario: a high-risk tool with no tenant policy and no resolution times
// out into a denial.
func TestService_TimeoutDenies(t *testing.T) {
	ctx := context.Background()
	service := opsgate.New()

	started := time.Now()
	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "Bash",
		Input:    map[string]interface{}{"command": "rm -rf /tmp/scratch"},
		Timeout:  100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorDeny, outcome.Behavior)
	assert.Contains(t, outcome.Reason, "timed out")
	assert.True(t, time.Since(started) >= 100*time.Millisecond)

	pending, _ := service.ListPending(ctx)
	assert.Empty(t, pending)
}

// Scenario: an external denial settles the suspended call; a duplicate
// resolution gets not-found and cannot alter the delivered outcome.
func TestService_ExternalDenial(t *testing.T) {
	ctx := context.Background()
	service := opsgate.New()

	type result struct {
		outcome *approval.Outcome
		err     error
	}
	results := make(chan result, 1)
	go func() {
		outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
			TenantID: "acme",
			ToolName: "Write",
			Input:    map[string]interface{}{"path": "/etc/network/interfaces"},
			Timeout:  time.Second,
		})
		results <- result{outcome, err}
	}()

	var pending []*approval.Request
	require.Eventually(t, func() bool {
		pending, _ = service.ListPending(ctx)
		return len(pending) == 1
	}, time.Second, time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	id := pending[0].ID
	require.NoError(t, service.Resolve(ctx, id, &approval.Decision{
		Kind:   approval.DecisionDenied,
		Reason: "Too risky",
	}))

	err := service.Resolve(ctx, id, &approval.Decision{Kind: approval.DecisionApproved})
	assert.True(t, errors.Is(err, approval.ErrNotFound))

	settled := <-results
	require.NoError(t, settled.err)
	assert.EqualValues(t, approval.BehaviorDeny, settled.outcome.Behavior)
	assert.Equal(t, "Too risky", settled.outcome.Reason)
}

// Scenario: cancellation rejects the suspended call rather than denying it.
func TestService_CancellationRejects(t *testing.T) {
	service := opsgate.New()
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		outcome *approval.Outcome
		err     error
	}
	results := make(chan result, 1)
	go func() {
		outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
			TenantID: "acme",
			ToolName: "Edit",
			Input:    map[string]interface{}{"path": "/etc/resolv.conf"},
			Timeout:  time.Second,
		})
		results <- result{outcome, err}
	}()

	require.Eventually(t, func() bool {
		pending, _ := service.ListPending(context.Background())
		return len(pending) == 1
	}, time.Second, time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	cancel()

	settled := <-results
	require.Error(t, settled.err)
	assert.True(t, errors.Is(settled.err, context.Canceled))
	assert.Nil(t, settled.outcome)

	pending, _ := service.ListPending(context.Background())
	assert.Empty(t, pending)
}

func TestService_UnknownToolFailsClosed(t *testing.T) {
	ctx := context.Background()
	service := opsgate.New()

	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "never-seen-before",
		Timeout:  50 * time.Millisecond,
	})
	require.NoError(t, err)
	// No explicit autoApprove policy, so the unknown tool must end up
	// deferred and then denied on timeout, never allowed.
	assert.EqualValues(t, approval.BehaviorDeny, outcome.Behavior)
}

func TestService_AutoApprovePolicy(t *testing.T) {
	ctx := context.Background()
	boundary := seededBoundary(t, &policy.Policy{
		TenantID:      "acme",
		ToolName:      "Bash",
		AutoApprove:   true,
		RiskThreshold: risk.LevelHigh,
	})
	service := opsgate.New(opsgate.WithPolicyBoundary(boundary))

	input := map[string]interface{}{"command": "show interfaces"}
	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "Bash",
		Input:    input,
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorAllow, outcome.Behavior)
	assert.Equal(t, input, outcome.UpdatedInput)

	pending, _ := service.ListPending(ctx)
	assert.Empty(t, pending)
}

// An explicit tenant denial outranks an always-allow classification, and is
// audited with its own disposition.
func TestService_ExplicitDenyOutranksClassification(t *testing.T) {
	ctx := context.Background()
	sink := auditmem.New()
	boundary := seededBoundary(t, &policy.Policy{
		TenantID:         "acme",
		ToolName:         "Read",
		RequiresApproval: false,
	})
	service := opsgate.New(
		opsgate.WithPolicyBoundary(boundary),
		opsgate.WithAuditService(sink),
	)

	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "Read",
		Input:    map[string]interface{}{"path": "/etc/shadow"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorDeny, outcome.Behavior)

	entries, err := sink.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, audit.DispositionPolicyDenied, entries[0].Disposition)
}

// The policy denial only binds the tenant that wrote it.
func TestService_PolicyIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	boundary := seededBoundary(t, &policy.Policy{
		TenantID:         "acme",
		ToolName:         "Read",
		RequiresApproval: false,
	})
	service := opsgate.New(opsgate.WithPolicyBoundary(boundary))

	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "globex",
		ToolName: "Read",
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorAllow, outcome.Behavior)
}

func TestService_UpdatePolicyTakesEffect(t *testing.T) {
	ctx := context.Background()
	boundary := policymem.New()
	service := opsgate.New(opsgate.WithPolicyBoundary(boundary))

	// Without a policy, Bash defers; with autoApprove it allows.
	require.NoError(t, service.UpdatePolicy(ctx, "acme", "Bash", &policy.Patch{
		AutoApprove:   boolPtr(true),
		RiskThreshold: riskPtr(risk.LevelHigh),
	}))

	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "Bash",
		Input:    map[string]interface{}{"command": "uptime"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorAllow, outcome.Behavior)
}

func riskPtr(level risk.Level) *risk.Level { return &level }

func TestService_AlwaysDenyTool(t *testing.T) {
	ctx := context.Background()
	service := opsgate.New()

	outcome, err := service.CanUse(ctx, &opsgate.ToolRequest{
		TenantID: "acme",
		ToolName: "factory_reset",
	})
	require.NoError(t, err)
	assert.EqualValues(t, approval.BehaviorDeny, outcome.Behavior)
}
