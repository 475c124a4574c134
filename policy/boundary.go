package policy

import "context"

// Boundary abstracts the external system of record for tenant policies
// (a database, a config service, files). Implementations may fail; the
// Store recovers by treating the tenant as policy-less, which forces every
// tool call through requires-approval.
type Boundary interface {
	// FetchPolicies returns all policies for a tenant. Returned values are
	// already normalised (see Normalize).
	FetchPolicies(ctx context.Context, tenantID string) ([]*Policy, error)

	// UpsertPolicy creates or patches the tenant policy for toolName.
	UpsertPolicy(ctx context.Context, tenantID, toolName string, patch *Patch) error
}
