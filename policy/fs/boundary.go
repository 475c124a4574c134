// Package fs provides a policy boundary backed by YAML documents, one file
// per tenant, accessible through any storage scheme viant/afs understands.
package fs

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"gopkg.in/yaml.v3"

	"github.com/opsgate/opsgate/policy"
)

// Boundary stores each tenant's policies as <basePath>/<tenant>.yaml.
type Boundary struct {
	basePath string
	fs       afs.Service
	mu       sync.Mutex
}

// New creates a filesystem policy boundary rooted at basePath.
func New(fs afs.Service, basePath string) (*Boundary, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	return &Boundary{basePath: basePath, fs: fs}, nil
}

// FetchPolicies loads and parses the tenant's policy document. A missing
// document yields an empty set, not an error.
func (b *Boundary) FetchPolicies(ctx context.Context, tenantID string) ([]*policy.Policy, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}
	location := b.tenantPath(tenantID)
	exists, err := b.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check policy document %s: %w", location, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := b.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy document %s: %w", location, err)
	}
	var policies []*policy.Policy
	if err := yaml.Unmarshal(data, &policies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy document %s: %w", location, err)
	}
	for _, p := range policies {
		if p.TenantID == "" {
			p.TenantID = tenantID
		}
	}
	return policies, nil
}

// UpsertPolicy applies the patch to the tenant document and writes it back.
func (b *Boundary) UpsertPolicy(ctx context.Context, tenantID, toolName string, patch *policy.Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	policies, err := b.FetchPolicies(ctx, tenantID)
	if err != nil {
		return err
	}
	target := &policy.Policy{TenantID: tenantID, ToolName: toolName}
	if err := policy.Normalize(target); err != nil {
		return err
	}
	updated := false
	for i, existing := range policies {
		if existing.ToolName == toolName {
			patch.Apply(existing)
			policies[i] = existing
			updated = true
			break
		}
	}
	if !updated {
		patch.Apply(target)
		policies = append(policies, target)
	}

	data, err := yaml.Marshal(policies)
	if err != nil {
		return fmt.Errorf("failed to marshal policy document for tenant %s: %w", tenantID, err)
	}
	location := b.tenantPath(tenantID)
	if err := b.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write policy document %s: %w", location, err)
	}
	return nil
}

func (b *Boundary) tenantPath(tenantID string) string {
	return path.Join(b.basePath, fmt.Sprintf("%s.yaml", tenantID))
}

var _ policy.Boundary = (*Boundary)(nil)
