package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsgate/opsgate/internal/clock"
	"github.com/opsgate/opsgate/risk"
)

// Policy is a tenant-scoped override of a tool's default risk disposition.
// Instances are constructed and validated at the boundary edge so internal
// code never handles partially-typed external records.
type Policy struct {
	ID               string            `json:"id" yaml:"id"`
	TenantID         string            `json:"tenantId" yaml:"tenantId"`
	ToolName         string            `json:"toolName" yaml:"toolName"`
	AutoApprove      bool              `json:"autoApprove" yaml:"autoApprove"`
	RequiresApproval bool              `json:"requiresApproval" yaml:"requiresApproval"`
	RiskThreshold    risk.Level        `json:"riskThreshold,omitempty" yaml:"riskThreshold,omitempty"`
	Conditions       map[string]string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	ExpiresAt        *time.Time        `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

// Expired reports whether the policy has an expiry in the past.
func (p *Policy) Expired() bool {
	return p.ExpiresAt != nil && clock.Now().After(*p.ExpiresAt)
}

// Matches reports whether all policy conditions hold against the supplied
// tool input. A policy without conditions matches any input; a condition
// that fails to parse never matches (fail closed).
func (p *Policy) Matches(input map[string]interface{}) bool {
	if len(p.Conditions) == 0 {
		return true
	}
	for field, expr := range p.Conditions {
		condition, err := ParseCondition([]byte(expr))
		if err != nil {
			return false
		}
		actual, ok := input[field]
		if !ok {
			return false
		}
		if !condition.Matches(actual) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so cached policies can be handed out without
// aliasing the cache.
func (p *Policy) Clone() *Policy {
	clone := *p
	if p.Conditions != nil {
		clone.Conditions = make(map[string]string, len(p.Conditions))
		for k, v := range p.Conditions {
			clone.Conditions[k] = v
		}
	}
	if p.ExpiresAt != nil {
		expiry := *p.ExpiresAt
		clone.ExpiresAt = &expiry
	}
	return &clone
}

// Normalize validates a policy row arriving from an external boundary and
// fills derivable fields. It returns an error describing the first invalid
// field encountered.
func Normalize(p *Policy) error {
	if p == nil {
		return fmt.Errorf("policy: nil policy")
	}
	p.TenantID = strings.TrimSpace(p.TenantID)
	p.ToolName = strings.TrimSpace(p.ToolName)
	if p.TenantID == "" {
		return fmt.Errorf("policy: missing tenantId")
	}
	if p.ToolName == "" {
		return fmt.Errorf("policy: missing toolName")
	}
	if p.RiskThreshold != "" {
		switch p.RiskThreshold {
		case risk.LevelLow, risk.LevelMedium, risk.LevelHigh:
		default:
			return fmt.Errorf("policy: invalid riskThreshold %q", p.RiskThreshold)
		}
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("%s/%s", p.TenantID, p.ToolName)
	}
	return nil
}

// Patch carries a partial policy update; nil fields are left unchanged.
type Patch struct {
	AutoApprove      *bool             `json:"autoApprove,omitempty" yaml:"autoApprove,omitempty"`
	RequiresApproval *bool             `json:"requiresApproval,omitempty" yaml:"requiresApproval,omitempty"`
	RiskThreshold    *risk.Level       `json:"riskThreshold,omitempty" yaml:"riskThreshold,omitempty"`
	Conditions       map[string]string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	ExpiresAt        *time.Time        `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

// Apply merges the patch into the policy.
func (p *Patch) Apply(target *Policy) {
	if p == nil || target == nil {
		return
	}
	if p.AutoApprove != nil {
		target.AutoApprove = *p.AutoApprove
	}
	if p.RequiresApproval != nil {
		target.RequiresApproval = *p.RequiresApproval
	}
	if p.RiskThreshold != nil {
		target.RiskThreshold = *p.RiskThreshold
	}
	if p.Conditions != nil {
		target.Conditions = p.Conditions
	}
	if p.ExpiresAt != nil {
		target.ExpiresAt = p.ExpiresAt
	}
}
