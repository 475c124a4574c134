// Package risk provides the static classification of tools into risk tiers
// and default dispositions. Classification is the lowest-priority input to a
// permission decision – explicit tenant policy always outranks it.
package risk

import "time"

// Level represents how consequential a tool's side effects are.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Ordinal returns a comparable rank for a level; unknown levels rank highest
// so that a typo in configuration never loosens a threshold.
func (l Level) Ordinal() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	}
	return 3
}

// AtLeast reports whether l is at or above the supplied threshold.
func (l Level) AtLeast(threshold Level) bool {
	return l.Ordinal() >= threshold.Ordinal()
}

// Profile describes the static risk disposition of a single tool. Exactly
// one of AlwaysAllow, AlwaysDeny and RequiresApproval must be set; a profile
// violating that invariant is a configuration error and is treated as
// requires-approval.
type Profile struct {
	ToolName         string        `json:"toolName" yaml:"toolName"`
	Level            Level         `json:"riskLevel" yaml:"riskLevel"`
	AlwaysAllow      bool          `json:"alwaysAllow,omitempty" yaml:"alwaysAllow,omitempty"`
	AlwaysDeny       bool          `json:"alwaysDeny,omitempty" yaml:"alwaysDeny,omitempty"`
	RequiresApproval bool          `json:"requiresApproval,omitempty" yaml:"requiresApproval,omitempty"`
	ApprovalTimeout  time.Duration `json:"approvalTimeout,omitempty" yaml:"approvalTimeout,omitempty"`
	AuditRequired    bool          `json:"auditRequired,omitempty" yaml:"auditRequired,omitempty"`
}

// Ambiguous reports whether the profile violates the single-disposition
// invariant.
func (p *Profile) Ambiguous() bool {
	dispositions := 0
	if p.AlwaysAllow {
		dispositions++
	}
	if p.AlwaysDeny {
		dispositions++
	}
	if p.RequiresApproval {
		dispositions++
	}
	return dispositions != 1
}
