package risk

import (
	"log"
	"time"
)

// DefaultApprovalTimeout applies when a profile does not specify one.
const DefaultApprovalTimeout = 5 * time.Minute

// Classifier maps tool names to static risk profiles. It is a pure lookup
// over an immutable table built at construction time; unknown tools never
// default to allow.
type Classifier struct {
	profiles map[string]*Profile
}

// NewClassifier builds a classifier from the supplied profiles. Ambiguous
// profiles are flagged via log and coerced to requires-approval so that a
// misconfigured table fails closed rather than open.
func NewClassifier(profiles ...*Profile) *Classifier {
	table := make(map[string]*Profile, len(profiles))
	for _, profile := range profiles {
		if profile == nil || profile.ToolName == "" {
			continue
		}
		entry := *profile
		if entry.Ambiguous() {
			log.Printf("risk: profile for tool %q has ambiguous disposition, treating as requires-approval", entry.ToolName)
			entry.AlwaysAllow = false
			entry.AlwaysDeny = false
			entry.RequiresApproval = true
		}
		if entry.ApprovalTimeout <= 0 {
			entry.ApprovalTimeout = DefaultApprovalTimeout
		}
		table[entry.ToolName] = &entry
	}
	return &Classifier{profiles: table}
}

// Classify returns the risk profile for toolName. A never-seen tool resolves
// to a high-risk, requires-approval, audit-required profile.
func (c *Classifier) Classify(toolName string) *Profile {
	if profile, ok := c.profiles[toolName]; ok {
		return profile
	}
	return &Profile{
		ToolName:         toolName,
		Level:            LevelHigh,
		RequiresApproval: true,
		ApprovalTimeout:  DefaultApprovalTimeout,
		AuditRequired:    true,
	}
}

// DefaultProfiles returns the built-in tool table: the common agent tools
// plus the network-operations tools the engine was built to gate.
func DefaultProfiles() []*Profile {
	return []*Profile{
		// read-only agent tools
		{ToolName: "Read", Level: LevelLow, AlwaysAllow: true},
		{ToolName: "Grep", Level: LevelLow, AlwaysAllow: true},
		{ToolName: "Glob", Level: LevelLow, AlwaysAllow: true},
		{ToolName: "LS", Level: LevelLow, AlwaysAllow: true},

		// mutating agent tools
		{ToolName: "Write", Level: LevelMedium, RequiresApproval: true, AuditRequired: true},
		{ToolName: "Edit", Level: LevelMedium, RequiresApproval: true, AuditRequired: true},
		{ToolName: "Bash", Level: LevelHigh, RequiresApproval: true, AuditRequired: true},

		// network diagnostics – read-only probes
		{ToolName: "ping", Level: LevelLow, AlwaysAllow: true},
		{ToolName: "traceroute", Level: LevelLow, AlwaysAllow: true},
		{ToolName: "show_config", Level: LevelLow, AlwaysAllow: true},

		// network mutations
		{ToolName: "packet_capture", Level: LevelMedium, RequiresApproval: true, AuditRequired: true},
		{ToolName: "config_push", Level: LevelHigh, RequiresApproval: true, AuditRequired: true},
		{ToolName: "service_restart", Level: LevelHigh, RequiresApproval: true, AuditRequired: true},
		{ToolName: "run_script", Level: LevelHigh, RequiresApproval: true, AuditRequired: true},

		// never delegated to an agent
		{ToolName: "factory_reset", Level: LevelHigh, AlwaysDeny: true, AuditRequired: true},
	}
}
