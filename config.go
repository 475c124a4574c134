package opsgate

import (
	"fmt"
	"time"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful – all nested fields inherit their package defaults.
type Config struct {
	Approval ApprovalConfig `json:"approval" yaml:"approval"`
	Policy   PolicyConfig   `json:"policy" yaml:"policy"`
}

type ApprovalConfig struct {
	// DefaultTimeout bounds how long a suspended tool call waits for a
	// human decision when neither the request nor the tool profile says.
	DefaultTimeout time.Duration `json:"defaultTimeout" yaml:"defaultTimeout"`
}

type PolicyConfig struct {
	// RefreshInterval makes the policy cache reload a tenant's policies
	// after the given age. Zero keeps a cached set until the next explicit
	// update for that tenant.
	RefreshInterval time.Duration `json:"refreshInterval" yaml:"refreshInterval"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		Approval: ApprovalConfig{DefaultTimeout: 5 * time.Minute},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Approval.DefaultTimeout <= 0 {
		return fmt.Errorf("approval.defaultTimeout must be > 0")
	}
	if c.Policy.RefreshInterval < 0 {
		return fmt.Errorf("policy.refreshInterval must be >= 0")
	}
	return nil
}
