package policy

import (
	"context"
	"fmt"

	"github.com/opsgate/opsgate/risk"
)

// Decision is the evaluator's local verdict for a tool invocation.
type Decision string

const (
	// DecisionAllow permits the invocation without human involvement.
	DecisionAllow Decision = "allow"
	// DecisionDeny blocks the invocation without human involvement.
	DecisionDeny Decision = "deny"
	// DecisionDefer hands the invocation to the approval correlator.
	DecisionDefer Decision = "defer"
)

// Verdict carries the evaluator's decision plus the matched policy and risk
// profile for auditing.
type Verdict struct {
	Decision Decision
	Reason   string
	Profile  *risk.Profile
	Policy   *Policy
}

// Evaluator combines tenant policies with static risk classification.
// Explicit tenant policy outranks classification because operators must be
// able to tighten or loosen defaults per tenant; read-only tools are never
// worth blocking a human on.
type Evaluator struct {
	classifier *risk.Classifier
	store      *Store
}

// NewEvaluator creates an evaluator over the supplied classifier and store.
func NewEvaluator(classifier *risk.Classifier, store *Store) *Evaluator {
	return &Evaluator{classifier: classifier, store: store}
}

// Evaluate applies the decision ladder, first match wins:
//
//  1. exact-match, unexpired tenant policy whose conditions hold:
//     autoApprove → Allow; requiresApproval == false → Deny;
//     requiresApproval == true → Defer (tightens defaults).
//  2. classification alwaysDeny → Deny.
//  3. classification alwaysAllow, or risk tier low → Allow.
//  4. otherwise → Defer.
func (e *Evaluator) Evaluate(ctx context.Context, tenantID, toolName string, input map[string]interface{}) *Verdict {
	profile := e.classifier.Classify(toolName)

	for _, tenantPolicy := range e.store.Policies(ctx, tenantID) {
		if tenantPolicy.ToolName != toolName || tenantPolicy.Expired() || !tenantPolicy.Matches(input) {
			continue
		}
		if tenantPolicy.AutoApprove {
			// A threshold caps how risky a tool the auto-approval may
			// cover; above it the ladder continues as if no policy matched.
			if tenantPolicy.RiskThreshold != "" && !tenantPolicy.RiskThreshold.AtLeast(profile.Level) {
				break
			}
			return &Verdict{
				Decision: DecisionAllow,
				Reason:   fmt.Sprintf("tenant policy %s auto-approves %s", tenantPolicy.ID, toolName),
				Profile:  profile,
				Policy:   tenantPolicy,
			}
		}
		if !tenantPolicy.RequiresApproval {
			return &Verdict{
				Decision: DecisionDeny,
				Reason:   fmt.Sprintf("tenant policy %s denies %s", tenantPolicy.ID, toolName),
				Profile:  profile,
				Policy:   tenantPolicy,
			}
		}
		// Explicit requires-approval tightens defaults even for tools the
		// classification would allow.
		return &Verdict{
			Decision: DecisionDefer,
			Reason:   fmt.Sprintf("tenant policy %s requires approval for %s", tenantPolicy.ID, toolName),
			Profile:  profile,
			Policy:   tenantPolicy,
		}
	}

	if profile.AlwaysDeny {
		return &Verdict{
			Decision: DecisionDeny,
			Reason:   fmt.Sprintf("tool %s is always denied by risk classification", toolName),
			Profile:  profile,
		}
	}
	if profile.AlwaysAllow || profile.Level == risk.LevelLow {
		return &Verdict{
			Decision: DecisionAllow,
			Reason:   fmt.Sprintf("tool %s is read-only or always allowed", toolName),
			Profile:  profile,
		}
	}
	return &Verdict{
		Decision: DecisionDefer,
		Reason:   fmt.Sprintf("tool %s requires human approval", toolName),
		Profile:  profile,
	}
}
