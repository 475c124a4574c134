// Package opsgate implements an approval correlation and policy enforcement
// engine for agent-driven network operations. An orchestration loop asks the
// engine whether a tool may run; the engine answers from static risk
// classification and tenant policy when it can, and otherwise suspends the
// call until a human decision, a timeout, or a cancellation settles it,
// exactly once.
package opsgate
