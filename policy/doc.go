// Package policy implements tenant-scoped approval policies: a cached store
// fed by an external boundary, and an evaluator that combines policies with
// static risk classification to decide allow, deny, or defer-to-human for a
// requested tool invocation.
package policy
