// Package extension provides run-time registries binding tool
// implementations and their Go input/output types to the engine. Registered
// tools contribute their risk profiles to the classifier, so the static
// risk table and the executable surface stay in step.
package extension
