// Package idgen wraps the UUID generator so it can be stubbed in tests.
// Identifiers it returns should be treated as opaque strings; callers must
// not rely on their exact format.
package idgen
