// Package approval implements the human-in-the-loop correlation core. It
// owns the registry of tool invocations suspended pending a human decision
// and arbitrates the three racing terminal triggers (external resolution,
// wall-clock timeout, caller cancellation) so that every suspended call is
// settled exactly once.
package approval
