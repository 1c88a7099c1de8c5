// Package workerpool provides the compute-worker collaborator (spec.md
// §6): start, probe, execute-and-fetch, and stop of an isolated compute
// instance identified by an opaque instanceId. The verifier drives one
// worker at a time per circuit; (I1) guarantees no two commands ever race
// on the same instance.
package workerpool

import "context"

// Pool is the worker-pool collaborator contract.
type Pool interface {
	// Start ensures instanceId is running, starting it if necessary.
	Start(ctx context.Context, instanceID string) error
	// Status reports whether instanceId is currently reachable and running.
	Status(ctx context.Context, instanceID string) (running bool, err error)
	// RunCommand executes commands on instanceId and returns an opaque
	// commandId used to later fetch its output.
	RunCommand(ctx context.Context, instanceID string, commands []string) (commandID string, err error)
	// FetchOutput blocks until commandId completes on instanceId and
	// returns its combined stdout/stderr.
	FetchOutput(ctx context.Context, instanceID, commandID string) (output string, err error)
	// Stop halts instanceId. It must not error if the instance is already
	// stopped, since callers invoke it on every exit path.
	Stop(ctx context.Context, instanceID string) error
}
