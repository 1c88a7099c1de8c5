package workerpool

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Pool for tests: RunCommand's caller supplies the
// eventual output up front via SetOutput, or the pool returns a canned
// success transcript by default.
type Fake struct {
	mu      sync.Mutex
	running map[string]bool
	outputs map[string]string
	seq     int
}

// NewFake returns an empty Fake pool.
func NewFake() *Fake {
	return &Fake{running: map[string]bool{}, outputs: map[string]string{}}
}

// SetOutput fixes the output FetchOutput returns for every subsequent
// command issued against instanceID, until SetOutput is called again.
func (f *Fake) SetOutput(instanceID, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[instanceID] = output
}

// Start implements Pool.
func (f *Fake) Start(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[instanceID] = true
	return nil
}

// Status implements Pool.
func (f *Fake) Status(ctx context.Context, instanceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[instanceID], nil
}

// RunCommand implements Pool.
func (f *Fake) RunCommand(ctx context.Context, instanceID string, commands []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running[instanceID] {
		return "", fmt.Errorf("workerpool: instance %s not running", instanceID)
	}
	f.seq++
	return fmt.Sprintf("%s-%d", instanceID, f.seq), nil
}

// FetchOutput implements Pool.
func (f *Fake) FetchOutput(ctx context.Context, instanceID, commandID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if out, ok := f.outputs[instanceID]; ok {
		return out, nil
	}
	return "ZKey Ok!", nil
}

// Stop implements Pool.
func (f *Fake) Stop(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[instanceID] = false
	return nil
}
