package blobstore

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Mem is an in-memory BlobStore useful for local development and tests,
// following the file-based artifact handling style of cmd/e2etest in the
// teacher repository.
type Mem struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMem returns an empty in-memory BlobStore.
func NewMem() *Mem {
	return &Mem{objects: map[string][]byte{}}
}

// Put seeds an object, for test setup.
func (m *Mem) Put(bucket, path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+path] = data
}

// Has reports whether an object is still present, for test assertions.
func (m *Mem) Has(bucket, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+path]
	return ok
}

// Download implements BlobStore.
func (m *Mem) Download(_ context.Context, bucket, path, localFile string) error {
	m.mu.Lock()
	data, ok := m.objects[bucket+"/"+path]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("blobstore: object %s/%s not found", bucket, path)
	}
	return os.WriteFile(localFile, data, 0o644)
}

// Delete implements BlobStore.
func (m *Mem) Delete(_ context.Context, bucket, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+path)
	return nil
}
