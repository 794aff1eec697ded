package evidence

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/familycare/visit-service/internal/core/ports"
)

type object struct {
	contentType string
	data        []byte
}

// MemoryStore keeps evidence in process memory. Used in development when no
// bucket is configured; contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

var _ ports.EvidenceStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]object)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read evidence: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{contentType: contentType, data: data}
	return "mem://" + key, nil
}

// Get returns a stored object and its content type.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}
