package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/familycare/visit-service/internal/core/ports"
)

// StoredObject is a captured evidence upload.
type StoredObject struct {
	Key         string
	ContentType string
	Data        []byte
}

// MockEvidenceStore implements ports.EvidenceStore and returns "mem://<key>".
type MockEvidenceStore struct {
	mu      sync.Mutex
	Objects []StoredObject

	PutError error
}

var _ ports.EvidenceStore = (*MockEvidenceStore)(nil)

func (m *MockEvidenceStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if m.PutError != nil {
		return "", m.PutError
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects = append(m.Objects, StoredObject{Key: key, ContentType: contentType, Data: data})
	return "mem://" + key, nil
}
