package ports

import (
	"context"
	"io"
)

// EvidenceStore keeps proof photos and hands back an opaque reference.
type EvidenceStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}
