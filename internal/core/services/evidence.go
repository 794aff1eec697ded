package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/familycare/visit-service/internal/core/domain"
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// storeProofPhoto turns the submitted photo into a stored reference. Data URLs
// are uploaded to the evidence store; anything else is already a reference.
func (s *VisitService) storeProofPhoto(ctx context.Context, visitID, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, "data:") {
		return raw, nil
	}

	contentType, data, err := decodeDataURL(raw)
	if err != nil {
		return "", domain.ErrValidation("proofPhoto", err.Error())
	}
	if s.evidence == nil {
		return "", fmt.Errorf("store proof photo: no evidence store configured")
	}

	key := fmt.Sprintf("visits/%s/proof-%s%s", visitID, uuid.NewString(), photoExtensions[contentType])
	ref, err := s.evidence.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("store proof photo: %w", err)
	}
	s.metrics.IncEvidenceUploaded()
	return ref, nil
}

func decodeDataURL(raw string) (string, []byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL must be base64 encoded")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload")
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty photo")
	}
	return contentType, data, nil
}
