package attachments

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ReferencePrefix is the path prefix of every attachment reference.
const ReferencePrefix = "/attachments/"

// ErrInvalidReference is returned when a reference is not an attachment path.
var ErrInvalidReference = errors.New("invalid attachment reference")

// StoredAttachment describes a stored attachment.
type StoredAttachment struct {
	Reference   string
	Name        string
	Size        int64
	ContentType string
}

// Service provides attachment storage operations.
type Service struct {
	store ObjectStore
}

// NewService creates a new attachment service.
func NewService(store ObjectStore) *Service {
	return &Service{store: store}
}

// Save stores an attachment under a fresh random name and returns its reference.
// The original file name only contributes its extension; the stored name is
// a UUID so uploads can never collide or traverse paths.
func (s *Service) Save(ctx context.Context, fileName string, data []byte, contentType string) (*StoredAttachment, error) {
	if fileName == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file data is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storageName := uuid.New().String() + path.Ext(fileName)

	info, err := s.store.Put(ctx, storageName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	return &StoredAttachment{
		Reference:   ReferencePrefix + storageName,
		Name:        fileName,
		Size:        int64(info.Size),
		ContentType: contentType,
	}, nil
}

// Fetch retrieves an attachment by its reference.
func (s *Service) Fetch(ctx context.Context, reference string) ([]byte, *StoredAttachment, error) {
	storageName, err := storageNameFromReference(reference)
	if err != nil {
		return nil, nil, err
	}

	data, info, err := s.store.Get(ctx, storageName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch attachment %s: %w", reference, err)
	}

	return data, &StoredAttachment{
		Reference:   reference,
		Name:        info.Name,
		Size:        int64(info.Size),
		ContentType: info.ContentType,
	}, nil
}

// Remove deletes an attachment by its reference.
func (s *Service) Remove(ctx context.Context, reference string) error {
	storageName, err := storageNameFromReference(reference)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, storageName); err != nil {
		return fmt.Errorf("failed to remove attachment %s: %w", reference, err)
	}
	return nil
}

// storageNameFromReference validates a reference and extracts the stored name.
func storageNameFromReference(reference string) (string, error) {
	if !strings.HasPrefix(reference, ReferencePrefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, reference)
	}
	name := strings.TrimPrefix(reference, ReferencePrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, reference)
	}
	return name, nil
}
