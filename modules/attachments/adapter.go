package attachments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Port defines the interface other modules use for attachment operations.
type Port interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (*StoredAttachment, error)
	Fetch(ctx context.Context, reference string) (*FetchResponse, error)
	Remove(ctx context.Context, reference string) error
}

// Adapter implements Port using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

var _ Port = (*Adapter)(nil)

// NewAdapter creates a new attachments Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("attachments adapter requires a service container")
	}
	return &Adapter{
		container: container,
	}
}

// Upload stores an attachment and returns its reference.
func (a *Adapter) Upload(ctx context.Context, name string, data []byte, contentType string) (*StoredAttachment, error) {
	req := UploadRequest{Name: name, Data: data, ContentType: contentType}
	var resp UploadResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"upload-attachment",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("upload-attachment request failed: %w", err)
	}

	return &StoredAttachment{
		Reference:   resp.Reference,
		Name:        resp.Name,
		Size:        resp.Size,
		ContentType: resp.ContentType,
	}, nil
}

// Fetch retrieves an attachment by reference.
func (a *Adapter) Fetch(ctx context.Context, reference string) (*FetchResponse, error) {
	req := FetchRequest{Reference: reference}
	var resp FetchResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"fetch-attachment",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("fetch-attachment request failed: %w", err)
	}

	return &resp, nil
}

// Remove deletes an attachment by reference.
func (a *Adapter) Remove(ctx context.Context, reference string) error {
	req := RemoveRequest{Reference: reference}
	var resp RemoveResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"remove-attachment",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("remove-attachment request failed: %w", err)
	}

	return nil
}
