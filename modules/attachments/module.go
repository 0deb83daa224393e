package attachments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module provides attachment storage backed by NATS JetStream Object Store.
type Module struct {
	store   *JetStreamObjectStore
	service *Service
	natsURL string
	bucket  string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new attachments Module.
func NewModule() *Module {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	bucket := os.Getenv("ATTACHMENTS_BUCKET")
	if bucket == "" {
		bucket = "attachments"
	}
	return &Module{
		natsURL: natsURL,
		bucket:  bucket,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "attachments"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"upload-attachment",
		json.Unmarshal,
		json.Marshal,
		m.uploadAttachment,
	); err != nil {
		return fmt.Errorf("failed to register upload-attachment service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"fetch-attachment",
		json.Unmarshal,
		json.Marshal,
		m.fetchAttachment,
	); err != nil {
		return fmt.Errorf("failed to register fetch-attachment service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"remove-attachment",
		json.Unmarshal,
		json.Marshal,
		m.removeAttachment,
	); err != nil {
		return fmt.Errorf("failed to register remove-attachment service: %w", err)
	}

	log.Printf("[attachments] Registered services: upload-attachment, fetch-attachment, remove-attachment")
	return nil
}

// Start initializes the module and connects to NATS JetStream.
func (m *Module) Start(ctx context.Context) error {
	var err error
	m.store, err = NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	if err := m.store.Init(ctx); err != nil {
		m.store.Close()
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	m.service = NewService(m.store)

	log.Printf("[attachments] Module started (NATS: %s, bucket: %s)", m.natsURL, m.bucket)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	log.Println("[attachments] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	healthy := m.store != nil && m.store.IsConnected()
	message := "connected"
	if !healthy {
		message = "disconnected"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"nats_url": m.natsURL,
			"bucket":   m.bucket,
		},
	}
}

// uploadAttachment handles the upload-attachment service request.
func (m *Module) uploadAttachment(ctx context.Context, req UploadRequest, _ *mono.Msg) (UploadResponse, error) {
	stored, err := m.service.Save(ctx, req.Name, req.Data, req.ContentType)
	if err != nil {
		return UploadResponse{}, err
	}

	return UploadResponse{
		Reference:   stored.Reference,
		Name:        stored.Name,
		Size:        stored.Size,
		ContentType: stored.ContentType,
	}, nil
}

// fetchAttachment handles the fetch-attachment service request.
func (m *Module) fetchAttachment(ctx context.Context, req FetchRequest, _ *mono.Msg) (FetchResponse, error) {
	data, stored, err := m.service.Fetch(ctx, req.Reference)
	if err != nil {
		return FetchResponse{}, err
	}

	return FetchResponse{
		Reference:   stored.Reference,
		Name:        stored.Name,
		Size:        stored.Size,
		ContentType: stored.ContentType,
		Data:        data,
	}, nil
}

// removeAttachment handles the remove-attachment service request.
func (m *Module) removeAttachment(ctx context.Context, req RemoveRequest, _ *mono.Msg) (RemoveResponse, error) {
	if err := m.service.Remove(ctx, req.Reference); err != nil {
		return RemoveResponse{Removed: false, Reference: req.Reference}, err
	}

	return RemoveResponse{Removed: true, Reference: req.Reference}, nil
}
