package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module exposes the employee directory as lookup services for the chat
// core. It owns its own database handle and a Redis read-through cache.
type Module struct {
	db     *gorm.DB
	repo   *Repository
	lookup *cachedLookup
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new directory module.
func NewModule() *Module {
	dbPath := os.Getenv("DIRECTORY_DB_PATH")
	if dbPath == "" {
		dbPath = "directory.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "directory"
}

// RegisterServices registers the directory request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "lookup", json.Unmarshal, json.Marshal, m.lookupMember,
	); err != nil {
		return fmt.Errorf("failed to register lookup service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "upsert", json.Unmarshal, json.Marshal, m.upsertMember,
	); err != nil {
		return fmt.Errorf("failed to register upsert service: %w", err)
	}

	log.Printf("[directory] Registered services: services.directory.{lookup,upsert}")
	return nil
}

// Start opens the directory database and connects the cache.
func (m *Module) Start(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open directory database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&Employee{}); err != nil {
		return fmt.Errorf("failed to run directory migrations: %w", err)
	}
	m.repo = NewRepository(m.db)

	var client *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client = redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[directory] Redis unavailable at %s, running uncached: %v", addr, err)
			client = nil
		}
	}
	m.lookup = newCachedLookup(m.repo, client)

	log.Println("[directory] Module started")
	return nil
}

// Stop closes the database and cache connections.
func (m *Module) Stop(_ context.Context) error {
	if m.lookup != nil && m.lookup.client != nil {
		if err := m.lookup.client.Close(); err != nil {
			log.Printf("[directory] Failed to close Redis client: %v", err)
		}
	}
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Health performs a health check on the directory module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	cached := m.lookup != nil && m.lookup.Ping(ctx) == nil
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
			"cache":  cached,
		},
	}
}

// lookupMember handles the directory.lookup service request.
func (m *Module) lookupMember(ctx context.Context, req LookupRequest, _ *mono.Msg) (LookupResponse, error) {
	if req.MemberID == "" {
		return LookupResponse{}, fmt.Errorf("member_id is required")
	}

	employee, err := m.lookup.Lookup(ctx, req.MemberID)
	if err != nil {
		if err == ErrMemberNotFound {
			return LookupResponse{Found: false}, nil
		}
		return LookupResponse{}, err
	}

	return LookupResponse{
		Found:      true,
		MemberID:   employee.MemberID,
		Name:       employee.Name,
		Department: employee.Department,
		Position:   employee.Position,
	}, nil
}

// upsertMember handles the directory.upsert service request.
func (m *Module) upsertMember(ctx context.Context, req UpsertRequest, _ *mono.Msg) (UpsertResponse, error) {
	if req.MemberID == "" || req.Name == "" {
		return UpsertResponse{}, fmt.Errorf("member_id and name are required")
	}

	if err := m.repo.Upsert(&Employee{
		MemberID:   req.MemberID,
		Name:       req.Name,
		Department: req.Department,
		Position:   req.Position,
	}); err != nil {
		return UpsertResponse{}, err
	}

	m.lookup.Invalidate(ctx, req.MemberID)
	return UpsertResponse{MemberID: req.MemberID}, nil
}
