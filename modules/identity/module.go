package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module issues and validates member tokens.
type Module struct {
	jwtManager *JWTManager
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new identity Module.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "identity"
}

// Start initializes the identity module.
func (m *Module) Start(_ context.Context) error {
	m.jwtManager = NewJWTManager(loadJWTConfig())
	log.Println("[identity] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[identity] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.jwtManager == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "token manager not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"issue-token",
		json.Unmarshal,
		json.Marshal,
		m.handleIssueToken,
	); err != nil {
		return fmt.Errorf("failed to register issue-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"validate-token",
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	log.Printf("[identity] Registered services: issue-token, validate-token")
	return nil
}

// handleIssueToken issues a signed token for a member.
func (m *Module) handleIssueToken(_ context.Context, req IssueTokenRequest, _ *mono.Msg) (IssueTokenResponse, error) {
	if req.MemberID == "" {
		return IssueTokenResponse{}, errors.New("member_id is required")
	}

	token, err := m.jwtManager.GenerateToken(req.MemberID, req.MemberName)
	if err != nil {
		return IssueTokenResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return IssueTokenResponse{
		Token:     token,
		ExpiresIn: m.jwtManager.TokenDuration(),
		TokenType: "Bearer",
	}, nil
}

// handleValidateToken resolves the member behind a token.
func (m *Module) handleValidateToken(_ context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.jwtManager.ValidateToken(req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		return ValidateTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil // Return response, not error, for validation failures
	}

	return ValidateTokenResponse{
		Valid:      true,
		MemberID:   claims.MemberID,
		MemberName: claims.MemberName,
	}, nil
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	if duration := os.Getenv("JWT_TOKEN_DURATION"); duration != "" {
		if d, err := time.ParseDuration(duration); err == nil {
			config.TokenDuration = d
		} else {
			log.Printf("[identity] Invalid JWT_TOKEN_DURATION %q, using default", duration)
		}
	}

	return config
}
