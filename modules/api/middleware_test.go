package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/dddd2356/sunhan-websocket-backend/modules/identity"
)

// mockIdentityPort implements identity.Port for testing
type mockIdentityPort struct {
	resolveFunc func(ctx context.Context, token string) (*identity.Identity, error)
}

func (m *mockIdentityPort) ResolveIdentity(ctx context.Context, token string) (*identity.Identity, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIdentityPort) IssueToken(context.Context, string, string) (*identity.IssueTokenResponse, error) {
	return nil, errors.New("not implemented")
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		mockIdentity   *mockIdentityPort
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing authorization header",
			authHeader:     "",
			mockIdentity:   &mockIdentityPort{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Authorization header is required"`,
		},
		{
			name:           "invalid authorization format - no bearer",
			authHeader:     "Basic token123",
			mockIdentity:   &mockIdentityPort{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Invalid authorization header format`,
		},
		{
			name:           "bearer without token",
			authHeader:     "Bearer ",
			mockIdentity:   &mockIdentityPort{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`, // Fiber trims trailing spaces, so "Bearer " becomes "Bearer" which fails prefix check
		},
		{
			name:       "invalid token",
			authHeader: "Bearer invalid-token",
			mockIdentity: &mockIdentityPort{
				resolveFunc: func(ctx context.Context, token string) (*identity.Identity, error) {
					return nil, errors.New("invalid token")
				},
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Invalid or expired token"`,
		},
		{
			name:       "valid token",
			authHeader: "Bearer valid-token",
			mockIdentity: &mockIdentityPort{
				resolveFunc: func(ctx context.Context, token string) (*identity.Identity, error) {
					return &identity.Identity{
						MemberID:   "member-123",
						MemberName: "Alice Kim",
					}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"authenticated"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(AuthMiddleware(tt.mockIdentity))
			app.Get("/test", func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"status": "authenticated"})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.expectedStatus)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("io.ReadAll() error = %v", err)
			}

			if tt.expectedBody != "" {
				bodyStr := string(body)
				if !strings.Contains(bodyStr, tt.expectedBody) {
					t.Errorf("body = %v, want to contain %v", bodyStr, tt.expectedBody)
				}
			}
		})
	}
}

func TestAuthMiddleware_StoresIdentity(t *testing.T) {
	mockIdentity := &mockIdentityPort{
		resolveFunc: func(ctx context.Context, token string) (*identity.Identity, error) {
			return &identity.Identity{
				MemberID:   "member-456",
				MemberName: "Bob Lee",
			}, nil
		},
	}

	app := fiber.New()
	app.Use(AuthMiddleware(mockIdentity))

	var captured *identity.Identity
	app.Get("/test", func(c *fiber.Ctx) error {
		caller := currentIdentity(c)
		if caller == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "no identity"})
		}
		captured = caller
		return c.JSON(fiber.Map{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if captured == nil || captured.MemberID != "member-456" || captured.MemberName != "Bob Lee" {
		t.Errorf("captured identity = %+v, want member-456 / Bob Lee", captured)
	}
}
