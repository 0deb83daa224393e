package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Identity describes the member behind a validated token.
type Identity struct {
	MemberID   string
	MemberName string
}

// Port defines the interface other modules use to resolve identities.
type Port interface {
	ResolveIdentity(ctx context.Context, token string) (*Identity, error)
	IssueToken(ctx context.Context, memberID, memberName string) (*IssueTokenResponse, error)
}

// Adapter implements Port using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

var _ Port = (*Adapter)(nil)

// NewAdapter creates a new identity Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("identity adapter requires a service container")
	}
	return &Adapter{
		container: container,
	}
}

// ResolveIdentity validates a token and returns the member it belongs to.
func (a *Adapter) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}

	return &Identity{
		MemberID:   resp.MemberID,
		MemberName: resp.MemberName,
	}, nil
}

// IssueToken issues a signed token for a member.
func (a *Adapter) IssueToken(ctx context.Context, memberID, memberName string) (*IssueTokenResponse, error) {
	req := IssueTokenRequest{MemberID: memberID, MemberName: memberName}
	var resp IssueTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"issue-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("issue-token request failed: %w", err)
	}

	return &resp, nil
}
