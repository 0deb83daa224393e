package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// MemberInfo is the resolved identity handed to consuming modules.
type MemberInfo struct {
	MemberID   string
	Name       string
	Department string
	Position   string
}

// Port is the directory contract consumed by the chat core.
type Port interface {
	// Lookup resolves a member identity to their directory entry.
	// Returns ErrMemberNotFound when the identity is unknown.
	Lookup(ctx context.Context, memberID string) (*MemberInfo, error)

	// Upsert creates or updates a directory entry.
	Upsert(ctx context.Context, info MemberInfo) error
}

// adapter implements Port over the module's request-reply services.
type adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a directory adapter for cross-module calls.
func NewAdapter(container mono.ServiceContainer) Port {
	if container == nil {
		panic("directory adapter requires non-nil ServiceContainer")
	}
	return &adapter{container: container}
}

// Lookup resolves a member identity via the lookup service.
func (a *adapter) Lookup(ctx context.Context, memberID string) (*MemberInfo, error) {
	req := LookupRequest{MemberID: memberID}
	var resp LookupResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"lookup",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("lookup service call failed: %w", err)
	}

	if !resp.Found {
		return nil, ErrMemberNotFound
	}

	return &MemberInfo{
		MemberID:   resp.MemberID,
		Name:       resp.Name,
		Department: resp.Department,
		Position:   resp.Position,
	}, nil
}

// Upsert creates or updates a directory entry via the upsert service.
func (a *adapter) Upsert(ctx context.Context, info MemberInfo) error {
	req := UpsertRequest{
		MemberID:   info.MemberID,
		Name:       info.Name,
		Department: info.Department,
		Position:   info.Position,
	}
	var resp UpsertResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"upsert",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("upsert service call failed: %w", err)
	}
	return nil
}
