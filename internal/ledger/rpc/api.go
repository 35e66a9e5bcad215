// Package rpc carries the ledger Backend over JSON-RPC. Jobs cross the wire
// as IDs: mutations return a JobID and RunJob blocks until it is applied.
package rpc

import (
	"context"

	"github.com/Rorical/RoriRoles/internal/models"
)

// Namespace is the JSON-RPC method prefix, e.g. Ledger.GetFeatureStatus
const Namespace = "Ledger"

// JobID identifies a submitted job on the serving side
type JobID string

// API is the wire surface of a ledger node
type API interface {
	GetSecurityTokens(ctx context.Context, owner models.Address) ([]models.SecurityToken, error)
	GetFeatureStatus(ctx context.Context, token string) (map[models.Feature]bool, error)
	GetGrantableRoles(ctx context.Context, token string) ([]models.Role, error)
	GetAllDelegates(ctx context.Context, token string) ([]models.Delegate, error)

	EnableFeature(ctx context.Context, token string, feature models.Feature) (JobID, error)
	DisableFeature(ctx context.Context, token string, feature models.Feature) (JobID, error)
	AssignRole(ctx context.Context, token string, delegate models.Address, role models.Role, description string) (JobID, error)
	RevokeRole(ctx context.Context, token string, delegate models.Address, role models.Role) (JobID, error)

	RunJob(ctx context.Context, id JobID) error
}

// APIStruct is the client-side proxy filled in by go-jsonrpc
type APIStruct struct {
	Internal struct {
		GetSecurityTokens func(ctx context.Context, owner models.Address) ([]models.SecurityToken, error)
		GetFeatureStatus  func(ctx context.Context, token string) (map[models.Feature]bool, error)
		GetGrantableRoles func(ctx context.Context, token string) ([]models.Role, error)
		GetAllDelegates   func(ctx context.Context, token string) ([]models.Delegate, error)

		EnableFeature  func(ctx context.Context, token string, feature models.Feature) (JobID, error)
		DisableFeature func(ctx context.Context, token string, feature models.Feature) (JobID, error)
		AssignRole     func(ctx context.Context, token string, delegate models.Address, role models.Role, description string) (JobID, error)
		RevokeRole     func(ctx context.Context, token string, delegate models.Address, role models.Role) (JobID, error)

		RunJob func(ctx context.Context, id JobID) error
	}
}

var _ API = (*APIStruct)(nil)

func (s *APIStruct) GetSecurityTokens(ctx context.Context, owner models.Address) ([]models.SecurityToken, error) {
	return s.Internal.GetSecurityTokens(ctx, owner)
}

func (s *APIStruct) GetFeatureStatus(ctx context.Context, token string) (map[models.Feature]bool, error) {
	return s.Internal.GetFeatureStatus(ctx, token)
}

func (s *APIStruct) GetGrantableRoles(ctx context.Context, token string) ([]models.Role, error) {
	return s.Internal.GetGrantableRoles(ctx, token)
}

func (s *APIStruct) GetAllDelegates(ctx context.Context, token string) ([]models.Delegate, error) {
	return s.Internal.GetAllDelegates(ctx, token)
}

func (s *APIStruct) EnableFeature(ctx context.Context, token string, feature models.Feature) (JobID, error) {
	return s.Internal.EnableFeature(ctx, token, feature)
}

func (s *APIStruct) DisableFeature(ctx context.Context, token string, feature models.Feature) (JobID, error) {
	return s.Internal.DisableFeature(ctx, token, feature)
}

func (s *APIStruct) AssignRole(ctx context.Context, token string, delegate models.Address, role models.Role, description string) (JobID, error) {
	return s.Internal.AssignRole(ctx, token, delegate, role, description)
}

func (s *APIStruct) RevokeRole(ctx context.Context, token string, delegate models.Address, role models.Role) (JobID, error) {
	return s.Internal.RevokeRole(ctx, token, delegate, role)
}

func (s *APIStruct) RunJob(ctx context.Context, id JobID) error {
	return s.Internal.RunJob(ctx, id)
}
