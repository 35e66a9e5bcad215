// Package ledger describes the tokenized-asset backend the control surface
// drives, plus an in-memory implementation and a JSON-RPC transport.
package ledger

import (
	"context"

	"github.com/Rorical/RoriRoles/internal/models"
)

// Job is a submitted backend operation. Submission alone changes nothing;
// Run returns once the operation is durably applied, or with the reason it
// was rejected.
type Job interface {
	ID() string
	Run(ctx context.Context) error
}

// Backend is everything the core needs from the ledger. Token arguments are
// token symbols.
type Backend interface {
	GetSecurityTokens(ctx context.Context, owner models.Address) ([]models.SecurityToken, error)

	GetFeatureStatus(ctx context.Context, token string) (map[models.Feature]bool, error)
	// GetGrantableRoles is only valid once the permissions feature is enabled
	GetGrantableRoles(ctx context.Context, token string) ([]models.Role, error)
	GetAllDelegates(ctx context.Context, token string) ([]models.Delegate, error)

	EnableFeature(ctx context.Context, token string, feature models.Feature) (Job, error)
	DisableFeature(ctx context.Context, token string, feature models.Feature) (Job, error)
	AssignRole(ctx context.Context, token string, delegate models.Address, role models.Role, description string) (Job, error)
	RevokeRole(ctx context.Context, token string, delegate models.Address, role models.Role) (Job, error)
}
