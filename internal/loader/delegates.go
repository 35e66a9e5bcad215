package loader

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/internal/store"
)

// LoadDelegates fetches every delegate of token and their role records
func LoadDelegates(ctx context.Context, backend ledger.Backend, token string) (store.DelegatesLoaded, error) {
	delegates, err := backend.GetAllDelegates(ctx, token)
	if err != nil {
		return store.DelegatesLoaded{}, xerrors.Errorf("getting delegates of %s: %w", token, err)
	}
	if delegates == nil {
		delegates = make([]models.Delegate, 0)
	}
	return store.DelegatesLoaded{
		Delegates: delegates,
		Records:   Flatten(delegates),
	}, nil
}

// Flatten produces one record per (delegate, role) pair, in delegate order
// and then role order.
func Flatten(delegates []models.Delegate) []models.RoleRecord {
	n := 0
	for _, d := range delegates {
		n += len(d.Roles)
	}
	records := make([]models.RoleRecord, 0, n)
	for _, d := range delegates {
		for _, role := range d.Roles {
			records = append(records, models.RoleRecord{
				Address:     d.Address,
				Description: d.Description,
				Role:        role,
			})
		}
	}
	return records
}

// DelegatesEffect loads delegates whenever permissions become enabled for
// the selected token.
func DelegatesEffect(backend ledger.Backend) store.Effect {
	type deps struct {
		token     string
		pmKnown   bool
		pmEnabled bool
	}
	return store.Effect{
		Name:     "delegates",
		Resource: store.ResourceDelegates,
		Message:  "Loading delegates",
		Deps: func(token string, s models.ApplicationState) any {
			d := deps{token: token, pmKnown: s.PMEnabled != nil}
			if d.pmKnown {
				d.pmEnabled = *s.PMEnabled
			}
			return d
		},
		When: func(token string, s models.ApplicationState) bool {
			return token != "" && s.PermissionsEnabled()
		},
		Load: func(token string) store.Task {
			return func(ctx context.Context) (store.Payload, error) {
				return LoadDelegates(ctx, backend, token)
			}
		},
	}
}
