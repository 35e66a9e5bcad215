// Package loader fetches what the control surface shows for a token and
// shapes it into store payloads.
package loader

import (
	"context"
	"maps"

	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/internal/store"
)

// LoadFeatureStatus fetches the feature map of token. The permissions entry
// is lifted out into PMEnabled; grantable roles are only fetched when it is
// on and are otherwise empty.
func LoadFeatureStatus(ctx context.Context, backend ledger.Backend, token string) (store.FeatureStatusLoaded, error) {
	status, err := backend.GetFeatureStatus(ctx, token)
	if err != nil {
		return store.FeatureStatusLoaded{}, xerrors.Errorf("getting feature status of %s: %w", token, err)
	}

	features := maps.Clone(status)
	if features == nil {
		features = make(map[models.Feature]bool)
	}
	pmEnabled := features[models.FeaturePermissions]
	delete(features, models.FeaturePermissions)

	roles := make([]models.Role, 0)
	if pmEnabled {
		grantable, err := backend.GetGrantableRoles(ctx, token)
		if err != nil {
			return store.FeatureStatusLoaded{}, xerrors.Errorf("getting grantable roles of %s: %w", token, err)
		}
		roles = append(roles, grantable...)
	}

	return store.FeatureStatusLoaded{
		Features:       features,
		PMEnabled:      pmEnabled,
		AvailableRoles: roles,
	}, nil
}

// FeatureStatusEffect loads feature status once per token selection, while
// a token is selected and features are not loaded.
func FeatureStatusEffect(backend ledger.Backend) store.Effect {
	type deps struct {
		token  string
		loaded bool
	}
	return store.Effect{
		Name:     "feature-status",
		Resource: store.ResourceFeatures,
		Message:  "Loading features status",
		Deps: func(token string, s models.ApplicationState) any {
			return deps{token: token, loaded: s.Features != nil}
		},
		When: func(token string, s models.ApplicationState) bool {
			return token != "" && s.Features == nil
		},
		Load: func(token string) store.Task {
			return func(ctx context.Context) (store.Payload, error) {
				return LoadFeatureStatus(ctx, backend, token)
			}
		},
	}
}
