package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriRoles/internal/models"
)

func start(t *testing.T, effects ...Effect) *Store {
	t.Helper()
	s := New(effects...)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s
}

func settle(t *testing.T, s *Store) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.WaitSettled(ctx)
	require.NoError(t, err)
	return snap
}

// blocked returns a task that finishes with payload once release is closed
func blocked(release <-chan struct{}, payload Payload) Task {
	return func(ctx context.Context) (Payload, error) {
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type featureDeps struct {
	token  string
	loaded bool
}

// featureEffect mirrors the feature-status loader with a counting task
func featureEffect(loads *atomic.Int32, err error) Effect {
	return Effect{
		Name:     "features",
		Resource: ResourceFeatures,
		Message:  "Loading features status",
		Deps: func(token string, s models.ApplicationState) any {
			return featureDeps{token: token, loaded: s.Features != nil}
		},
		When: func(token string, s models.ApplicationState) bool {
			return token != "" && s.Features == nil
		},
		Load: func(token string) Task {
			return func(ctx context.Context) (Payload, error) {
				loads.Add(1)
				if err != nil {
					return nil, err
				}
				return FeatureStatusLoaded{
					Features:       map[models.Feature]bool{"KYC": false},
					PMEnabled:      true,
					AvailableRoles: []models.Role{"PermissionsAdministrator"},
				}, nil
			}
		},
	}
}

func delegatesEffect(loads *atomic.Int32) Effect {
	return Effect{
		Name:     "delegates",
		Resource: ResourceDelegates,
		Message:  "Loading delegates",
		Deps: func(token string, s models.ApplicationState) any {
			return featureDeps{token: token, loaded: s.PermissionsEnabled()}
		},
		When: func(token string, s models.ApplicationState) bool {
			return token != "" && s.PermissionsEnabled()
		},
		Load: func(token string) Task {
			return func(ctx context.Context) (Payload, error) {
				loads.Add(1)
				d := []models.Delegate{{Address: alice, Roles: []models.Role{"PermissionsAdministrator"}}}
				return DelegatesLoaded{
					Delegates: d,
					Records:   []models.RoleRecord{{Address: alice, Role: "PermissionsAdministrator"}},
				}, nil
			}
		},
	}
}

func TestEffectsIdleWithoutToken(t *testing.T) {
	var loads atomic.Int32
	s := start(t, featureEffect(&loads, nil))

	snap := settle(t, s)
	assert.Zero(t, loads.Load())
	assert.Nil(t, snap.State.Features)
	assert.False(t, snap.State.Loading)
}

func TestEffectsLoadOncePerSelection(t *testing.T) {
	var features, delegates atomic.Int32
	s := start(t, featureEffect(&features, nil), delegatesEffect(&delegates))

	s.Select("ACME")
	snap := settle(t, s)
	assert.Equal(t, "ACME", snap.Token)
	assert.Equal(t, int32(1), features.Load())
	assert.Equal(t, int32(1), delegates.Load())
	assert.Equal(t, map[models.Feature]bool{"KYC": false}, snap.State.Features)
	assert.True(t, snap.State.PermissionsEnabled())
	assert.Len(t, snap.State.Records, 1)
	assert.False(t, snap.State.Loading)
	assert.Zero(t, snap.Pending)

	// nothing changed, nothing reloads
	settle(t, s)
	assert.Equal(t, int32(1), features.Load())

	// invalidation is the reload trigger
	s.Dispatch(TokenSelected{})
	settle(t, s)
	assert.Equal(t, int32(2), features.Load())
	assert.Equal(t, int32(2), delegates.Load())
}

func TestEffectErrorDoesNotLoop(t *testing.T) {
	var loads atomic.Int32
	s := start(t, featureEffect(&loads, errors.New("ledger unreachable")))

	s.Select("ACME")
	snap := settle(t, s)
	assert.Equal(t, "ledger unreachable", snap.State.Error)
	assert.Nil(t, snap.State.Features)
	assert.False(t, snap.State.Loading)

	s.Dispatch(AsyncSettled{})
	settle(t, s)
	assert.Equal(t, int32(1), loads.Load())
}

func TestStaleTokenResultIsDiscarded(t *testing.T) {
	before := testutil.ToFloat64(staleDiscarded.WithLabelValues(string(ResourceFeatures)))
	s := start(t)
	s.Select("ACME")

	release := make(chan struct{})
	s.RunAsync(AsyncRequest{
		Token:    "ACME",
		Resource: ResourceFeatures,
		Message:  "Loading features status",
		Task: blocked(release, FeatureStatusLoaded{
			Features:  map[models.Feature]bool{"KYC": true},
			PMEnabled: true,
		}),
	})
	s.Select("BOLT")
	close(release)

	snap := settle(t, s)
	assert.Equal(t, "BOLT", snap.Token)
	assert.Nil(t, snap.State.Features, "ACME data must not show up for BOLT")
	assert.Nil(t, snap.State.PMEnabled)
	assert.False(t, snap.State.Loading, "dropping the last result settles loading")
	assert.Empty(t, snap.State.LoadingMessage)
	assert.Equal(t, before+1, testutil.ToFloat64(staleDiscarded.WithLabelValues(string(ResourceFeatures))))
}

func TestReloadDiscardsInflightResult(t *testing.T) {
	s := start(t)
	s.Select("ACME")

	release := make(chan struct{})
	s.RunAsync(AsyncRequest{
		Resource: ResourceDelegates,
		Message:  "Loading delegates",
		Task:     blocked(release, DelegatesLoaded{Delegates: []models.Delegate{}, Records: []models.RoleRecord{}}),
	})
	s.Dispatch(TokenSelected{})
	close(release)

	snap := settle(t, s)
	assert.Nil(t, snap.State.Delegates)
	assert.Nil(t, snap.State.Records)
}

func TestNewestEnvelopeWins(t *testing.T) {
	s := start(t)
	s.Select("ACME")

	first, second := make(chan struct{}), make(chan struct{})
	s.RunAsync(AsyncRequest{Resource: ResourceMutation, Message: "first", Task: blocked(first, MutationAcked{PMEnabled: models.Bool(true)})})
	s.RunAsync(AsyncRequest{Resource: ResourceMutation, Message: "second", Task: blocked(second, MutationAcked{PMEnabled: models.Bool(false)})})

	close(second)
	require.Eventually(t, func() bool {
		return s.State().PMEnabled != nil
	}, 5*time.Second, 5*time.Millisecond)

	close(first)
	snap := settle(t, s)
	require.NotNil(t, snap.State.PMEnabled)
	assert.False(t, *snap.State.PMEnabled, "the older envelope settled last but must not win")
	assert.False(t, snap.State.Loading)
}

func TestSupersededMutationStillReloads(t *testing.T) {
	var features, delegates atomic.Int32
	s := start(t, featureEffect(&features, nil), delegatesEffect(&delegates))
	s.Select("ACME")
	settle(t, s)
	require.EqualValues(t, 1, features.Load())
	require.EqualValues(t, 1, delegates.Load())

	// a slow grant that succeeds, overtaken by a revoke that fails fast
	release := make(chan struct{})
	s.RunAsync(AsyncRequest{
		Token:    "ACME",
		Resource: ResourceMutation,
		Message:  "Assigning role",
		Task:     blocked(release, nil),
		Then:     []Action{TokenSelected{}},
	})
	s.RunAsync(AsyncRequest{
		Token:    "ACME",
		Resource: ResourceMutation,
		Message:  "Revoking role",
		Task: func(ctx context.Context) (Payload, error) {
			return nil, errors.New("revoke rejected")
		},
		Then: []Action{TokenSelected{}},
	})
	require.Eventually(t, func() bool {
		return s.State().Error == "revoke rejected"
	}, 5*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, features.Load(), "a failed mutation does not reload")

	close(release)
	snap := settle(t, s)
	assert.EqualValues(t, 2, features.Load())
	assert.EqualValues(t, 2, delegates.Load())
	assert.NotNil(t, snap.State.Features)
	assert.NotNil(t, snap.State.Records)
	assert.False(t, snap.State.Loading)
}

func TestSupersededMutationForOtherTokenDoesNotReload(t *testing.T) {
	var features atomic.Int32
	s := start(t, featureEffect(&features, nil))
	s.Select("ACME")
	settle(t, s)

	release := make(chan struct{})
	s.RunAsync(AsyncRequest{
		Token:    "ACME",
		Resource: ResourceMutation,
		Message:  "Assigning role",
		Task:     blocked(release, nil),
		Then:     []Action{TokenSelected{}},
	})
	s.Select("BOLT")
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Token == "BOLT" && snap.State.Features != nil
	}, 5*time.Second, 5*time.Millisecond)
	require.EqualValues(t, 2, features.Load())

	close(release)
	snap := settle(t, s)
	assert.EqualValues(t, 2, features.Load())
	assert.Equal(t, "BOLT", snap.Token)
	assert.NotNil(t, snap.State.Features)
}

func TestRepeatedErrorAdvancesErrorSeq(t *testing.T) {
	s := start(t)
	s.Select("ACME")

	fail := func(ctx context.Context) (Payload, error) {
		return nil, errors.New("connection refused")
	}
	s.RunAsync(AsyncRequest{Resource: ResourceFeatures, Message: "Loading features status", Task: fail})
	first := settle(t, s)
	s.RunAsync(AsyncRequest{Resource: ResourceFeatures, Message: "Loading features status", Task: fail})
	second := settle(t, s)

	assert.Equal(t, first.State.Error, second.State.Error)
	assert.Greater(t, second.ErrorSeq, first.ErrorSeq)
	assert.Positive(t, first.ErrorSeq)
}

func TestEnvelopeStartObservedBeforeTerminal(t *testing.T) {
	s := start(t)
	s.Select("ACME")
	updates := s.Subscribe()

	release := make(chan struct{})
	s.RunAsync(AsyncRequest{Resource: ResourceMutation, Message: "Toggle role management", Task: blocked(release, nil)})

	require.Eventually(t, func() bool {
		st := s.State()
		return st.Loading && st.LoadingMessage == "Toggle role management"
	}, 5*time.Second, 5*time.Millisecond)

	close(release)
	snap := settle(t, s)
	assert.False(t, snap.State.Loading)
	assert.Empty(t, snap.State.Error)

	latest := <-updates
	assert.Equal(t, snap.Seq, latest.Seq, "subscribers see the newest snapshot")
}

func TestThenRunsOnlyOnSuccess(t *testing.T) {
	var loads atomic.Int32
	s := start(t, featureEffect(&loads, nil))
	s.Select("ACME")
	settle(t, s)
	require.Equal(t, int32(1), loads.Load())

	s.RunAsync(AsyncRequest{
		Token:    "ACME",
		Resource: ResourceMutation,
		Message:  "Assigning role",
		Task:     Ack(func(ctx context.Context) error { return nil }, nil),
		Then:     []Action{TokenSelected{}},
	})
	snap := settle(t, s)
	assert.Equal(t, int32(2), loads.Load(), "a successful mutation forces a reload")
	assert.NotNil(t, snap.State.Features)

	s.RunAsync(AsyncRequest{
		Token:    "ACME",
		Resource: ResourceMutation,
		Message:  "Assigning role",
		Task:     Ack(func(ctx context.Context) error { return errors.New("job reverted") }, nil),
		Then:     []Action{TokenSelected{}},
	})
	snap = settle(t, s)
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, "job reverted", snap.State.Error)
	assert.NotNil(t, snap.State.Features, "a failed mutation leaves loaded data alone")
}

func TestEnvelopeForUnselectedTokenIsRefused(t *testing.T) {
	s := start(t)
	s.Select("ACME")

	var ran atomic.Bool
	s.RunAsync(AsyncRequest{
		Token:    "BOLT",
		Resource: ResourceMutation,
		Message:  "Toggle role management",
		Task: func(ctx context.Context) (Payload, error) {
			ran.Store(true)
			return nil, nil
		},
	})
	snap := settle(t, s)
	assert.False(t, ran.Load())
	assert.Contains(t, snap.State.Error, "selection changed")
	assert.False(t, snap.State.Loading)
}

func TestWaitSettledHonoursContext(t *testing.T) {
	s := start(t)
	s.Select("ACME")
	s.RunAsync(AsyncRequest{Resource: ResourceFeatures, Task: blocked(make(chan struct{}), nil)})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.WaitSettled(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, s.Snapshot().Pending)
}

func TestWaitSettledAfterStop(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()
	<-s.Done()

	_, err := s.WaitSettled(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}
