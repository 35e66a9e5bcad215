package store

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriRoles/internal/models"
)

var alice = models.Address("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")

// populated returns a state with every field set
func populated() models.ApplicationState {
	delegates := []models.Delegate{{Address: alice, Description: "Transfer agent", Roles: []models.Role{"A", "B"}}}
	return models.ApplicationState{
		Loading:        true,
		LoadingMessage: "Loading delegates",
		Error:          "previous failure",
		PMEnabled:      models.Bool(true),
		Features:       map[models.Feature]bool{"KYC": true, "Dividends": false},
		AvailableRoles: []models.Role{"A", "B"},
		Delegates:      delegates,
		Records: []models.RoleRecord{
			{Address: alice, Description: "Transfer agent", Role: "A"},
			{Address: alice, Description: "Transfer agent", Role: "B"},
		},
	}
}

// randomState fills a random subset of the fields
func randomState(r *rand.Rand) models.ApplicationState {
	var s models.ApplicationState
	if r.IntN(2) == 0 {
		s.Loading = true
		s.LoadingMessage = fmt.Sprintf("op-%d", r.IntN(100))
	}
	if r.IntN(2) == 0 {
		s.Error = fmt.Sprintf("err-%d", r.IntN(100))
	}
	if r.IntN(3) > 0 {
		s.PMEnabled = models.Bool(r.IntN(2) == 0)
	}
	if r.IntN(2) == 0 {
		s.Features = map[models.Feature]bool{"KYC": r.IntN(2) == 0}
	}
	if r.IntN(2) == 0 {
		s.AvailableRoles = []models.Role{"PermissionsAdministrator"}
	}
	if r.IntN(2) == 0 {
		s.Delegates = []models.Delegate{{Address: alice, Roles: []models.Role{"PermissionsAdministrator"}}}
		s.Records = []models.RoleRecord{{Address: alice, Role: "PermissionsAdministrator"}}
	}
	return s
}

func randomAction(r *rand.Rand) Action {
	switch r.IntN(6) {
	case 0:
		return AsyncStart{Message: "start"}
	case 1:
		return AsyncComplete{Payload: MutationAcked{PMEnabled: models.Bool(r.IntN(2) == 0)}}
	case 2:
		return AsyncComplete{Payload: DelegatesLoaded{Delegates: []models.Delegate{}, Records: []models.RoleRecord{}}}
	case 3:
		return AsyncError{Message: "boom"}
	case 4:
		return Error{Message: "bad input"}
	default:
		return TokenSelected{}
	}
}

func TestReduceAsyncStart(t *testing.T) {
	prev := populated()
	next := Reduce(prev, AsyncStart{Message: "Toggle role management"})

	assert.True(t, next.Loading)
	assert.Equal(t, "Toggle role management", next.LoadingMessage)
	assert.Empty(t, next.Error)

	next.Loading, next.LoadingMessage, next.Error = prev.Loading, prev.LoadingMessage, prev.Error
	assert.Equal(t, prev, next)
}

func TestReduceFailurePreservesData(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		prev := randomState(r)
		for _, a := range []Action{AsyncError{Message: "ledger unreachable"}, Error{Message: "bad address"}} {
			next := Reduce(prev, a)
			assert.False(t, next.Loading)
			assert.Empty(t, next.LoadingMessage)
			require.NotEmpty(t, next.Error)

			next.Loading, next.LoadingMessage, next.Error = prev.Loading, prev.LoadingMessage, prev.Error
			assert.Equal(t, prev, next, "%s changed data fields", a.Kind())
		}
	}
}

func TestReduceFailureAfterRandomHistory(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 100; i++ {
		s := randomState(r)
		for j := 0; j < r.IntN(8); j++ {
			s = Reduce(s, randomAction(r))
		}
		next := Reduce(s, AsyncError{Message: "late failure"})
		next.Loading, next.LoadingMessage, next.Error = s.Loading, s.LoadingMessage, s.Error
		assert.Equal(t, s, next)
	}
}

func TestReduceAsyncCompleteMergesPayload(t *testing.T) {
	prev := populated()

	next := Reduce(prev, AsyncComplete{Payload: FeatureStatusLoaded{
		Features:       map[models.Feature]bool{"KYC": false},
		PMEnabled:      false,
		AvailableRoles: []models.Role{},
	}})
	assert.False(t, next.Loading)
	assert.Empty(t, next.LoadingMessage)
	assert.Empty(t, next.Error)
	assert.Equal(t, map[models.Feature]bool{"KYC": false}, next.Features)
	assert.Equal(t, models.Bool(false), next.PMEnabled)
	assert.Equal(t, []models.Role{}, next.AvailableRoles)
	// fields the payload does not carry stay
	assert.Equal(t, prev.Delegates, next.Delegates)
	assert.Equal(t, prev.Records, next.Records)
}

func TestReduceAsyncCompleteDelegates(t *testing.T) {
	prev := populated()
	delegates := []models.Delegate{}
	records := []models.RoleRecord{}

	next := Reduce(prev, AsyncComplete{Payload: DelegatesLoaded{Delegates: delegates, Records: records}})
	assert.Equal(t, delegates, next.Delegates)
	assert.Equal(t, records, next.Records)
	assert.Equal(t, prev.Features, next.Features)
	assert.Equal(t, prev.PMEnabled, next.PMEnabled)
	assert.Equal(t, prev.AvailableRoles, next.AvailableRoles)
}

func TestReduceMutationAckKeepsDelegates(t *testing.T) {
	prev := populated()
	next := Reduce(prev, AsyncComplete{Payload: MutationAcked{PMEnabled: models.Bool(false)}})

	assert.Equal(t, prev.Delegates, next.Delegates)
	assert.Equal(t, prev.Records, next.Records)
	assert.Equal(t, models.Bool(false), next.PMEnabled)
	assert.False(t, next.Loading)
	assert.Empty(t, next.Error)
}

func TestReduceBareAck(t *testing.T) {
	prev := populated()
	next := Reduce(prev, AsyncComplete{})

	assert.False(t, next.Loading)
	assert.Empty(t, next.LoadingMessage)
	assert.Empty(t, next.Error)
	next.Loading, next.LoadingMessage, next.Error = prev.Loading, prev.LoadingMessage, prev.Error
	assert.Equal(t, prev, next)
}

func TestReduceTokenSelectedClearsDerivedFields(t *testing.T) {
	prev := models.ApplicationState{
		Loading:   true,
		PMEnabled: models.Bool(true),
		Features:  map[models.Feature]bool{"F": true},
	}
	next := Reduce(prev, TokenSelected{})

	assert.Nil(t, next.PMEnabled)
	assert.Nil(t, next.Features)
	assert.Nil(t, next.Delegates)
	assert.Nil(t, next.Records)
	assert.Empty(t, next.Error)
	assert.True(t, next.Loading)
}

func TestReduceTokenSelectedTouchesNothingElse(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 200; i++ {
		prev := randomState(r)
		next := Reduce(prev, TokenSelected{})

		assert.Nil(t, next.Delegates)
		assert.Nil(t, next.Records)
		assert.Nil(t, next.PMEnabled)
		assert.Nil(t, next.Features)
		assert.Empty(t, next.Error)

		assert.Equal(t, prev.Loading, next.Loading)
		assert.Equal(t, prev.LoadingMessage, next.LoadingMessage)
		assert.Equal(t, prev.AvailableRoles, next.AvailableRoles)

		assert.Equal(t, next, Reduce(next, TokenSelected{}), "TokenSelected is idempotent")
	}
}

func TestReduceAsyncSettled(t *testing.T) {
	prev := populated()
	next := Reduce(prev, AsyncSettled{})

	assert.False(t, next.Loading)
	assert.Empty(t, next.LoadingMessage)
	assert.Equal(t, prev.Error, next.Error)
	assert.Equal(t, prev.Delegates, next.Delegates)
}

type notAType struct{}

func (notAType) action()      {}
func (notAType) Kind() string { return "NOT_A_TYPE" }

func TestReduceUnknownActionPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*UnknownActionError)
		require.True(t, ok, "panic value is %T", r)
		assert.Contains(t, err.Error(), "notAType")
	}()
	Reduce(populated(), notAType{})
	t.Fatal("Reduce returned for an unknown action")
}

func TestReduceNilActionPanics(t *testing.T) {
	assert.PanicsWithError(t, "unrecognized action type: <nil>", func() {
		Reduce(models.ApplicationState{}, nil)
	})
}

func TestReduceDoesNotAliasInput(t *testing.T) {
	prev := populated()
	before := prev.Clone()
	Reduce(prev, TokenSelected{})
	Reduce(prev, AsyncComplete{Payload: MutationAcked{PMEnabled: models.Bool(false)}})
	assert.Equal(t, before, prev)
}
