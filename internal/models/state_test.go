package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("  0x70997970C51812DC3A010C7D01B50E0D17DC79C8 ")
	require.NoError(t, err)
	assert.Equal(t, Address("0x70997970c51812dc3a010c7d01b50e0d17dc79c8"), addr)
	assert.Equal(t, "0x7099…79c8", addr.Short())

	for _, bad := range []string{"", "70997970c51812dc3a010c7d01b50e0d17dc79c8", "0x1234", "0xzz997970c51812dc3a010c7d01b50e0d17dc79c8"} {
		_, err := ParseAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := ApplicationState{
		PMEnabled:      Bool(true),
		Features:       map[Feature]bool{"KYC": true},
		AvailableRoles: []Role{"A"},
		Delegates:      []Delegate{{Address: "0x1", Roles: []Role{"A"}}},
		Records:        []RoleRecord{{Address: "0x1", Role: "A"}},
	}
	c := s.Clone()
	require.Equal(t, s, c)

	*c.PMEnabled = false
	c.Features["KYC"] = false
	c.AvailableRoles[0] = "B"
	c.Delegates[0].Roles[0] = "B"
	c.Records[0].Role = "B"

	assert.True(t, *s.PMEnabled)
	assert.True(t, s.Features["KYC"])
	assert.Equal(t, Role("A"), s.AvailableRoles[0])
	assert.Equal(t, Role("A"), s.Delegates[0].Roles[0])
	assert.Equal(t, Role("A"), s.Records[0].Role)
}

func TestCloneKeepsUnloaded(t *testing.T) {
	c := ApplicationState{AvailableRoles: []Role{}}.Clone()
	assert.Nil(t, c.PMEnabled)
	assert.Nil(t, c.Features)
	assert.Nil(t, c.Delegates)
	assert.NotNil(t, c.AvailableRoles, "loaded but empty stays distinguishable from unloaded")
}

func TestPermissionsEnabled(t *testing.T) {
	assert.False(t, ApplicationState{}.PermissionsEnabled())
	assert.False(t, ApplicationState{PMEnabled: Bool(false)}.PermissionsEnabled())
	assert.True(t, ApplicationState{PMEnabled: Bool(true)}.PermissionsEnabled())
}

func TestSortedFeatures(t *testing.T) {
	s := ApplicationState{Features: map[Feature]bool{"Shareholders": true, "Dividends": false, "KYC": true}}
	assert.Equal(t, []Feature{"Dividends", "KYC", "Shareholders"}, s.SortedFeatures())
}
