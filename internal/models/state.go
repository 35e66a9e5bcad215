package models

import (
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Feature names an optionally enabled capability module of a token
type Feature string

// FeaturePermissions gates role management; it is tracked as PMEnabled
// rather than as a generic feature.
const FeaturePermissions Feature = "Permissions"

// Role names a permission that can be granted to a delegate
type Role string

// Address is a 0x-prefixed 20-byte account address in lower case
type Address string

// ParseAddress validates and normalizes an account address
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("address %q: missing 0x prefix", s)
	}
	raw := s[2:]
	if len(raw) != 40 {
		return "", fmt.Errorf("address %q: expected 40 hex digits, got %d", s, len(raw))
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("address %q: %w", s, err)
	}
	return Address("0x" + strings.ToLower(raw)), nil
}

// Short renders the address as 0x1234…abcd for narrow columns
func (a Address) Short() string {
	if len(a) < 12 {
		return string(a)
	}
	return string(a[:6]) + "…" + string(a[len(a)-4:])
}

// SecurityToken is an entry of the token selector
type SecurityToken struct {
	Symbol  string  `json:"symbol"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// Delegate is an address holding one or more roles on a token
type Delegate struct {
	Address     Address `json:"address"`
	Description string  `json:"description"`
	Roles       []Role  `json:"roles"`
}

// RoleRecord is one (delegate, role) pair
type RoleRecord struct {
	Address     Address `json:"address"`
	Description string  `json:"description"`
	Role        Role    `json:"role"`
}

// ApplicationState is the single source of truth for the control surface.
// A nil pointer, map or slice means the field has not been loaded for the
// selected token.
type ApplicationState struct {
	Loading        bool
	LoadingMessage string
	Error          string

	PMEnabled      *bool
	Features       map[Feature]bool
	AvailableRoles []Role
	Delegates      []Delegate
	Records        []RoleRecord
}

// Clone returns a deep copy safe to hand to another goroutine
func (s ApplicationState) Clone() ApplicationState {
	out := s
	if s.PMEnabled != nil {
		v := *s.PMEnabled
		out.PMEnabled = &v
	}
	if s.Features != nil {
		out.Features = maps.Clone(s.Features)
	}
	if s.AvailableRoles != nil {
		out.AvailableRoles = slices.Clone(s.AvailableRoles)
	}
	if s.Delegates != nil {
		out.Delegates = make([]Delegate, len(s.Delegates))
		for i, d := range s.Delegates {
			d.Roles = slices.Clone(d.Roles)
			out.Delegates[i] = d
		}
	}
	if s.Records != nil {
		out.Records = slices.Clone(s.Records)
	}
	return out
}

// PermissionsEnabled reports whether role management is known to be on
func (s ApplicationState) PermissionsEnabled() bool {
	return s.PMEnabled != nil && *s.PMEnabled
}

// SortedFeatures returns feature names in stable display order
func (s ApplicationState) SortedFeatures() []Feature {
	return slices.Sorted(maps.Keys(s.Features))
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}
