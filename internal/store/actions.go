package store

import (
	"fmt"

	"github.com/Rorical/RoriRoles/internal/models"
)

// Action is a state transition request. The set is closed: only the
// variants in this file implement it.
type Action interface {
	action()
	Kind() string
}

// Payload is the result of a successful async operation. The set is closed.
type Payload interface {
	payload()
	apply(*models.ApplicationState)
}

// AsyncStart marks the beginning of an async envelope
type AsyncStart struct {
	Message string
}

// AsyncComplete merges a successful result into state. A nil Payload is a
// bare acknowledgement.
type AsyncComplete struct {
	Payload Payload
}

// AsyncError reports a failed async envelope
type AsyncError struct {
	Message string
}

// Error reports a failure that did not come from an envelope
type Error struct {
	Message string
}

// TokenSelected invalidates everything derived for the previous token
type TokenSelected struct{}

// AsyncSettled clears the loading indicator after a stale result was
// dropped and nothing else is in flight.
type AsyncSettled struct{}

func (AsyncStart) action()    {}
func (AsyncComplete) action() {}
func (AsyncError) action()    {}
func (Error) action()         {}
func (TokenSelected) action() {}
func (AsyncSettled) action()  {}

func (AsyncStart) Kind() string    { return "ASYNC_START" }
func (AsyncComplete) Kind() string { return "ASYNC_COMPLETE" }
func (AsyncError) Kind() string    { return "ASYNC_ERROR" }
func (Error) Kind() string         { return "ERROR" }
func (TokenSelected) Kind() string { return "TOKEN_SELECTED" }
func (AsyncSettled) Kind() string  { return "ASYNC_SETTLED" }

// FeatureStatusLoaded is produced by the feature-status loader
type FeatureStatusLoaded struct {
	Features       map[models.Feature]bool
	PMEnabled      bool
	AvailableRoles []models.Role
}

// DelegatesLoaded is produced by the delegate loader
type DelegatesLoaded struct {
	Delegates []models.Delegate
	Records   []models.RoleRecord
}

// MutationAcked carries any field a mutation knows directly
type MutationAcked struct {
	PMEnabled *bool
}

func (FeatureStatusLoaded) payload() {}
func (DelegatesLoaded) payload()     {}
func (MutationAcked) payload()       {}

func (p FeatureStatusLoaded) apply(s *models.ApplicationState) {
	s.Features = p.Features
	s.PMEnabled = models.Bool(p.PMEnabled)
	s.AvailableRoles = p.AvailableRoles
}

func (p DelegatesLoaded) apply(s *models.ApplicationState) {
	s.Delegates = p.Delegates
	s.Records = p.Records
}

func (p MutationAcked) apply(s *models.ApplicationState) {
	if p.PMEnabled != nil {
		s.PMEnabled = models.Bool(*p.PMEnabled)
	}
}

// UnknownActionError is the panic value raised by Reduce for an action it
// does not recognize.
type UnknownActionError struct {
	Action Action
}

func (e *UnknownActionError) Error() string {
	if e.Action == nil {
		return "unrecognized action type: <nil>"
	}
	return fmt.Sprintf("unrecognized action type: %T", e.Action)
}
