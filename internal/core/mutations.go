package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/internal/store"
)

// TogglePermissions enables or disables role management on the selected
// token.
func (rs *RoleService) TogglePermissions(enable bool) {
	rs.togglePermissions(rs.currentToken(), enable)
}

// AssignRole grants role to address on the selected token
func (rs *RoleService) AssignRole(address string, role models.Role, description string) {
	rs.assignRole(rs.currentToken(), address, role, description)
}

// RevokeRole takes role away from address on the selected token
func (rs *RoleService) RevokeRole(address models.Address, role models.Role) {
	rs.revokeRole(rs.currentToken(), address, role)
}

func (rs *RoleService) togglePermissions(token string, enable bool) {
	if !rs.precheck(token) {
		return
	}
	submit := func(ctx context.Context) (ledger.Job, error) {
		if enable {
			return rs.backend.EnableFeature(ctx, token, models.FeaturePermissions)
		}
		return rs.backend.DisableFeature(ctx, token, models.FeaturePermissions)
	}
	// PMEnabled is acknowledged as the opposite of the toggle target; the
	// TokenSelected that follows clears it before anyone can observe it.
	rs.mutate(token, "Toggle role management", submit, store.MutationAcked{PMEnabled: models.Bool(!enable)})
}

func (rs *RoleService) assignRole(token, address string, role models.Role, description string) {
	if !rs.precheck(token) {
		return
	}
	addr, err := models.ParseAddress(address)
	if err != nil {
		rs.store.Dispatch(store.Error{Message: err.Error()})
		return
	}
	if err := rs.checkRole(role); err != nil {
		rs.store.Dispatch(store.Error{Message: err.Error()})
		return
	}
	submit := func(ctx context.Context) (ledger.Job, error) {
		return rs.backend.AssignRole(ctx, token, addr, role, description)
	}
	rs.mutate(token, fmt.Sprintf("Assigning %s role to %s", role, addr), submit, nil)
}

func (rs *RoleService) revokeRole(token string, address models.Address, role models.Role) {
	if !rs.precheck(token) {
		return
	}
	addr, err := models.ParseAddress(string(address))
	if err != nil {
		rs.store.Dispatch(store.Error{Message: err.Error()})
		return
	}
	if role == "" {
		rs.store.Dispatch(store.Error{Message: "role is required"})
		return
	}
	submit := func(ctx context.Context) (ledger.Job, error) {
		return rs.backend.RevokeRole(ctx, token, addr, role)
	}
	rs.mutate(token, fmt.Sprintf("Revoking %s role from %s", role, addr), submit, nil)
}

// mutate submits a job, runs it to completion, and on success acknowledges
// and invalidates everything loaded for the token so the loaders refetch.
func (rs *RoleService) mutate(token, message string, submit func(ctx context.Context) (ledger.Job, error), ack store.Payload) {
	run := func(ctx context.Context) error {
		job, err := submit(ctx)
		if err != nil {
			return err
		}
		log.Infow("job submitted", "job", job.ID(), "token", token, "operation", message)
		if err := job.Run(ctx); err != nil {
			return err
		}
		log.Infow("job applied", "job", job.ID(), "token", token, "operation", message)
		return nil
	}
	rs.store.RunAsync(store.AsyncRequest{
		Token:    token,
		Resource: store.ResourceMutation,
		Message:  message,
		Task:     store.Ack(run, ack),
		Then:     []store.Action{store.TokenSelected{}},
	})
}

func (rs *RoleService) precheck(token string) bool {
	if rs.backend == nil {
		rs.store.Dispatch(store.Error{Message: "ledger backend is not configured"})
		return false
	}
	if token == "" {
		rs.store.Dispatch(store.Error{Message: "select a security token first"})
		return false
	}
	return true
}

func (rs *RoleService) checkRole(role models.Role) error {
	if role == "" {
		return fmt.Errorf("role is required")
	}
	state := rs.store.State()
	if state.AvailableRoles != nil && !slices.Contains(state.AvailableRoles, role) {
		return fmt.Errorf("role %s is not grantable on this token", role)
	}
	return nil
}
