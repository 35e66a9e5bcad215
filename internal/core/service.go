package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/Rorical/RoriRoles/internal/config"
	"github.com/Rorical/RoriRoles/internal/eventbus"
	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/loader"
	"github.com/Rorical/RoriRoles/internal/store"
)

var log = logging.Logger("core")

// Options tune a RoleService
type Options struct {
	// Confirm makes every mutation wait for a ConfirmationResponseEvent
	Confirm bool
	// Token is selected on Start instead of the profile's default token
	Token string
}

type RoleService struct {
	backend         ledger.Backend
	config          *config.Config
	store           *store.Store
	session         *SessionState
	eventBus        *eventbus.EventBus
	opts            Options
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	pendingConfirms map[string]chan bool // Track pending confirmations
	confirmMutex    sync.RWMutex         // Protect pendingConfirms map
}

// NewRoleService creates a RoleService even without a backend, so the UI
// always has a core to talk to. eb may be nil for headless use.
func NewRoleService(cfg *config.Config, backend ledger.Backend, eb *eventbus.EventBus, opts Options) *RoleService {
	ctx, cancel := context.WithCancel(context.Background())

	var effects []store.Effect
	if backend != nil {
		effects = append(effects,
			loader.FeatureStatusEffect(backend),
			loader.DelegatesEffect(backend),
		)
	}

	return &RoleService{
		backend:         backend,
		config:          cfg,
		store:           store.New(effects...),
		session:         NewSessionState(cfg.GetWallet()),
		eventBus:        eb,
		opts:            opts,
		ctx:             ctx,
		cancel:          cancel,
		pendingConfirms: make(map[string]chan bool),
	}
}

// Start runs the store and, with an event bus, the UI event loop
func (rs *RoleService) Start() {
	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		rs.store.Run(rs.ctx)
	}()

	if rs.eventBus != nil {
		rs.wg.Add(2)
		go func() {
			defer rs.wg.Done()
			rs.forwardState()
		}()
		go func() {
			defer rs.wg.Done()
			rs.eventLoop()
		}()
	}

	if !rs.IsReady() {
		rs.store.Dispatch(store.Error{Message: "ledger endpoint is not configured; run: roriroles profile add"})
		return
	}
	if rs.opts.Token != "" {
		rs.SelectToken(rs.opts.Token)
	}
	rs.RefreshTokens()
}

func (rs *RoleService) Stop() {
	rs.cancel()
	rs.wg.Wait()
}

// Store exposes the state owner for headless callers
func (rs *RoleService) Store() *store.Store {
	return rs.store
}

func (rs *RoleService) Session() *SessionState {
	return rs.session
}

func (rs *RoleService) IsReady() bool {
	return rs.backend != nil && rs.config.IsValid()
}

func (rs *RoleService) eventLoop() {
	for {
		select {
		case <-rs.ctx.Done():
			return
		case event, ok := <-rs.eventBus.UIToCore():
			if !ok {
				return
			}
			rs.handleUIEvent(event)
		}
	}
}

func (rs *RoleService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SelectTokenEvent:
		rs.SelectToken(e.Symbol)
	case eventbus.RefreshTokensEvent:
		rs.RefreshTokens()
	case eventbus.ReloadEvent:
		rs.Reload()
	case eventbus.TogglePermissionsEvent:
		token := rs.currentToken()
		rs.confirmThen(toggleOperation(e.Enable), token, !e.Enable, func() {
			rs.togglePermissions(token, e.Enable)
		})
	case eventbus.AssignRoleEvent:
		token := rs.currentToken()
		detail := fmt.Sprintf("%s: grant %s to %s", token, e.Role, e.Address)
		rs.confirmThen("Assign role", detail, false, func() {
			rs.assignRole(token, e.Address, e.Role, e.Description)
		})
	case eventbus.RevokeRoleEvent:
		token := rs.currentToken()
		detail := fmt.Sprintf("%s: revoke %s from %s", token, e.Role, e.Address)
		rs.confirmThen("Revoke role", detail, true, func() {
			rs.revokeRole(token, e.Address, e.Role)
		})
	case eventbus.ConfirmationResponseEvent:
		rs.handleConfirmationResponse(e)
	}
}

// SelectToken makes symbol the current token. Everything derived for the
// previous token is dropped before the loaders run again.
func (rs *RoleService) SelectToken(symbol string) {
	if !rs.session.HasToken(symbol) {
		rs.store.Dispatch(store.Error{Message: fmt.Sprintf("unknown security token %q", symbol)})
		return
	}
	rs.store.Select(symbol)
}

// Reload re-runs the loaders for the selected token
func (rs *RoleService) Reload() {
	rs.store.Dispatch(store.TokenSelected{})
}

// RefreshTokens reloads the token selector for the connected wallet and
// selects the profile's default token if nothing is selected yet.
func (rs *RoleService) RefreshTokens() {
	if rs.backend == nil {
		return
	}
	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		tokens, err := rs.backend.GetSecurityTokens(rs.ctx, rs.session.Wallet())
		if err != nil {
			log.Errorw("loading security tokens", "wallet", rs.session.Wallet(), "error", err)
			rs.store.Dispatch(store.Error{Message: "loading your security tokens: " + err.Error()})
			return
		}
		rs.session.SetTokens(tokens)
		log.Infow("security tokens loaded", "wallet", rs.session.Wallet(), "count", len(tokens))

		if def := rs.config.GetDefaultToken(); def != "" && rs.opts.Token == "" && rs.currentToken() == "" {
			rs.SelectToken(def)
			return
		}
		rs.pushStateToUI(rs.store.Snapshot())
	}()
}

func (rs *RoleService) currentToken() string {
	return rs.store.Snapshot().Token
}

func (rs *RoleService) forwardState() {
	updates := rs.store.Subscribe()
	for {
		select {
		case <-rs.ctx.Done():
			return
		case snap := <-updates:
			rs.pushStateToUI(snap)
		}
	}
}

func (rs *RoleService) pushStateToUI(snap store.Snapshot) {
	if rs.eventBus == nil {
		return
	}
	if err := rs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		State:   snap.State,
		Token:   snap.Token,
		Tokens:  rs.session.Tokens(),
		Pending:  snap.Pending,
		ErrorSeq: snap.ErrorSeq,
	}); err != nil {
		log.Warnw("sending state to UI", "error", err)
	}
}

// confirmThen runs fn, first asking the user when confirmations are on.
// The wait happens off the event loop so the response can be received.
func (rs *RoleService) confirmThen(operation, detail string, dangerous bool, fn func()) {
	if !rs.opts.Confirm {
		fn()
		return
	}
	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		if !rs.requestUserConfirmation(operation, detail, dangerous) {
			log.Infow("operation declined", "operation", operation, "detail", detail)
			return
		}
		fn()
	}()
}

// requestUserConfirmation sends a confirmation request to the UI and waits for response
func (rs *RoleService) requestUserConfirmation(operation, detail string, dangerous bool) bool {
	id := uuid.NewString()

	responseChan := make(chan bool, 1)

	rs.confirmMutex.Lock()
	rs.pendingConfirms[id] = responseChan
	rs.confirmMutex.Unlock()

	defer func() {
		rs.confirmMutex.Lock()
		delete(rs.pendingConfirms, id)
		rs.confirmMutex.Unlock()
	}()

	request := eventbus.ConfirmationRequestEvent{
		ID:        id,
		Operation: operation,
		Detail:    detail,
		Dangerous: dangerous,
	}
	if err := rs.eventBus.SendToUI(request); err != nil {
		log.Warnw("sending confirmation request", "error", err)
		return false
	}

	select {
	case approved := <-responseChan:
		return approved
	case <-rs.ctx.Done():
		return false
	}
}

// handleConfirmationResponse handles confirmation responses from the UI
func (rs *RoleService) handleConfirmationResponse(response eventbus.ConfirmationResponseEvent) {
	rs.confirmMutex.RLock()
	responseChan, exists := rs.pendingConfirms[response.ID]
	rs.confirmMutex.RUnlock()

	if exists {
		select {
		case responseChan <- response.Approved:
		default:
			// already answered
		}
	}
}

func toggleOperation(enable bool) string {
	if enable {
		return "Enable role management"
	}
	return "Disable role management"
}
