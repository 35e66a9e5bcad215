package core

import (
	"slices"
	"sync"

	"github.com/Rorical/RoriRoles/internal/models"
)

// SessionState holds what the core knows outside ApplicationState: the
// connected wallet and the token selector's entries.
type SessionState struct {
	mu           sync.RWMutex
	wallet       models.Address
	tokens       []models.SecurityToken
	tokensLoaded bool
}

func NewSessionState(wallet models.Address) *SessionState {
	return &SessionState{wallet: wallet}
}

func (ss *SessionState) Wallet() models.Address {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.wallet
}

func (ss *SessionState) SetTokens(tokens []models.SecurityToken) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.tokens = slices.Clone(tokens)
	ss.tokensLoaded = true
}

// Tokens returns the selector entries; nil until they have been loaded
func (ss *SessionState) Tokens() []models.SecurityToken {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if !ss.tokensLoaded {
		return nil
	}
	out := make([]models.SecurityToken, len(ss.tokens))
	copy(out, ss.tokens)
	return out
}

// HasToken reports whether symbol is selectable. Before the selector has
// loaded every symbol is accepted.
func (ss *SessionState) HasToken(symbol string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if !ss.tokensLoaded {
		return true
	}
	return slices.ContainsFunc(ss.tokens, func(t models.SecurityToken) bool { return t.Symbol == symbol })
}
