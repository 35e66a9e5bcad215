package models

// ConfirmationRequest represents a confirmation request (avoiding import cycle)
type ConfirmationRequest struct {
	ID        string // Unique identifier for this confirmation request
	Operation string // Description of the operation to confirm
	Detail    string // Token, address and role the operation touches
	Dangerous bool   // Revocations and disabling permissions
}

// Pane identifies which list receives cursor keys
type Pane int

const (
	TokensPane Pane = iota
	RecordsPane
	AssignPane
)

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	State               ApplicationState     // Latest snapshot pushed by core
	Token               string               // Symbol of the selected token
	Tokens              []SecurityToken      // Token selector entries
	TokenCursor         int                  // Highlighted token
	RecordCursor        int                  // Highlighted role record
	Focus               Pane                 // Pane receiving navigation keys
	Status              string               // Status bar text
	Alert               string               // Error shown until dismissed
	ErrorSeq            uint64               // Error the alert was last opened for
	Width               int                  // Terminal width
	Height              int                  // Terminal height
	ServiceReady        bool                 // Whether the ledger backend is reachable
	Wallet              Address              // Connected wallet
	Endpoint            string               // Ledger endpoint for the header
	PendingConfirmation *ConfirmationRequest // Current confirmation request
}

// SelectedRecord returns the highlighted role record, if any
func (m *AppModel) SelectedRecord() (RoleRecord, bool) {
	if m.RecordCursor < 0 || m.RecordCursor >= len(m.State.Records) {
		return RoleRecord{}, false
	}
	return m.State.Records[m.RecordCursor], true
}
