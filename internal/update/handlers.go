package update

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriRoles/internal/eventbus"
	"github.com/Rorical/RoriRoles/internal/models"
)

// Widgets are the stateful bubbles components next to the plain model
type Widgets struct {
	Spinner spinner.Model
	Form    *AssignForm
	Keys    KeyMap
}

func NewWidgets() *Widgets {
	return &Widgets{
		Spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		Keys:    DefaultKeyMap(),
	}
}

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, w *Widgets, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	keys := w.Keys

	if pending := appModel.PendingConfirmation; pending != nil {
		switch {
		case key.Matches(keyMsg, keys.Yes):
			appModel.PendingConfirmation = nil
			send(appModel, eb, eventbus.ConfirmationResponseEvent{ID: pending.ID, Approved: true})
		case key.Matches(keyMsg, keys.No):
			appModel.PendingConfirmation = nil
			send(appModel, eb, eventbus.ConfirmationResponseEvent{ID: pending.ID, Approved: false})
		}
		return nil
	}

	if appModel.Focus == models.AssignPane && w.Form != nil {
		return handleFormKey(appModel, w, keyMsg, eb)
	}

	switch {
	case key.Matches(keyMsg, keys.Quit):
		return tea.Quit
	case key.Matches(keyMsg, keys.Dismiss):
		appModel.Alert = ""
	case key.Matches(keyMsg, keys.Switch):
		if appModel.Focus == models.TokensPane && len(appModel.State.Records) > 0 {
			appModel.Focus = models.RecordsPane
		} else {
			appModel.Focus = models.TokensPane
		}
	case key.Matches(keyMsg, keys.Up):
		moveCursor(appModel, -1)
	case key.Matches(keyMsg, keys.Down):
		moveCursor(appModel, 1)
	case key.Matches(keyMsg, keys.Select):
		if appModel.Focus == models.TokensPane && appModel.TokenCursor < len(appModel.Tokens) {
			send(appModel, eb, eventbus.SelectTokenEvent{Symbol: appModel.Tokens[appModel.TokenCursor].Symbol})
		}
	case key.Matches(keyMsg, keys.Toggle):
		if appModel.Token == "" || appModel.State.PMEnabled == nil {
			appModel.Status = "Feature status is not loaded yet"
			return nil
		}
		send(appModel, eb, eventbus.TogglePermissionsEvent{Enable: !appModel.State.PermissionsEnabled()})
	case key.Matches(keyMsg, keys.Assign):
		if !appModel.State.PermissionsEnabled() {
			appModel.Status = "Enable permissions to assign roles"
			return nil
		}
		w.Form = NewAssignForm(appModel.State.AvailableRoles)
		appModel.Focus = models.AssignPane
	case key.Matches(keyMsg, keys.Revoke):
		record, ok := appModel.SelectedRecord()
		if !ok || appModel.Focus != models.RecordsPane {
			appModel.Status = "Select a role record to revoke"
			return nil
		}
		send(appModel, eb, eventbus.RevokeRoleEvent{Address: record.Address, Role: record.Role})
	case key.Matches(keyMsg, keys.Reload):
		send(appModel, eb, eventbus.ReloadEvent{})
	case key.Matches(keyMsg, keys.Tokens):
		send(appModel, eb, eventbus.RefreshTokensEvent{})
	}
	return nil
}

func handleFormKey(appModel *models.AppModel, w *Widgets, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch keyMsg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		w.Form = nil
		appModel.Focus = models.RecordsPane
		return nil
	case tea.KeyTab:
		w.Form.Next()
		return nil
	case tea.KeyEnter:
		if !w.Form.Next() {
			return nil
		}
		address, role, description := w.Form.Values()
		w.Form = nil
		appModel.Focus = models.RecordsPane
		send(appModel, eb, eventbus.AssignRoleEvent{Address: address, Role: role, Description: description})
		return nil
	}
	return w.Form.Update(keyMsg)
}

func send(appModel *models.AppModel, eb *eventbus.EventBus, event eventbus.UIEvent) {
	if err := eb.SendToCore(event); err != nil {
		appModel.Status = "Error sending event: " + err.Error()
	}
}

func moveCursor(appModel *models.AppModel, delta int) {
	switch appModel.Focus {
	case models.TokensPane:
		appModel.TokenCursor = clamp(appModel.TokenCursor+delta, len(appModel.Tokens))
	case models.RecordsPane:
		appModel.RecordCursor = clamp(appModel.RecordCursor+delta, len(appModel.State.Records))
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, w *Widgets, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		// a new error reopens the alert even if the previous one was dismissed
		// and carried the same message
		switch {
		case event.State.Error == "":
			appModel.Alert = ""
		case event.ErrorSeq != appModel.ErrorSeq:
			appModel.Alert = event.State.Error
		}
		appModel.ErrorSeq = event.ErrorSeq
		wasLoading := appModel.State.Loading
		appModel.State = event.State
		appModel.Token = event.Token
		appModel.Tokens = event.Tokens
		appModel.TokenCursor = clamp(appModel.TokenCursor, len(appModel.Tokens))
		appModel.RecordCursor = clamp(appModel.RecordCursor, len(appModel.State.Records))
		if appModel.Focus == models.RecordsPane && len(appModel.State.Records) == 0 {
			appModel.Focus = models.TokensPane
		}
		appModel.Status = deriveStatus(appModel)

		if appModel.State.Loading && !wasLoading {
			return w.Spinner.Tick
		}
	case eventbus.ConfirmationRequestEvent:
		appModel.PendingConfirmation = &models.ConfirmationRequest{
			ID:        event.ID,
			Operation: event.Operation,
			Detail:    event.Detail,
			Dangerous: event.Dangerous,
		}
	}

	return nil
}

// deriveStatus mirrors what the loading overlay would say
func deriveStatus(appModel *models.AppModel) string {
	switch {
	case appModel.State.Loading:
		return appModel.State.LoadingMessage
	case appModel.State.Error != "":
		return "Error"
	case !appModel.ServiceReady:
		return "Ledger not configured"
	case appModel.Tokens == nil:
		return "Loading your security tokens"
	case appModel.Token == "":
		return "Select a security token"
	}
	return "Ready"
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}

func HandleSpinnerTick(appModel *models.AppModel, w *Widgets, msg spinner.TickMsg) tea.Cmd {
	// let the spinner stop once nothing is loading
	if !appModel.State.Loading {
		return nil
	}
	var cmd tea.Cmd
	w.Spinner, cmd = w.Spinner.Update(msg)
	return cmd
}
