package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/internal/update"
	"github.com/Rorical/RoriRoles/ui/components"
)

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.widgets.Spinner.Tick,
		m.dispatcher.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and continue listening
	if coreEvent, ok := msg.(update.CoreEventMsg); ok {
		cmd := update.HandleCoreEvent(&m.appModel, m.widgets, coreEvent)
		return m, tea.Batch(cmd, m.dispatcher.ListenForCoreEvents())
	}

	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, m.widgets, msg, eventBus)

	return m, cmd
}

func (m *AppModel) View() string {
	var b strings.Builder
	am := &m.appModel
	width := am.Width
	if width == 0 {
		width = 100
	}

	b.WriteString(components.RenderHeader(am.Endpoint, am.Wallet))
	b.WriteString(components.RenderTokens(am.Tokens, am.Token, am.TokenCursor, am.Focus == models.TokensPane, width))
	b.WriteString("\n")
	if am.Token != "" {
		if features := components.RenderFeatures(am.State, width); features != "" {
			b.WriteString(features + "\n")
		}
		if records := components.RenderRecords(am.State, am.RecordCursor, am.Focus == models.RecordsPane, width); records != "" {
			b.WriteString(records + "\n")
		}
	}
	if m.widgets.Form != nil {
		b.WriteString(components.RenderAssignForm(m.widgets.Form.View(), width))
	}
	b.WriteString(components.RenderConfirmation(am.PendingConfirmation))
	b.WriteString(components.RenderAlert(am.Alert, width))

	h := help.New()
	h.Width = width / 2
	b.WriteString(components.RenderStatus(am.Status, am.State.Loading, m.widgets.Spinner.View(), h.ShortHelpView(m.widgets.Keys.ShortHelp()), width))

	return b.String()
}
