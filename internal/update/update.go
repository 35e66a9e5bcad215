package update

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriRoles/internal/eventbus"
	"github.com/Rorical/RoriRoles/internal/models"
)

func HandleUpdateWithEventBus(appModel *models.AppModel, w *Widgets, msg tea.Msg, eb *eventbus.EventBus) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(appModel, w, msg, eb)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, msg)
		return nil
	case spinner.TickMsg:
		return HandleSpinnerTick(appModel, w, msg)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, w, msg)
	}
	if w.Form != nil {
		return w.Form.Update(msg)
	}
	return nil
}
