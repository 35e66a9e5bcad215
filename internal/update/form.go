package update

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriRoles/internal/models"
)

const (
	fieldAddress = iota
	fieldRole
	fieldDescription
	fieldCount
)

// AssignForm collects the inputs of a role grant
type AssignForm struct {
	Inputs [fieldCount]textinput.Model
	Focus  int
}

// NewAssignForm builds the form; roles feed the role field's suggestions
func NewAssignForm(roles []models.Role) *AssignForm {
	f := &AssignForm{}

	addr := textinput.New()
	addr.Placeholder = "0x…"
	addr.Prompt = "Address:     "
	addr.CharLimit = 42

	role := textinput.New()
	role.Prompt = "Role:        "
	role.ShowSuggestions = true
	suggestions := make([]string, 0, len(roles))
	for _, r := range roles {
		suggestions = append(suggestions, string(r))
	}
	role.SetSuggestions(suggestions)
	if len(roles) > 0 {
		role.Placeholder = string(roles[0])
	}

	desc := textinput.New()
	desc.Prompt = "Description: "
	desc.CharLimit = 64

	f.Inputs = [fieldCount]textinput.Model{addr, role, desc}
	f.Inputs[fieldAddress].Focus()
	return f
}

// Next moves focus forward and reports whether the last field was left
func (f *AssignForm) Next() bool {
	f.Inputs[f.Focus].Blur()
	f.Focus++
	if f.Focus >= fieldCount {
		f.Focus = fieldCount - 1
		f.Inputs[f.Focus].Focus()
		return true
	}
	f.Inputs[f.Focus].Focus()
	return false
}

func (f *AssignForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.Inputs[f.Focus], cmd = f.Inputs[f.Focus].Update(msg)
	return cmd
}

// Values returns the trimmed address, role and description. An empty role
// falls back to the placeholder, i.e. the first grantable role.
func (f *AssignForm) Values() (address string, role models.Role, description string) {
	address = strings.TrimSpace(f.Inputs[fieldAddress].Value())
	r := strings.TrimSpace(f.Inputs[fieldRole].Value())
	if r == "" {
		r = f.Inputs[fieldRole].Placeholder
	}
	description = strings.TrimSpace(f.Inputs[fieldDescription].Value())
	return address, models.Role(r), description
}

func (f *AssignForm) View() string {
	var b strings.Builder
	for i := range f.Inputs {
		b.WriteString(f.Inputs[i].View())
		b.WriteString("\n")
	}
	return b.String()
}
