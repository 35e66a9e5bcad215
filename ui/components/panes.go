package components

import (
	"fmt"
	"strings"

	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/ui/styles"
)

func RenderHeader(endpoint string, wallet models.Address) string {
	w := string(wallet)
	if w == "" {
		w = "no wallet"
	}
	return styles.HeaderStyle().Render(fmt.Sprintf("RORIROLES  %s  %s", endpoint, w)) + "\n"
}

func RenderTokens(tokens []models.SecurityToken, selected string, cursor int, focused bool, width int) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle().Render("Security tokens") + "\n")
	if tokens == nil {
		b.WriteString(styles.MutedStyle().Render("loading…"))
		return styles.PaneStyle(width, focused).Render(b.String())
	}
	if len(tokens) == 0 {
		b.WriteString(styles.MutedStyle().Render("this wallet owns no security tokens"))
		return styles.PaneStyle(width, focused).Render(b.String())
	}
	for i, t := range tokens {
		marker := "  "
		if focused && i == cursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s%-6s %s", marker, t.Symbol, t.Name)
		if t.Symbol == selected {
			line = styles.SelectedStyle().Render(line + "  ✓")
		}
		b.WriteString(line + "\n")
	}
	return styles.PaneStyle(width, focused).Render(strings.TrimRight(b.String(), "\n"))
}

// RenderFeatures shows Permissions first, then every other feature by name
func RenderFeatures(state models.ApplicationState, width int) string {
	if state.Features == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.TitleStyle().Render("Token features") + "\n")
	b.WriteString(featureLine("Permissions", state.PermissionsEnabled()))
	if !state.PermissionsEnabled() {
		b.WriteString(styles.MutedStyle().Render("  (p to enable)"))
	}
	b.WriteString("\n")
	for _, f := range state.SortedFeatures() {
		b.WriteString(featureLine(splitWords(string(f)), state.Features[f]) + "\n")
	}
	return styles.PaneStyle(width, false).Render(strings.TrimRight(b.String(), "\n"))
}

func featureLine(label string, enabled bool) string {
	badge := styles.DisabledStyle().Render("● disabled")
	if enabled {
		badge = styles.EnabledStyle().Render("● enabled")
	}
	return fmt.Sprintf("%-24s %s", label, badge)
}

// RenderRecords lists one line per (delegate, role) pair
func RenderRecords(state models.ApplicationState, cursor int, focused bool, width int) string {
	if state.AvailableRoles == nil || state.Records == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.TitleStyle().Render("Delegates (administrators and operators)") + "\n")
	if len(state.Records) == 0 {
		b.WriteString(styles.MutedStyle().Render("no roles assigned (a to assign)"))
	}
	for i, r := range state.Records {
		marker := "  "
		if focused && i == cursor {
			marker = "> "
		}
		addr, pad := string(r.Address), 44
		if width < 110 {
			addr, pad = r.Address.Short(), 14
		}
		line := fmt.Sprintf("%s%-*s %-34s %s", marker, pad, addr, r.Role, r.Description)
		if focused && i == cursor {
			line = styles.SelectedStyle().Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(state.AvailableRoles) > 0 {
		roles := make([]string, len(state.AvailableRoles))
		for i, r := range state.AvailableRoles {
			roles[i] = string(r)
		}
		b.WriteString(styles.MutedStyle().Render("grantable: " + strings.Join(roles, ", ")))
	}
	return styles.PaneStyle(width, focused).Render(strings.TrimRight(b.String(), "\n"))
}

func RenderAlert(alert string, width int) string {
	if alert == "" {
		return ""
	}
	return styles.AlertStyle(width).Render(alert+"  (esc to dismiss)") + "\n"
}

func RenderConfirmation(req *models.ConfirmationRequest) string {
	if req == nil {
		return ""
	}
	body := fmt.Sprintf("%s\n%s\n\n[y] confirm   [n] cancel", req.Operation, req.Detail)
	return styles.ConfirmStyle(req.Dangerous).Render(body) + "\n"
}

func RenderAssignForm(form string, width int) string {
	title := styles.TitleStyle().Render("Assign role") + "  " + styles.MutedStyle().Render("enter: next/submit  tab: next  esc: cancel")
	return styles.PaneStyle(width, true).Render(title+"\n"+strings.TrimRight(form, "\n")) + "\n"
}

// splitWords turns TransferRestrictions into "Transfer Restrictions"
func splitWords(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
