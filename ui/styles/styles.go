package styles

import "github.com/charmbracelet/lipgloss"

func PaneStyle(width int, focused bool) lipgloss.Style {
	border := lipgloss.Color("238")
	if focused {
		border = lipgloss.Color("62")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(width-4, 10))
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("141")).
		Bold(true).
		Padding(0, 2)
}

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Bold(true)
}

func SelectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
}

func EnabledStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
}

func DisabledStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("203"))
}

func AlertStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("203")).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("203")).
		Padding(0, 1).
		MarginLeft(2).
		Width(max(width-6, 10))
}

func ConfirmStyle(dangerous bool) lipgloss.Style {
	color := lipgloss.Color("214")
	if dangerous {
		color = lipgloss.Color("203")
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Padding(0, 2).
		MarginLeft(2)
}
