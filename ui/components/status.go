package components

import (
	"github.com/Rorical/RoriRoles/ui/styles"
)

func RenderStatus(status string, loading bool, spinner string, help string, width int) string {
	statusStyle := styles.StatusStyle(width)

	statusContent := status
	if loading {
		statusContent = spinner + " " + status
	}
	if help != "" {
		statusContent += "  │  " + help
	}

	return statusStyle.Render(statusContent)
}
