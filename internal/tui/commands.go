package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// noticeDuration is how long transient notices stay visible.
const noticeDuration = 3 * time.Second

// openDashboardCmd launches the platform browser at url.
func openDashboardCmd(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		if err := cmd.Start(); err != nil {
			return openResultMsg{Err: fmt.Errorf("open browser: %w", err)}
		}
		return openResultMsg{}
	}
}

// clearNoticeCmd schedules clearing the transient notice.
func clearNoticeCmd() tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// shutdownDeadlineCmd guards host exit: if shutdown has not confirmed within
// the fallback deadline, the program exits anyway.
func shutdownDeadlineCmd(deadline time.Duration) tea.Cmd {
	return tea.Tick(deadline, func(time.Time) tea.Msg {
		return shutdownDeadlineMsg{}
	})
}
