// Package earlyinit must be imported before github.com/charmbracelet/bubbletea
// in cmd/arrow. Its init pre-sets lipgloss's dark-background flag so that
// bubbletea's package init finds the value cached and never sends the OSC 11
// background colour query.
//
// Some terminals (WSL2 in particular) answer the cursor-position probe before
// the OSC 11 reply. termenv then gives up and the late reply stays in the PTY
// buffer, where bubbletea reads it as keystrokes that land in the chat input.
package earlyinit

import "github.com/charmbracelet/lipgloss"

func init() {
	lipgloss.SetHasDarkBackground(true)
}
