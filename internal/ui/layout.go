// Package ui provides the shared frame the root model renders views
// into: a single-line header, a content area, and a hint bar.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/theme"
)

// Frame rows reserved above and below the content area.
const (
	headerRows = 1
	statusRows = 1
)

// Layout tracks terminal dimensions and renders the surrounding chrome.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width available to the active view.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows available to the active view.
func (l Layout) ContentHeight() int {
	h := l.Height - headerRows - statusRows
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader draws the top bar: title on the left, sync state on the
// right, both on the header background.
func (l Layout) RenderHeader(title, status string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(status)

	middle := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if middle < 0 {
		middle = 0
	}
	pad := theme.HeaderStyle.Width(middle).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, pad, right)
}

// RenderStatusBar draws the bottom bar, padded to the full width so the
// background extends across the terminal.
func (l Layout) RenderStatusBar(hints string) string {
	return theme.StatusBarStyle.Width(l.Width).Render(hints)
}

// RenderWithFrame stacks the header, content and status bar into the
// final screen.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
