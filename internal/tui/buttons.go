package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

// ButtonState represents the visual state of a button.
type ButtonState int

const (
	ButtonNormal   ButtonState = iota // Normal state (enabled)
	ButtonDisabled                    // Disabled state (grayed out)
	ButtonFocused                     // Default action for enter
)

// Button is a single button in the button bar.
type Button struct {
	Label string
	State ButtonState
}

// renderButtons renders buttons centered in width.
func renderButtons(buttons []Button, width int) string {
	if len(buttons) == 0 {
		return ""
	}
	s := theme.Current().S()

	var rendered []string
	for _, btn := range buttons {
		switch btn.State {
		case ButtonDisabled:
			rendered = append(rendered, s.ButtonDisabled.Render(btn.Label))
		case ButtonFocused:
			rendered = append(rendered, s.ButtonFocused.Render(btn.Label))
		default:
			rendered = append(rendered, s.Button.Render(btn.Label))
		}
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(rendered, ""))
}

// renderHintBar renders key-description pairs.
// Example: renderHintBar("↑↓", "navigate", "enter", "select")
// Returns: "↑↓ navigate • enter select"
func renderHintBar(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}
	s := theme.Current().S()

	var b strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(" " + s.HintSeparator.Render("•") + " ")
		}
		b.WriteString(s.HintKey.Render(pairs[i]) + " " + s.HintDesc.Render(pairs[i+1]))
	}
	return b.String()
}
