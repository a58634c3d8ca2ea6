package theme

import "charm.land/lipgloss/v2"

// Styles contains all pre-built lipgloss styles.
type Styles struct {
	ModalContainer lipgloss.Style
	ModalTitle     lipgloss.Style

	Label   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style

	Button         lipgloss.Style
	ButtonDisabled lipgloss.Style
	ButtonFocused  lipgloss.Style

	ProgressEmpty lipgloss.Style

	HintKey       lipgloss.Style
	HintDesc      lipgloss.Style
	HintSeparator lipgloss.Style
}

// buildStyles constructs the pre-built styles from theme colors.
func (t *Theme) buildStyles() *Styles {
	button := lipgloss.NewStyle().
		Padding(0, 2).
		MarginLeft(1).
		MarginRight(1)

	return &Styles{
		ModalContainer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Tertiary)).
			Padding(1, 2),
		ModalTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true),

		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgOverlay)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		ListItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.FgBase)).
			PaddingLeft(2),
		ListItemSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true).
			PaddingLeft(2),

		Button: button.
			Foreground(lipgloss.Color(t.FgBase)).
			Background(lipgloss.Color(t.BgSurface0)),
		ButtonDisabled: button.
			Foreground(lipgloss.Color(t.BgOverlay)).
			Background(lipgloss.Color(t.BgMantle)),
		ButtonFocused: button.
			Foreground(lipgloss.Color(t.BgBase)).
			Background(lipgloss.Color(t.Tertiary)).
			Bold(true),

		ProgressEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgSurface1)),

		HintKey:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)).Bold(true),
		HintDesc:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		HintSeparator: lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgSurface2)),
	}
}
