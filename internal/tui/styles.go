package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("36")
	colorRed   = lipgloss.Color("167")
	colorGreen = lipgloss.Color("35")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	styleTitle       = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim         = lipgloss.NewStyle().Foreground(colorDim)
	styleStatus      = lipgloss.NewStyle().Foreground(colorGray)
	styleError       = lipgloss.NewStyle().Foreground(colorRed)
	styleSuccess     = lipgloss.NewStyle().Foreground(colorGreen)
	styleSelected    = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Background(colorCyan)
	styleTileMissing = lipgloss.NewStyle().Foreground(colorRed).Background(lipgloss.Color("235"))
	styleTileAlt     = lipgloss.NewStyle().Foreground(colorGray).Background(lipgloss.Color("236"))

	styleControl      = lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
	styleControlFocus = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Background(colorCyan).Padding(0, 1)
	styleCounter      = lipgloss.NewStyle().Foreground(colorGray)

	styleDialog      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	styleDialogFocus = styleDialog.BorderForeground(colorCyan)
)
