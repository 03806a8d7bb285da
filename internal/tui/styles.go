package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary = lipgloss.Color("#7C3AED")
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#F59E0B")
	colorDanger  = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 1)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleSafe = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	styleDanger = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleTableHeader = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(colorPrimary).
				Padding(0, 1)

	styleTableRow = lipgloss.NewStyle().
			Padding(0, 1)

	styleTableRowSelected = lipgloss.NewStyle().
				Background(lipgloss.Color("#1F2937")).
				Foreground(lipgloss.Color("#FFFFFF")).
				Padding(0, 1)

	styleSection = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(18)

	styleValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))
)

// RiskIcon 按风险等级返回带颜色的标记
func RiskIcon(level string) string {
	switch level {
	case "success":
		return styleSafe.Render("●")
	case "warning":
		return styleWarning.Render("◐")
	case "danger":
		return styleDanger.Render("○")
	default:
		return styleMuted().Render("?")
	}
}

// RiskBadge 渲染风险文案，颜色与 RiskIcon 一致
func RiskBadge(level, label string) string {
	switch level {
	case "success":
		return styleSafe.Render(label)
	case "warning":
		return styleWarning.Render(label)
	case "danger":
		return styleDanger.Render(label)
	default:
		return label
	}
}

func styleMuted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorMuted)
}

// ScoreBar 把 0-100 的风险分渲染成条形
func ScoreBar(score, width int) string {
	score = min(max(score, 0), 100)
	filled := width * score / 100
	style := styleSafe
	switch {
	case score >= 60:
		style = styleDanger
	case score >= 30:
		style = styleWarning
	}
	bar := style.Render(repeat("█", filled))
	return bar + styleMuted().Render(repeat("░", width-filled))
}
