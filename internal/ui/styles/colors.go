package styles

import "github.com/charmbracelet/lipgloss"

// Dark mode optimized, semantic colors
var (
	Accent  = lipgloss.Color("#7C3AED") // violet-500 - highlights, interactive
	Success = lipgloss.Color("#10B981") // emerald-500 - confirmed changes
	Warning = lipgloss.Color("#F59E0B") // amber-500 - warnings, pending
	Error   = lipgloss.Color("#EF4444") // red-500 - errors, reverts
	Info    = lipgloss.Color("#3B82F6") // blue-500 - info, invoice numbers
	Muted   = lipgloss.Color("#6B7280") // gray-500 - secondary text

	TextPrimary   = lipgloss.Color("#F9FAFB") // gray-50
	TextSecondary = lipgloss.Color("#9CA3AF") // gray-400

	BgHighlight = lipgloss.Color("#1F2937") // gray-800 - cursor row
	BgSelected  = lipgloss.Color("#312E81") // indigo-900 - selected rows
	BgBorder    = lipgloss.Color("#374151") // gray-700
)

// Semantic color aliases
var (
	ColorInvoice    = Info
	ColorCommission = Success
	ColorStitched   = Warning
	ColorUnused     = Muted
	ColorChild      = TextSecondary

	ColorDiffAdd    = Success
	ColorDiffRemove = Error
)
