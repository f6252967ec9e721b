package styles

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Symbols - Unicode with ASCII fallbacks
const (
	SymbolSuccess  = "✓"
	SymbolWarning  = "⚠"
	SymbolExpanded = "▾"
	SymbolFolded   = "▸"
	SymbolChild    = "└"
)

var forceNoColor bool

// SetNoColor disables colors regardless of the environment.
func SetNoColor(v bool) {
	forceNoColor = v
}

// NoColor checks if colors should be disabled
func NoColor() bool {
	return forceNoColor || os.Getenv("NO_COLOR") != "" || os.Getenv("INVGRID_NO_COLOR") != ""
}

// IsAccessible checks if accessibility mode is enabled
// When enabled: no animations, no spinner, simplified output
func IsAccessible() bool {
	return os.Getenv("INVGRID_ACCESSIBLE") == "1" || os.Getenv("INVGRID_ACCESSIBLE") == "true"
}

// Bold is plain bold text.
var Bold = lipgloss.NewStyle().Bold(true)

// Semantic styles - use these instead of raw colors
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoStyle    = lipgloss.NewStyle().Foreground(Info)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)

	InvoiceStyle    = lipgloss.NewStyle().Foreground(ColorInvoice)
	CommissionStyle = lipgloss.NewStyle().Foreground(ColorCommission)
	StitchedStyle   = lipgloss.NewStyle().Foreground(ColorStitched)
	UnusedStyle     = lipgloss.NewStyle().Foreground(ColorUnused)
	ChildStyle      = lipgloss.NewStyle().Foreground(ColorChild)

	DiffAddLine    = lipgloss.NewStyle().Foreground(ColorDiffAdd)
	DiffRemoveLine = lipgloss.NewStyle().Foreground(ColorDiffRemove)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent)

	// Interactive TUI
	CursorStyle = lipgloss.NewStyle().
			Background(BgHighlight).
			Foreground(TextPrimary)
	SelectedStyle = lipgloss.NewStyle().
			Background(BgSelected).
			Foreground(TextPrimary)
)

// render applies a style if colors are enabled
func render(s lipgloss.Style, text string) string {
	if NoColor() {
		return text
	}
	return s.Render(text)
}

// Render applies s unless colors are disabled.
func Render(s lipgloss.Style, text string) string {
	return render(s, text)
}

// Invoice formats an invoice number
func Invoice(number string) string {
	return render(InvoiceStyle, number)
}

// Status colors text in the color of a derived line status.
func Status(status, text string) string {
	switch status {
	case "Commission":
		return render(CommissionStyle, text)
	case "Stitched":
		return render(StitchedStyle, text)
	case "Unused":
		return render(UnusedStyle, text)
	default:
		return text
	}
}

// SuccessMsg formats a success message with checkmark
func SuccessMsg(msg string) string {
	symbol := SymbolSuccess
	if NoColor() {
		symbol = "+"
	}
	return fmt.Sprintf("%s %s", render(SuccessStyle, symbol), msg)
}

// ErrorMsg formats an error message
func ErrorMsg(title string) string {
	return render(ErrorStyle, "Error: "+title)
}

// WarningMsg formats a warning message
func WarningMsg(msg string) string {
	symbol := SymbolWarning
	if NoColor() {
		symbol = "!"
	}
	return fmt.Sprintf("%s %s", render(WarningStyle, symbol), msg)
}

// InfoMsg formats an info message
func InfoMsg(msg string) string {
	return render(InfoStyle, msg)
}

// MutedMsg formats muted/secondary text
func MutedMsg(msg string) string {
	return render(MutedStyle, msg)
}

func Mute(s string) string        { return render(MutedStyle, s) }
func SuccessText(s string) string { return render(SuccessStyle, s) }
func WarningText(s string) string { return render(WarningStyle, s) }
func ErrorText(s string) string   { return render(ErrorStyle, s) }

// Printf-style color functions
func Boldf(format string, a ...any) string    { return render(Bold, fmt.Sprintf(format, a...)) }
func Errorf(format string, a ...any) string   { return ErrorText(fmt.Sprintf(format, a...)) }
func Successf(format string, a ...any) string { return SuccessText(fmt.Sprintf(format, a...)) }
func Warningf(format string, a ...any) string { return WarningText(fmt.Sprintf(format, a...)) }
