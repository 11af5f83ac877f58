// Package theme styles metahub's terminal output.
package theme

import (
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

// IconSet represents a collection of icons keyed by semantic usage.
type IconSet map[string]string

func (s IconSet) clone() IconSet {
	if s == nil {
		return nil
	}
	clone := make(IconSet, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Colors holds the shared color palette.
type Colors struct {
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// BadgeKind enumerates supported badge style variants.
type BadgeKind int

const (
	BadgeInfo BadgeKind = iota
	BadgeSuccess
	BadgeWarning
	BadgeError
	BadgeMuted
)

// Theme centralizes palette, table border and icon configuration.
type Theme struct {
	colors   Colors
	border   lipgloss.Border
	icons    IconSet
	fallback IconSet
}

// Option configures a Theme during construction.
type Option func(*Theme)

// WithIconSet overrides the icon set used by the theme.
func WithIconSet(set IconSet) Option {
	return func(t *Theme) {
		t.icons = set.clone()
	}
}

// WithColors overrides the base color palette.
func WithColors(colors Colors) Option {
	return func(t *Theme) {
		t.colors = colors
	}
}

// WithBorder overrides the table border.
func WithBorder(border lipgloss.Border) Option {
	return func(t *Theme) {
		t.border = border
	}
}

// New constructs a Theme with optional overrides applied.
func New(opts ...Option) Theme {
	defaults := []Option{
		WithColors(Colors{
			Primary:    lipgloss.Color("#3a6b4a"),
			Accent:     lipgloss.Color("#8fc279"),
			Background: lipgloss.Color("#f8f8f8"),
			Muted:      lipgloss.Color("#9ba8c0"),
			Success:    lipgloss.Color("#5dc796"),
			Warning:    lipgloss.Color("#e5b045"),
			Error:      lipgloss.Color("#f04c56"),
		}),
		WithBorder(lipgloss.RoundedBorder()),
		WithIconSet(defaultIconSet()),
	}

	t := Theme{fallback: asciiIcons.clone()}
	for _, opt := range append(defaults, opts...) {
		opt(&t)
	}
	if t.icons == nil {
		t.icons = defaultIconSet()
	}
	return t
}

// Default returns the default Theme configuration.
func Default() Theme {
	return New()
}

// Colors exposes the theme color palette.
func (t Theme) Colors() Colors {
	return t.colors
}

// Border exposes the table border.
func (t Theme) Border() lipgloss.Border {
	return t.border
}

// Icon returns a themed icon with ASCII fallback if unavailable.
func (t Theme) Icon(name string) string {
	if icon, ok := t.icons[name]; ok {
		return icon
	}
	if icon, ok := t.fallback[name]; ok {
		return icon
	}
	return ""
}

// HeaderStyle is used for section titles.
func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.colors.Primary)
}

// ColumnStyle is used for table headers.
func (t Theme) ColumnStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.colors.Accent)
}

// BorderStyle colors table borders.
func (t Theme) BorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.colors.Muted)
}

// MutedStyle is used for secondary text.
func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.colors.Muted)
}

// BadgeStyle returns the badge style for the requested variant.
func (t Theme) BadgeStyle(kind BadgeKind) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch kind {
	case BadgeSuccess:
		return base.Foreground(t.colors.Success)
	case BadgeWarning:
		return base.Foreground(t.colors.Warning)
	case BadgeError:
		return base.Foreground(t.colors.Error)
	case BadgeMuted:
		return base.Foreground(t.colors.Muted)
	default:
		return base.Foreground(t.colors.Accent)
	}
}

// Status renders a health status word with its icon and color. Unrecognized
// statuses render muted.
func (t Theme) Status(status string) string {
	kind := BadgeMuted
	switch status {
	case "healthy":
		kind = BadgeSuccess
	case "unhealthy":
		kind = BadgeError
	case "unknown":
		kind = BadgeWarning
	}
	icon := t.Icon(status)
	if icon == "" {
		icon = t.Icon("unknown")
	}
	return t.BadgeStyle(kind).Render(icon + " " + status)
}

// Check renders a boolean as a check or dash.
func (t Theme) Check(v bool) string {
	if v {
		return t.BadgeStyle(BadgeSuccess).Render(t.Icon("check"))
	}
	return t.MutedStyle().Render("-")
}

// defaultIconSet chooses the best icon set for the current terminal.
func defaultIconSet() IconSet {
	if isLimitedTerminal() {
		return asciiIcons.clone()
	}
	return emojiIcons.clone()
}

// isLimitedTerminal detects environments where ASCII icons are preferable.
func isLimitedTerminal() bool {
	if os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_TTY") != "" || os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	return runtime.GOOS == "windows"
}

var emojiIcons = IconSet{
	"healthy":   "✅",
	"unhealthy": "❌",
	"unknown":   "❓",
	"check":     "✓",
	"cached":    "📦",
	"provider":  "🔌",
	"movie":     "🎬",
	"show":      "📺",
	"stats":     "📊",
	"timeout":   "⏱",
}

var asciiIcons = IconSet{
	"healthy":   "[v]",
	"unhealthy": "[!]",
	"unknown":   "[?]",
	"check":     "[x]",
	"cached":    "[c]",
	"provider":  "[P]",
	"movie":     "[M]",
	"show":      "[TV]",
	"stats":     "[*]",
	"timeout":   "[T]",
}
