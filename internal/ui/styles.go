package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette is one colour scheme.
type Palette struct {
	Success   lipgloss.Color // confirmed actions
	Warning   lipgloss.Color // pending, prompts
	Error     lipgloss.Color
	Info      lipgloss.Color
	Address   lipgloss.Color // addresses, hashes
	Value     lipgloss.Color // prices, balances
	Meta      lipgloss.Color // timestamps, hints
	Border    lipgloss.Color
	Accent    lipgloss.Color // titles, network names
	Highlight lipgloss.Color // selected rows
	OnSelect  lipgloss.Color // text on Highlight
}

// Palettes by theme name.
var (
	DarkPalette = Palette{
		Success:   lipgloss.Color("#00D26A"),
		Warning:   lipgloss.Color("#FFB800"),
		Error:     lipgloss.Color("#FF4444"),
		Info:      lipgloss.Color("#4CC9F0"),
		Address:   lipgloss.Color("#00B4D8"),
		Value:     lipgloss.Color("#FFFFFF"),
		Meta:      lipgloss.Color("#6C6C6C"),
		Border:    lipgloss.Color("#1E3A5F"),
		Accent:    lipgloss.Color("#9B5DE5"),
		Highlight: lipgloss.Color("#F15BB5"),
		OnSelect:  lipgloss.Color("#000000"),
	}
	LightPalette = Palette{
		Success:   lipgloss.Color("#007A3D"),
		Warning:   lipgloss.Color("#B35C00"),
		Error:     lipgloss.Color("#C62828"),
		Info:      lipgloss.Color("#005F99"),
		Address:   lipgloss.Color("#006D8F"),
		Value:     lipgloss.Color("#111111"),
		Meta:      lipgloss.Color("#7A7A7A"),
		Border:    lipgloss.Color("#B0C4DE"),
		Accent:    lipgloss.Color("#6A1B9A"),
		Highlight: lipgloss.Color("#FFD6EC"),
		OnSelect:  lipgloss.Color("#111111"),
	}
)

// Styles in use. SetTheme rebuilds them.
var (
	StyleSuccess  lipgloss.Style
	StyleWarning  lipgloss.Style
	StyleError    lipgloss.Style
	StyleInfo     lipgloss.Style
	StyleAddress  lipgloss.Style
	StyleValue    lipgloss.Style
	StyleMeta     lipgloss.Style
	StyleChain    lipgloss.Style
	StyleBorder   lipgloss.Style
	StyleHeader   lipgloss.Style
	StyleSelected lipgloss.Style
	StyleTitle    lipgloss.Style
	StyleDim      lipgloss.Style

	themeMu sync.Mutex
	current = "dark"
	palette = DarkPalette
)

func init() { applyPalette(DarkPalette) }

// SetTheme switches the palette. Anything other than "light" selects dark.
func SetTheme(name string) {
	themeMu.Lock()
	defer themeMu.Unlock()
	if strings.EqualFold(name, "light") {
		current, palette = "light", LightPalette
	} else {
		current, palette = "dark", DarkPalette
	}
	applyPalette(palette)
}

// Theme returns the active theme name.
func Theme() string {
	themeMu.Lock()
	defer themeMu.Unlock()
	return current
}

// CurrentPalette returns the active palette.
func CurrentPalette() Palette {
	themeMu.Lock()
	defer themeMu.Unlock()
	return palette
}

func applyPalette(p Palette) {
	StyleSuccess = lipgloss.NewStyle().Foreground(p.Success).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(p.Warning).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	StyleInfo = lipgloss.NewStyle().Foreground(p.Info)
	StyleAddress = lipgloss.NewStyle().Foreground(p.Address)
	StyleValue = lipgloss.NewStyle().Foreground(p.Value).Bold(true)
	StyleMeta = lipgloss.NewStyle().Foreground(p.Meta)
	StyleChain = lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	StyleDim = lipgloss.NewStyle().Foreground(p.Meta)

	StyleBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
		Foreground(p.Highlight).
		Bold(true).
		Underline(true)

	StyleSelected = lipgloss.NewStyle().
		Background(p.Highlight).
		Foreground(p.OnSelect).
		Bold(true)

	StyleTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true).
		MarginBottom(1)
}

// Banner returns the w3market banner.
func Banner() string {
	art := `
  ┬ ┬┌─┐┌┬┐┌─┐┬─┐┬┌─┌─┐┌┬┐
  │││ ┤│││├─┤├┬┘├┴┐├┤  │
  └┴┘└─┘┴ ┴┴ ┴┴└─┴ ┴└─┘ ┴`
	tagline := StyleMeta.Render("  On-chain marketplace from your terminal")
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggestion for the user's next step.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a network name.
func ChainName(c string) string { return StyleChain.Render(c) }

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
