package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation
// that may clash with palettes like Solarized.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Node classes
	Object    lipgloss.AdaptiveColor
	Variable  lipgloss.AdaptiveColor
	Method    lipgloss.AdaptiveColor
	ViewNode  lipgloss.AdaptiveColor
	TypeNode  lipgloss.AdaptiveColor
	UnknownFg lipgloss.AdaptiveColor

	// Attribute quality
	Good lipgloss.AdaptiveColor
	Bad  lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Match     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, created once instead of per-frame
	MutedText   lipgloss.Style // guides, collapsed markers, dimmed rows
	ValueText   lipgloss.Style // attribute values
	BadValue    lipgloss.Style // attribute values with bad quality
	MatchText   lipgloss.Style // filter/search hits
	RevealMark  lipgloss.Style // the search hit the tree last revealed
	PrimaryBold lipgloss.Style // selection indicator, active pane title
	RefText     lipgloss.Style // node refs
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Object:    lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"}, // Blue - folders
		Variable:  lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green - values
		Method:    lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple - callables
		ViewNode:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		TypeNode:  lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray - type system
		UnknownFg: lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}, // Red

		Good: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Bad:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Match:     lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#F1FA8C"}, // Yellow - hits
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.ValueText = r.NewStyle().Foreground(t.Variable)
	t.BadValue = r.NewStyle().Foreground(t.Bad).Strikethrough(true)
	t.MatchText = r.NewStyle().Foreground(t.Match).Bold(true)
	t.RevealMark = r.NewStyle().Foreground(ThemeFg("#FFD700")).Bold(true)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.RefText = r.NewStyle().Foreground(t.Secondary)

	return t
}

// ClassColor maps a node class to its display color.
func (t Theme) ClassColor(c addrspace.NodeClass) lipgloss.AdaptiveColor {
	switch c {
	case addrspace.ClassObject:
		return t.Object
	case addrspace.ClassVariable:
		return t.Variable
	case addrspace.ClassMethod:
		return t.Method
	case addrspace.ClassView:
		return t.ViewNode
	case addrspace.ClassObjectType, addrspace.ClassVariableType,
		addrspace.ClassDataType, addrspace.ClassReferenceType:
		return t.TypeNode
	default:
		return t.UnknownFg
	}
}

// ClassGlyph returns a one-cell marker for a node class, paired with its
// color for row rendering.
func (t Theme) ClassGlyph(c addrspace.NodeClass) (string, lipgloss.AdaptiveColor) {
	switch c {
	case addrspace.ClassObject:
		return "◆", t.Object
	case addrspace.ClassVariable:
		return "●", t.Variable
	case addrspace.ClassMethod:
		return "ƒ", t.Method
	case addrspace.ClassView:
		return "▣", t.ViewNode
	case addrspace.ClassObjectType, addrspace.ClassVariableType,
		addrspace.ClassDataType, addrspace.ClassReferenceType:
		return "▽", t.TypeNode
	default:
		return "?", t.UnknownFg
	}
}

// TestTheme returns a theme suitable for use in tests (uses nil renderer).
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
