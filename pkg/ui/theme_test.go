package ui

import (
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

func isColorEmpty(c lipgloss.AdaptiveColor) bool {
	return c.Light == "" && c.Dark == ""
}

func TestDefaultTheme(t *testing.T) {
	renderer := lipgloss.NewRenderer(nil)
	theme := DefaultTheme(renderer)

	if theme.Renderer != renderer {
		t.Error("DefaultTheme renderer mismatch")
	}
	// Check a few known colors are set (not zero value)
	if isColorEmpty(theme.Primary) {
		t.Error("DefaultTheme Primary color is empty")
	}
	if isColorEmpty(theme.Object) {
		t.Error("DefaultTheme Object color is empty")
	}
	if isColorEmpty(theme.Match) {
		t.Error("DefaultTheme Match color is empty")
	}
}

func TestClassColor(t *testing.T) {
	theme := TestTheme()

	tests := []struct {
		class addrspace.NodeClass
		want  lipgloss.AdaptiveColor
	}{
		{addrspace.ClassObject, theme.Object},
		{addrspace.ClassVariable, theme.Variable},
		{addrspace.ClassMethod, theme.Method},
		{addrspace.ClassView, theme.ViewNode},
		{addrspace.ClassObjectType, theme.TypeNode},
		{addrspace.ClassVariableType, theme.TypeNode},
		{addrspace.ClassDataType, theme.TypeNode},
		{addrspace.ClassReferenceType, theme.TypeNode},
		{addrspace.ClassUnknown, theme.UnknownFg},
	}

	for _, tc := range tests {
		if got := theme.ClassColor(tc.class); got != tc.want {
			t.Errorf("ClassColor(%v): expected %v, got %v", tc.class, tc.want, got)
		}
	}

	// The display classes must be tellable apart at a glance.
	if theme.Object == theme.Variable || theme.Variable == theme.Method {
		t.Error("display classes share a color")
	}
}

func TestClassGlyph(t *testing.T) {
	theme := TestTheme()

	tests := []struct {
		class addrspace.NodeClass
		want  string
	}{
		{addrspace.ClassObject, "◆"},
		{addrspace.ClassVariable, "●"},
		{addrspace.ClassMethod, "ƒ"},
		{addrspace.ClassView, "▣"},
		{addrspace.ClassObjectType, "▽"},
		{addrspace.ClassVariableType, "▽"},
		{addrspace.ClassDataType, "▽"},
		{addrspace.ClassReferenceType, "▽"},
		{addrspace.ClassUnknown, "?"},
	}

	for _, tc := range tests {
		glyph, _ := theme.ClassGlyph(tc.class)
		if glyph != tc.want {
			t.Errorf("ClassGlyph(%v): expected %q, got %q", tc.class, tc.want, glyph)
		}
	}
}

func TestThemeStylesUsable(t *testing.T) {
	theme := TestTheme()

	// Precomputed styles must render without panicking and keep content.
	for name, s := range map[string]lipgloss.Style{
		"selected":  theme.Selected,
		"muted":     theme.MutedText,
		"value":     theme.ValueText,
		"bad value": theme.BadValue,
		"match":     theme.MatchText,
		"reveal":    theme.RevealMark,
	} {
		if out := s.Render("x"); out == "" {
			t.Errorf("%s style lost its content", name)
		}
	}
}

func TestThemeBgTrueColorOnly(t *testing.T) {
	saved := TermProfile
	defer func() { TermProfile = saved }()

	TermProfile = colorprofile.TrueColor
	if _, ok := ThemeBg("#282A36").(lipgloss.NoColor); ok {
		t.Error("TrueColor terminals should get the hex background")
	}

	// Down-converted solid backgrounds clash with terminal palettes, so
	// everything below TrueColor keeps the terminal's own background.
	for _, p := range []colorprofile.Profile{colorprofile.ANSI256, colorprofile.ANSI, colorprofile.Ascii} {
		TermProfile = p
		if _, ok := ThemeBg("#282A36").(lipgloss.NoColor); !ok {
			t.Errorf("profile %v should get NoColor, got %T", p, ThemeBg("#282A36"))
		}
	}
}

func TestThemeFgFallsBackToANSI(t *testing.T) {
	saved := TermProfile
	defer func() { TermProfile = saved }()

	TermProfile = colorprofile.ANSI256
	if _, ok := ThemeFg("#FFD700").(lipgloss.ANSIColor); ok {
		t.Error("ANSI256 terminals should get the hex foreground")
	}

	TermProfile = colorprofile.ANSI
	if _, ok := ThemeFg("#FFD700").(lipgloss.ANSIColor); !ok {
		t.Errorf("ANSI terminals should fall back to a safe ANSI color, got %T", ThemeFg("#FFD700"))
	}
}
