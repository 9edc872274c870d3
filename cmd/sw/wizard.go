package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/spacewalk/internal/datasource"
	"github.com/vanderheijden86/spacewalk/pkg/config"
)

// errWizardCancelled reports that the user backed out of the source picker.
var errWizardCancelled = errors.New("source selection cancelled")

// simChoice is the select value for the built-in space. Snapshot choices
// carry their file path; this sentinel cannot collide with one.
const simChoice = "sim://builtin"

// isTerminal reports whether stdin is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm builds a huh form with the shared theme, degrading to accessible
// prompts when stdin is not a TTY.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeCharm())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// runSourceWizard asks which address space to open when no source flag was
// given. The menu lists discovered snapshots newest first, remembered
// recents that still exist on disk, and the built-in sim last.
func runSourceWizard(cfg *config.Config) (datasource.Source, error) {
	discovered, err := datasource.DiscoverSnapshots(datasource.DiscoveryOptions{
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		// Discovery trouble just shrinks the menu.
		discovered = nil
	}

	opts := make([]huh.Option[string], 0, len(discovered)+len(cfg.Recents)+1)
	seen := make(map[string]bool)

	for _, s := range discovered {
		if seen[s.Path] {
			continue
		}
		seen[s.Path] = true
		opts = append(opts, huh.NewOption(describeSnapshot(s, cfg), s.Path))
	}

	for _, r := range cfg.Recents {
		path := r.ResolvedPath()
		if seen[path] {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		seen[path] = true
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (recent)", r.Name), path))
	}

	opts = append(opts, huh.NewOption("Built-in simulated space", simChoice))

	var choice string
	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Open which address space?").
				Description("Snapshots found under "+datasource.SnapshotDir()).
				Options(opts...).
				Value(&choice),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return datasource.Source{}, errWizardCancelled
		}
		return datasource.Source{}, err
	}

	if choice == simChoice {
		return datasource.SimSource(), nil
	}
	return datasource.SnapshotSource(choice), nil
}

func describeSnapshot(s datasource.Source, cfg *config.Config) string {
	name := filepath.Base(s.Path)
	label := fmt.Sprintf("%s (%d nodes, %s)", name, s.NodeCount, humanAge(s.ModTime))
	if n := cfg.SourceFavoriteNumber(name); n > 0 {
		label = fmt.Sprintf("[%d] %s", n, label)
	}
	return label
}

func humanAge(t time.Time) string {
	if t.IsZero() {
		return "age unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just captured"
	case d < time.Hour:
		return fmt.Sprintf("%dm old", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh old", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd old", int(d.Hours()/24))
	}
}
