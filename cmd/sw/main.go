package main

import (
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/spacewalk/internal/datasource"
	"github.com/vanderheijden86/spacewalk/pkg/config"
	"github.com/vanderheijden86/spacewalk/pkg/ui"
	"github.com/vanderheijden86/spacewalk/pkg/version"
	"github.com/vanderheijden86/spacewalk/pkg/watcher"
)

func main() {
	simFlag := flag.Bool("sim", false, "Browse the built-in simulated address space")
	snapshotFlag := flag.String("snapshot", "", "Browse a snapshot file (.swdb)")
	seedFlag := flag.Int64("seed", 0, "Seed for the simulated space (0 = config value, then 42)")
	captureFlag := flag.String("capture", "", "Capture the active source into a snapshot file and exit")
	exportFlag := flag.String("export", "", "Render the tree to an .svg or .png file and exit")
	expandDepth := flag.Int("robot-expand", 2, "Levels to expand below the roots for --export")
	diffFlag := flag.String("diff", "", "Compare a baseline snapshot against the active snapshot and exit")
	robotTree := flag.Int("robot-tree", -1, "Print the tree expanded to DEPTH as JSON and exit")
	robotSearch := flag.String("robot-search", "", "Run one search to completion, print results as JSON and exit")
	robotAttrs := flag.String("robot-attrs", "", "Print the attributes of REF as JSON and exit")
	includeValues := flag.Bool("include-values", false, "Match and report value attributes in robot modes")
	noWatch := flag.Bool("no-watch", false, "Disable live reload for snapshot sources")
	helpFlag := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *helpFlag {
		fmt.Println("Usage: sw [options]")
		fmt.Println("\nA TUI browser for industrial address spaces.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("sw %s\n", version.Version)
		os.Exit(0)
	}

	if *simFlag && *snapshotFlag != "" {
		fmt.Fprintln(os.Stderr, "Error: --sim and --snapshot are mutually exclusive")
		os.Exit(2)
	}

	appCfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		appCfg = config.DefaultConfig()
	}

	seed := *seedFlag
	if seed == 0 {
		seed = appCfg.Sim.Seed
	}
	if seed == 0 {
		seed = 42
	}

	headless := *captureFlag != "" || *exportFlag != "" || *diffFlag != "" ||
		*robotTree >= 0 || *robotSearch != "" || *robotAttrs != ""

	// One-shot runs touch every node at most once, so the read-through
	// cache would only add warmup cost.
	openOpts := datasource.OpenOptions{Seed: seed, NoCache: headless}

	handle, err := openSource(&appCfg, *simFlag, *snapshotFlag, openOpts, headless)
	if err != nil {
		if errors.Is(err, errWizardCancelled) {
			fmt.Println("Cancelled.")
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error opening source: %v\n", err)
		os.Exit(1)
	}

	if headless {
		code := runHeadless(handle, headlessOptions{
			Capture:       *captureFlag,
			Export:        *exportFlag,
			ExpandDepth:   *expandDepth,
			DiffBaseline:  *diffFlag,
			TreeDepth:     *robotTree,
			SearchQuery:   *robotSearch,
			AttrsRef:      *robotAttrs,
			IncludeValues: *includeValues || appCfg.Search.IncludeValues,
			SearchCfg:     appCfg.Search,
		})
		handle.Close()
		os.Exit(code)
	}

	// Remember snapshot sources so the wizard and favorites can reopen them.
	if handle.Source.Type == datasource.SourceTypeSnapshot {
		appCfg.AddRecent(filepath.Base(handle.Source.Path), handle.Source.Path)
		_ = config.Save(appCfg)
	}

	var fw *watcher.Watcher
	if handle.Source.Type == datasource.SourceTypeSnapshot && appCfg.WatchEnabled() && !*noWatch {
		if w, werr := watcher.NewWatcher(handle.Source.Path); werr == nil {
			if werr = w.Start(); werr == nil {
				fw = w
			}
		}
		// A source that cannot be watched still browses fine.
	}

	m := ui.NewModel(ui.Options{
		Dir:         handle.Dir,
		SourceLabel: handle.Label,
		Config:      &appCfg,
		MemoryPath:  memoryPath(handle.Source, seed),
		Watcher:     fw,
	})

	runErr := runTUIProgram(m)

	if fw != nil {
		fw.Stop()
	}
	handle.Close()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running browser: %v\n", runErr)
		os.Exit(1)
	}
}

// openSource resolves the address space to browse: explicit flags win, an
// interactive terminal gets the wizard, everything else takes the best
// available source (freshest valid snapshot, sim as the fallback).
func openSource(cfg *config.Config, sim bool, snapshot string, opts datasource.OpenOptions, headless bool) (*datasource.Handle, error) {
	switch {
	case sim:
		return datasource.Open(datasource.SimSource(), opts)
	case snapshot != "":
		return datasource.Open(datasource.SnapshotSource(snapshot), opts)
	case !headless && isTerminal():
		src, err := runSourceWizard(cfg)
		if err != nil {
			return nil, err
		}
		return datasource.Open(src, opts)
	default:
		return datasource.OpenBest(opts)
	}
}

// memoryPath returns the expansion-memory file for a source identity: one
// file per snapshot path, one per sim seed. The path hash keeps two
// same-named snapshots in different directories from sharing state.
func memoryPath(src datasource.Source, seed int64) string {
	var slug string
	if src.Type == datasource.SourceTypeSim {
		slug = fmt.Sprintf("sim-%d", seed)
	} else {
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			abs = src.Path
		}
		h := fnv.New32a()
		h.Write([]byte(abs))
		base := strings.TrimSuffix(filepath.Base(abs), datasource.SnapshotExt)
		slug = fmt.Sprintf("%s-%08x", slugify(base), h.Sum32())
	}
	return config.StatePath("expansion-" + slug + ".json")
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM: ask first, kill after the grace
	// period or on a second signal.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set SW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("SW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
