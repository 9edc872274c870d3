// Package config handles loading and saving sw configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/spacewalk/config.yaml
//   - Data:    ~/.local/share/spacewalk/ (exports)
//   - State:   ~/.local/state/spacewalk/ (expansion memory, recents cache)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is a registered address-space source: a captured snapshot file the
// browser can reopen by name.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	TickMs     int   `yaml:"tick_ms,omitempty"`    // foreground drain tick (default 120)
	Attributes *bool `yaml:"attributes,omitempty"` // attribute pane visible (default true)
}

// SearchConfig holds search defaults, overridable per run from the search
// bar.
type SearchConfig struct {
	IncludeValues bool `yaml:"include_values,omitempty"` // match value attribute text
	ResultCap     int  `yaml:"result_cap,omitempty"`     // default 50
	ProgressEvery int  `yaml:"progress_every,omitempty"` // default 10
}

// SnapshotConfig controls snapshot-file sources.
type SnapshotConfig struct {
	Watch *bool `yaml:"watch,omitempty"` // reload on file change (default true)
}

// SimConfig controls the built-in simulation source.
type SimConfig struct {
	Seed int64 `yaml:"seed,omitempty"`
}

// Config is the top-level configuration for sw.
type Config struct {
	Recents   []Source       `yaml:"recents,omitempty"`
	Favorites map[int]string `yaml:"favorites,omitempty"` // Number key (1-9) -> source name
	UI        UIConfig       `yaml:"ui,omitempty"`
	Search    SearchConfig   `yaml:"search,omitempty"`
	Snapshot  SnapshotConfig `yaml:"snapshot,omitempty"`
	Sim       SimConfig      `yaml:"sim,omitempty"`
}

// maxRecents caps the recents list.
const maxRecents = 10

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Favorites: make(map[int]string),
		UI: UIConfig{
			TickMs: 120,
		},
		Search: SearchConfig{
			ResultCap:     50,
			ProgressEvery: 10,
		},
	}
}

// ConfigDir returns the XDG config directory for sw.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "spacewalk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "spacewalk")
}

// DataDir returns the XDG data directory for sw.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "spacewalk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "spacewalk")
}

// StateDir returns the XDG state directory for sw.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "spacewalk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "spacewalk")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// StatePath returns the path of a named state file, "" when no state
// directory can be determined.
func StatePath(name string) string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Ensure favorites map is initialized
	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}

	// Expand ~ in snapshot paths
	for i := range cfg.Recents {
		cfg.Recents[i].Path = expandHome(cfg.Recents[i].Path)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// TickMs returns the drain tick in milliseconds, defaulted and clamped so a
// bad config cannot freeze or spin the foreground loop.
func (c Config) TickMs() int {
	t := c.UI.TickMs
	if t <= 0 {
		t = 120
	}
	if t < 16 {
		t = 16
	}
	if t > 2000 {
		t = 2000
	}
	return t
}

// AttributesVisible reports whether the attribute pane starts visible.
func (c Config) AttributesVisible() bool {
	return c.UI.Attributes == nil || *c.UI.Attributes
}

// WatchEnabled reports whether snapshot sources reload on file change.
func (c Config) WatchEnabled() bool {
	return c.Snapshot.Watch == nil || *c.Snapshot.Watch
}

// FindRecent returns the recent source with the given name, or nil.
func (c Config) FindRecent(name string) *Source {
	for i := range c.Recents {
		if strings.EqualFold(c.Recents[i].Name, name) {
			return &c.Recents[i]
		}
	}
	return nil
}

// AddRecent puts a source at the front of the recents list, dropping
// duplicates by path and trimming to the cap.
func (c *Config) AddRecent(name, path string) {
	out := make([]Source, 0, len(c.Recents)+1)
	out = append(out, Source{Name: name, Path: path})
	for _, s := range c.Recents {
		if s.Path == path {
			continue
		}
		out = append(out, s)
	}
	if len(out) > maxRecents {
		out = out[:maxRecents]
	}
	c.Recents = out
}

// FavoriteSource returns the source assigned to number key n (1-9), or nil.
func (c Config) FavoriteSource(n int) *Source {
	name, ok := c.Favorites[n]
	if !ok {
		return nil
	}
	return c.FindRecent(name)
}

// SetFavorite assigns a source name to a number key (1-9).
func (c *Config) SetFavorite(n int, sourceName string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if sourceName == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = sourceName
	}
}

// SourceFavoriteNumber returns the favorite number (1-9) for a source name, or 0 if not favorited.
func (c Config) SourceFavoriteNumber(name string) int {
	for n, sname := range c.Favorites {
		if strings.EqualFold(sname, name) {
			return n
		}
	}
	return 0
}

// ResolvedPath returns the source path with ~ expanded.
func (s Source) ResolvedPath() string {
	return expandHome(s.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
