package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/drafter/internal/config/loader"
	"github.com/dshills/drafter/internal/config/watcher"
)

// FileName is the name of the configuration file looked up in the user
// configuration directory.
const FileName = "drafter.toml"

// Config is the complete drafter configuration.
type Config struct {
	History HistoryConfig `toml:"history"`
	Journal JournalConfig `toml:"journal"`
	Storage StorageConfig `toml:"storage"`
	Render  RenderConfig  `toml:"render"`
	Script  ScriptConfig  `toml:"script"`
	Logging LoggingConfig `toml:"logging"`
}

// HistoryConfig configures the property history.
type HistoryConfig struct {
	// MaxCommands bounds the number of undoable commands.
	MaxCommands int `toml:"max_commands"`

	// TrackedProperties overrides the default tracked property set.
	TrackedProperties []string `toml:"tracked_properties"`
}

// JournalConfig configures the snapshot journal.
type JournalConfig struct {
	// MaxSnapshots bounds the number of stored snapshots.
	MaxSnapshots int `toml:"max_snapshots"`

	// TemplateID is stamped on every snapshot.
	TemplateID string `toml:"template_id"`

	// IgnoredIDs lists objects whose changes are not recorded.
	IgnoredIDs []string `toml:"ignored_ids"`
}

// StorageConfig selects where journal snapshots are kept.
type StorageConfig struct {
	// Backend is "memory", "file" or "postgres".
	Backend string `toml:"backend"`

	// Dir holds session files for the file backend.
	Dir string `toml:"dir"`

	// MaxAge is how long session files are kept, as a duration string.
	MaxAge string `toml:"max_age"`

	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string `toml:"database_url"`

	// MaxConns bounds the postgres connection pool.
	MaxConns int `toml:"max_conns"`
}

// RenderConfig configures rasterization.
type RenderConfig struct {
	// Scale multiplies the canvas size.
	Scale float64 `toml:"scale"`

	// Format is the default export format, "png" or "jpeg".
	Format string `toml:"format"`

	// Quality is the JPEG quality (1-100).
	Quality int `toml:"quality"`

	// Workers bounds concurrent exports.
	Workers int `toml:"workers"`
}

// ScriptConfig configures Lua automation.
type ScriptConfig struct {
	// Enabled turns script execution on.
	Enabled bool `toml:"enabled"`

	// Timeout bounds a script run, as a duration string.
	Timeout string `toml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{MaxCommands: 30},
		Journal: JournalConfig{MaxSnapshots: 50},
		Storage: StorageConfig{
			Backend:  BackendMemory,
			Dir:      filepath.Join(os.TempDir(), "drafter"),
			MaxAge:   "12h",
			MaxConns: 4,
		},
		Render: RenderConfig{
			Scale:   1,
			Format:  "png",
			Quality: 90,
			Workers: 4,
		},
		Script: ScriptConfig{
			Enabled: true,
			Timeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// MaxAgeDuration returns the storage max age, falling back to 12h when
// unset or malformed.
func (s StorageConfig) MaxAgeDuration() time.Duration {
	return parseDuration(s.MaxAge, 12*time.Hour)
}

// TimeoutDuration returns the script timeout, falling back to 5s.
func (s ScriptConfig) TimeoutDuration() time.Duration {
	return parseDuration(s.Timeout, 5*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Load builds a configuration from the defaults, the TOML file at path
// (if any) and DRAFTER_* environment variables, in increasing precedence.
// The result is validated.
func Load(path string) (*Config, error) {
	return load(loader.NewTOMLLoader(path), loader.NewEnvLoader(loader.EnvPrefix))
}

func load(sources ...loader.Loader) (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		m, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// toMap and fromMap round-trip through TOML so the layers can be merged
// as plain maps.
func toMap(c *Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return loader.Parse("<defaults>", data)
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &loader.ParseError{Path: "<merged>", Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// Encode writes c as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DefaultPath returns the configuration file path in the user
// configuration directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, "drafter", FileName)
}

// ============================================================================
// Live reload
// ============================================================================

// ReloadFunc receives a freshly loaded configuration.
type ReloadFunc func(cfg *Config)

// Reloader reloads the configuration when its file changes.
type Reloader struct {
	mu      sync.Mutex
	path    string
	current *Config
	watcher *watcher.Watcher
	onLoad  []ReloadFunc
	onError func(error)
}

// NewReloader loads the configuration at path and watches it for changes.
// Reload errors keep the previous configuration and are passed to onError.
func NewReloader(path string, onError func(error)) (*Reloader, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	w, err := watcher.New(watcher.WithErrorHandler(onError))
	if err != nil {
		return nil, fmt.Errorf("start config watcher: %w", err)
	}
	if err := w.Watch(path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	r := &Reloader{
		path:    path,
		current: cfg,
		watcher: w,
		onError: onError,
	}
	w.OnChange(r.handle)
	return r, nil
}

// Current returns the most recently loaded configuration.
func (r *Reloader) Current() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnReload registers fn to run after each successful reload.
func (r *Reloader) OnReload(fn ReloadFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLoad = append(r.onLoad, fn)
}

// Run blocks until ctx is done, then stops watching.
func (r *Reloader) Run(ctx context.Context) error {
	<-ctx.Done()
	return r.Close()
}

// Close stops watching.
func (r *Reloader) Close() error {
	return r.watcher.Close()
}

func (r *Reloader) handle(ev watcher.Event) {
	if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
		return
	}

	cfg, err := Load(r.path)
	if err != nil {
		if r.onError != nil {
			r.onError(fmt.Errorf("reload %s: %w", r.path, err))
		}
		return
	}

	r.mu.Lock()
	r.current = cfg
	fns := append([]ReloadFunc(nil), r.onLoad...)
	r.mu.Unlock()

	for _, fn := range fns {
		fn(cfg)
	}
}
