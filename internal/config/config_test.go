package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/drafter/internal/config/loader"
)

type mapLoader map[string]any

func (m mapLoader) Load() (map[string]any, error) { return m, nil }

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.History.MaxCommands != 30 || cfg.Journal.MaxSnapshots != 50 {
		t.Errorf("limits = %d/%d", cfg.History.MaxCommands, cfg.Journal.MaxSnapshots)
	}
	if cfg.Storage.MaxAgeDuration() != 12*time.Hour {
		t.Errorf("MaxAgeDuration() = %v", cfg.Storage.MaxAgeDuration())
	}
	if cfg.Script.TimeoutDuration() != 5*time.Second {
		t.Errorf("TimeoutDuration() = %v", cfg.Script.TimeoutDuration())
	}
}

func TestLoadLayers(t *testing.T) {
	fsys := loader.MapFS{
		"drafter.toml": `
[history]
max_commands = 40
tracked_properties = ["left", "top"]

[logging]
level = "debug"
`,
	}
	env := mapLoader{
		"history": map[string]any{"max_commands": int64(12)},
		"storage": map[string]any{"backend": "file", "dir": "/tmp/j"},
	}

	cfg, err := load(loader.NewTOMLLoaderWithFS(fsys, "drafter.toml"), env)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.History.MaxCommands != 12 {
		t.Errorf("max_commands = %d, want 12 (env wins)", cfg.History.MaxCommands)
	}
	if strings.Join(cfg.History.TrackedProperties, ",") != "left,top" {
		t.Errorf("tracked_properties = %v", cfg.History.TrackedProperties)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.Dir != "/tmp/j" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Render.Format != "png" || cfg.Journal.MaxSnapshots != 50 {
		t.Error("unset settings should keep their defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := load(loader.NewTOMLLoaderWithFS(loader.MapFS{}, "none.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.History.MaxCommands != Default().History.MaxCommands {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadParseError(t *testing.T) {
	fsys := loader.MapFS{"bad.toml": "history = [\n"}

	_, err := load(loader.NewTOMLLoaderWithFS(fsys, "bad.toml"))
	var perr *loader.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func TestLoadTypeMismatch(t *testing.T) {
	_, err := load(mapLoader{"history": map[string]any{"max_commands": "many"}})
	if err == nil {
		t.Error("string for an int setting should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		path   string
	}{
		{"max commands", func(c *Config) { c.History.MaxCommands = 0 }, "history.max_commands"},
		{"max snapshots", func(c *Config) { c.Journal.MaxSnapshots = -1 }, "journal.max_snapshots"},
		{"backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"postgres url", func(c *Config) { c.Storage.Backend = BackendPostgres }, "storage.database_url"},
		{"file dir", func(c *Config) { c.Storage.Backend = BackendFile; c.Storage.Dir = "" }, "storage.dir"},
		{"negative max conns", func(c *Config) { c.Storage.MaxConns = -1 }, "storage.max_conns"},
		{"max conns overflow", func(c *Config) { c.Storage.MaxConns = int(int64(math.MaxInt32) + 1) }, "storage.max_conns"},
		{"scale", func(c *Config) { c.Render.Scale = 0 }, "render.scale"},
		{"format", func(c *Config) { c.Render.Format = "gif" }, "render.format"},
		{"quality", func(c *Config) { c.Render.Quality = 101 }, "render.quality"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Validate() = %v, want ErrValidationFailed", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Errorf("path = %v, want %s", verr, tt.path)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	data, err := Default().Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), "max_commands = 30") {
		t.Errorf("encoded config:\n%s", data)
	}

	cfg, err := load(loader.NewTOMLLoaderWithFS(loader.MapFS{"c.toml": string(data)}, "c.toml"))
	if err != nil {
		t.Fatalf("reload of encoded config failed: %v", err)
	}
	if cfg.Render.Quality != 90 {
		t.Errorf("quality = %d", cfg.Render.Quality)
	}
}

func TestDurationFallback(t *testing.T) {
	s := StorageConfig{MaxAge: "soon"}
	if s.MaxAgeDuration() != 12*time.Hour {
		t.Errorf("MaxAgeDuration() = %v", s.MaxAgeDuration())
	}
	s.MaxAge = "30m"
	if s.MaxAgeDuration() != 30*time.Minute {
		t.Errorf("MaxAgeDuration() = %v", s.MaxAgeDuration())
	}
}

func TestReloader(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("[history]\nmax_commands = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 4)
	r, err := NewReloader(path, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("NewReloader failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if r.Current().History.MaxCommands != 5 {
		t.Fatalf("initial max_commands = %d", r.Current().History.MaxCommands)
	}

	reloaded := make(chan *Config, 4)
	r.OnReload(func(cfg *Config) { reloaded <- cfg })

	if err := os.WriteFile(path, []byte("[history]\nmax_commands = 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if cfg.History.MaxCommands != 9 {
			t.Errorf("reloaded max_commands = %d", cfg.History.MaxCommands)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if err := os.WriteFile(path, []byte("[history]\nmax_commands = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("reload error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	if r.Current().History.MaxCommands != 9 {
		t.Error("invalid reload should keep the previous configuration")
	}
}
