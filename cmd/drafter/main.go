// Package main is the entry point for the drafter command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/drafter/internal/app"
	"github.com/dshills/drafter/internal/render"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliOptions are the parsed command line.
type cliOptions struct {
	app     app.Options
	logFile string
	scale   float64
	output  string
	write   bool
	command string
	args    []string
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	switch opts.command {
	case "version":
		fmt.Fprintf(stdout, "drafter %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	case "browse", "export", "run", "info":
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", opts.command)
		return 2
	}

	opts.app.ScriptOutput = stdout
	switch {
	case opts.logFile != "":
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Error: open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		opts.app.LogOutput = f
	case opts.command == "browse":
		// Log records would draw over the screen.
		opts.app.LogOutput = io.Discard
	default:
		opts.app.LogOutput = stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, opts.app)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	if opts.app.Watch {
		go func() {
			if err := application.Run(ctx); err != nil {
				application.Logger().Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if err := dispatch(ctx, application, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, a *app.Application, opts cliOptions, stdout io.Writer) error {
	switch opts.command {
	case "export":
		if len(opts.args) == 0 {
			return errors.New("export: no output files")
		}
		targets := make([]render.Target, len(opts.args))
		for i, path := range opts.args {
			targets[i] = render.Target{Path: path, Scale: opts.scale}
		}
		return a.Export(ctx, targets...)

	case "run":
		if len(opts.args) == 0 {
			return errors.New("run: no script files")
		}
		for _, path := range opts.args {
			if err := a.RunScript(ctx, path); err != nil {
				return err
			}
		}
		return save(a, opts)

	case "info":
		printInfo(stdout, a)
		return nil

	default:
		if err := browse(ctx, a); err != nil {
			return err
		}
		return save(a, opts)
	}
}

// save writes the document when -o or -w asked for it.
func save(a *app.Application, opts cliOptions) error {
	switch {
	case opts.output != "":
		return a.Save(opts.output)
	case opts.write && a.Modified():
		return a.Save("")
	}
	return nil
}

func browse(ctx context.Context, a *app.Application) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	err = a.Browse(ctx, screen)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printInfo(w io.Writer, a *app.Application) {
	eng := a.Engine()
	canvas := eng.Scene().Canvas()
	info := eng.HistoryInfo()

	fmt.Fprintf(w, "session:  %s\n", a.Session())
	fmt.Fprintf(w, "backend:  %s\n", a.Config().Storage.Backend)
	fmt.Fprintf(w, "canvas:   %gx%g %s\n", canvas.Width, canvas.Height, canvas.Background)
	fmt.Fprintf(w, "objects:  %d\n", eng.Scene().Len())
	for _, o := range eng.Objects() {
		fmt.Fprintf(w, "  %-8s %s\n", o.Kind(), o.ID())
	}
	fmt.Fprintf(w, "history:  %d/%d (max %d)\n", info.Index, info.Len, info.MaxCommands)
	fmt.Fprintf(w, "journal:  %d/%d\n", info.JournalCursor+1, info.JournalLen)
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	var showVersion bool

	fs := flag.NewFlagSet("drafter", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.app.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.app.Document, "doc", "", "Document to edit (YAML or JSON)")
	fs.StringVar(&opts.app.Document, "d", "", "Document to edit (shorthand)")
	fs.StringVar(&opts.app.Session, "session", "", "Resume the journal of a session")
	fs.StringVar(&opts.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	fs.BoolVar(&opts.app.ReadOnly, "readonly", false, "Reject all edits")
	fs.BoolVar(&opts.app.ReadOnly, "R", false, "Reject all edits (shorthand)")
	fs.BoolVar(&opts.app.Watch, "watch", false, "Reload the configuration when it changes")
	fs.Float64Var(&opts.scale, "scale", 0, "Export scale (default render.scale)")
	fs.StringVar(&opts.output, "o", "", "Save the document to this file after run or browse")
	fs.BoolVar(&opts.write, "w", false, "Save the document in place after run or browse")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "drafter - design document history engine\n\n")
		fmt.Fprintf(stderr, "Usage: drafter [options] [command] [args...]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  browse              Browse the undo history (default)\n")
		fmt.Fprintf(stderr, "  export FILE...      Render the document to PNG or JPEG files\n")
		fmt.Fprintf(stderr, "  run SCRIPT...       Run Lua scripts against the document\n")
		fmt.Fprintf(stderr, "  info                Print the document and history state\n")
		fmt.Fprintf(stderr, "  version             Show version information\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  drafter -d page.yaml export page.png page@2x.png\n")
		fmt.Fprintf(stderr, "  drafter -d page.yaml -w run align.lua\n")
		fmt.Fprintf(stderr, "  drafter -d page.yaml -session 4f0c... browse\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if showVersion {
		opts.command = "version"
		return opts, nil
	}

	switch opts.app.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return opts, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.app.LogLevel)
	}
	if opts.write && opts.app.Document == "" {
		return opts, errors.New("-w requires -doc")
	}

	opts.command = "browse"
	if rest := fs.Args(); len(rest) > 0 {
		opts.command, opts.args = rest[0], rest[1:]
	}
	return opts, nil
}
