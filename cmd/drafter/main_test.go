package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		rest    []string
		wantErr bool
	}{
		{"default command", nil, "browse", nil, false},
		{"export", []string{"-d", "p.yaml", "export", "a.png", "b.jpg"}, "export", []string{"a.png", "b.jpg"}, false},
		{"version flag", []string{"-v"}, "version", nil, false},
		{"bad log level", []string{"-log-level", "loud", "info"}, "", nil, true},
		{"write without doc", []string{"-w", "run", "x.lua"}, "", nil, true},
		{"unknown flag", []string{"-nope"}, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.command != tt.command {
				t.Errorf("command = %q, want %q", opts.command, tt.command)
			}
			if strings.Join(opts.args, ",") != strings.Join(tt.rest, ",") {
				t.Errorf("args = %v, want %v", opts.args, tt.rest)
			}
		})
	}
}

// setup writes an empty config and a one-object document.
func setup(t *testing.T) (cfg, doc string) {
	t.Helper()
	dir := t.TempDir()
	cfg = filepath.Join(dir, "drafter.toml")
	doc = filepath.Join(dir, "page.yaml")
	if err := os.WriteFile(cfg, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	page := `
version: "1"
width: 100
height: 80
objects:
  - {type: rect, id: box, left: 10, top: 10, width: 30, height: 30, fill: "#336699"}
`
	if err := os.WriteFile(doc, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg, doc
}

func TestRunInfo(t *testing.T) {
	cfg, doc := setup(t)
	var out, errOut bytes.Buffer

	if code := run([]string{"-c", cfg, "-d", doc, "info"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	for _, want := range []string{"canvas:   100x80", "objects:  1", "rect", "box", "history:  0/0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunExport(t *testing.T) {
	cfg, doc := setup(t)
	png := filepath.Join(t.TempDir(), "page.png")

	var out, errOut bytes.Buffer
	if code := run([]string{"-c", cfg, "-d", doc, "-scale", "2", "export", png}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if info, err := os.Stat(png); err != nil || info.Size() == 0 {
		t.Errorf("export not written: %v", err)
	}
}

func TestRunScriptAndWrite(t *testing.T) {
	cfg, doc := setup(t)
	script := filepath.Join(t.TempDir(), "move.lua")
	if err := os.WriteFile(script, []byte(`doc.set("box", "left", 60) print(doc.get("box", "left"))`), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	if code := run([]string{"-c", cfg, "-d", doc, "-w", "run", script}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if strings.TrimSpace(out.String()) != "60" {
		t.Errorf("script output = %q", out.String())
	}

	data, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "left: 60") {
		t.Errorf("document not saved:\n%s", data)
	}
}

func TestRunErrors(t *testing.T) {
	cfg, doc := setup(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown command", []string{"-c", cfg, "frobnicate"}, 2},
		{"export without files", []string{"-c", cfg, "-d", doc, "export"}, 1},
		{"missing script", []string{"-c", cfg, "run", filepath.Join(t.TempDir(), "none.lua")}, 1},
		{"help", []string{"-h"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if code := run(tt.args, &out, &errOut); code != tt.code {
				t.Errorf("exit = %d, want %d (%s)", code, tt.code, errOut.String())
			}
		})
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"version"}, &out, &bytes.Buffer{}); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(out.String(), "drafter dev") {
		t.Errorf("version output = %q", out.String())
	}
}
