package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/html-fillable-pdf/internal/config"
	"github.com/a3tai/html-fillable-pdf/internal/form"
	"github.com/a3tai/html-fillable-pdf/internal/pdf"
	"github.com/a3tai/html-fillable-pdf/internal/pipeline"
	"github.com/a3tai/html-fillable-pdf/internal/render"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	oldVersion := version
	oldBuildTime := buildTime
	oldGitCommit := gitCommit

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version = oldVersion
		buildTime = oldBuildTime
		gitCommit = oldGitCommit
	}()

	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	expectedStrings := []string{
		"HTML Fillable PDF",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	tests := []struct {
		name      string
		mode      string
		logLevel  string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "cli info", mode: config.ModeCLI, logLevel: "info", wantInfo: true},
		{name: "cli debug", mode: config.ModeCLI, logLevel: "debug", wantDebug: true, wantInfo: true},
		{name: "stdio info is silent", mode: config.ModeStdio, logLevel: "info"},
		{name: "stdio debug", mode: config.ModeStdio, logLevel: "debug", wantDebug: true, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.logLevel

			var buf bytes.Buffer
			logger := setupLogging(cfg, &buf)
			logger.Debug("debug line")
			logger.Info("info line")

			if got := strings.Contains(buf.String(), "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v\n%s", got, tt.wantDebug, buf.String())
			}
			if got := strings.Contains(buf.String(), "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v\n%s", got, tt.wantInfo, buf.String())
			}
			if slog.Default() != logger {
				t.Error("setupLogging() should install the logger as default")
			}
		})
	}
}

// blankRenderer prints empty pages and reports one text field
type blankRenderer struct{}

func (blankRenderer) Render(_ context.Context, req render.Request) (*render.Result, error) {
	doc, err := pdf.BlankDocument(req.Geometry, 1)
	if err != nil {
		return nil, err
	}
	return &render.Result{
		BasePDF: doc.Bytes(),
		Fields: []form.FieldDescriptor{
			{Tag: form.TagInput, ControlType: "text", Name: "email", BBox: form.BBox{X: 20, Y: 20, Width: 300, Height: 24}},
		},
	}, nil
}

func TestRunConvert(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "form.html")
	if err := os.WriteFile(source, []byte(`<form><input name="email"></form>`), 0o644); err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	cfg, err := config.LoadFromArgs([]string{"--out", filepath.Join(dir, "out"), source}, io.Discard)
	if err != nil {
		t.Fatalf("LoadFromArgs() error = %v", err)
	}

	var stdout bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := runConvert(context.Background(), cfg, blankRenderer{}, logger, &stdout); err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	want := []string{pipeline.BaseFileName, pipeline.OverlayFileName, pipeline.FinalFileName, pipeline.FieldsFileName}
	if len(lines) != len(want) {
		t.Fatalf("printed %d paths, want %d:\n%s", len(lines), len(want), stdout.String())
	}
	for i, line := range lines {
		if filepath.Base(line) != want[i] {
			t.Errorf("line %d = %s, want file %s", i, line, want[i])
		}
		if _, err := os.Stat(line); err != nil {
			t.Errorf("artifact %s missing: %v", line, err)
		}
	}
}

func TestRunConvert_MissingSource(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.SourcePath = filepath.Join(dir, "missing.html")
	cfg.OutputDir = filepath.Join(dir, "out")

	var stdout bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := runConvert(context.Background(), cfg, blankRenderer{}, logger, &stdout); err == nil {
		t.Fatal("runConvert() should fail for a missing source")
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should be printed on failure, got %q", stdout.String())
	}
}
