package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/html-fillable-pdf/internal/form"
	"github.com/a3tai/html-fillable-pdf/internal/pdf"
	"github.com/a3tai/html-fillable-pdf/internal/render"
)

const (
	// Mode constants
	ModeCLI   = "cli"
	ModeStdio = "stdio"

	// Default values
	DefaultInputDir      = "."
	DefaultOutputDir     = "output"
	DefaultPaper         = form.PaperA4
	DefaultLogLevel      = "info"
	DefaultBorderStyle   = "underline"
	DefaultRenderTimeout = 60 * time.Second

	// EnvPrefix is prepended to every environment variable name
	EnvPrefix = "HTMLPDF"
)

var (
	// ErrVersionRequested is returned when --version was given
	ErrVersionRequested = errors.New("version requested")
	// ErrMissingSource is returned in cli mode when no HTML file was given
	ErrMissingSource = errors.New("missing source HTML file")
)

// Config holds all configuration for a conversion run
type Config struct {
	Mode string // "cli" or "stdio"

	// Input and output
	SourcePath string
	InputDir   string // stdio tools only read files below this directory or OutputDir
	OutputDir  string
	FieldsPath string // reuse a saved field list instead of browser extraction

	// Page geometry
	Paper          string
	Scale          float64
	ViewportWidth  int
	ViewportHeight int

	// Widget and merge policy
	BorderStyle string
	DedupeNames bool
	PagePolicy  string

	// Browser
	ChromePath    string
	RenderTimeout time.Duration

	// Application configuration
	ConfigFile string
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeCLI,
		InputDir:       DefaultInputDir,
		OutputDir:      DefaultOutputDir,
		Paper:          DefaultPaper,
		Scale:          form.PxToPt,
		ViewportWidth:  render.DefaultViewportWidth,
		ViewportHeight: render.DefaultViewportHeight,
		BorderStyle:    DefaultBorderStyle,
		PagePolicy:     string(pdf.PolicyClamp),
		RenderTimeout:  DefaultRenderTimeout,
		Version:        "1.0.0",
		ServerName:     "html-fillable-pdf",
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFromFlags parses os.Args and returns a configuration
func LoadFromFlags() (*Config, error) {
	return LoadFromArgs(os.Args[1:], os.Stderr)
}

// LoadFromArgs parses args (without the program name) on top of defaults,
// an optional config file and HTMLPDF_* environment variables. Usage text
// goes to usage.
func LoadFromArgs(args []string, usage io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	fs := pflag.NewFlagSet("html-fillable-pdf", pflag.ContinueOnError)
	fs.SetOutput(usage)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	bindFlagsToViper(v, fs)
	setupUsageMessage(fs, usage)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if showVersion, _ := fs.GetBool("version"); showVersion {
		return nil, ErrVersionRequested
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	populateConfigFromViper(v, cfg)
	if fs.NArg() > 0 {
		cfg.SourcePath = fs.Arg(0)
	}

	for _, dir := range []*string{&cfg.InputDir, &cfg.OutputDir} {
		if *dir != "" {
			if expandedPath, err := filepath.Abs(*dir); err == nil {
				*dir = expandedPath
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, ErrMissingSource) {
			fs.Usage()
			return nil, err
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("dir", cfg.InputDir)
	v.SetDefault("out", cfg.OutputDir)
	v.SetDefault("fields", cfg.FieldsPath)
	v.SetDefault("paper", cfg.Paper)
	v.SetDefault("scale", cfg.Scale)
	v.SetDefault("viewport-width", cfg.ViewportWidth)
	v.SetDefault("viewport-height", cfg.ViewportHeight)
	v.SetDefault("border-style", cfg.BorderStyle)
	v.SetDefault("dedupe-names", cfg.DedupeNames)
	v.SetDefault("page-policy", cfg.PagePolicy)
	v.SetDefault("chrome-path", cfg.ChromePath)
	v.SetDefault("render-timeout", cfg.RenderTimeout)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("config", cfg.ConfigFile)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Run mode: 'cli' converts one file, 'stdio' serves MCP tools on standard I/O")
	fs.String("dir", cfg.InputDir, "Directory the MCP tools may read HTML, field list and PDF files from")
	fs.String("out", cfg.OutputDir, "Directory the artifacts are written to")
	fs.String("fields", cfg.FieldsPath, "Reuse a saved fields.json instead of extracting controls from the browser")
	fs.String("paper", cfg.Paper, "Paper size ("+strings.Join(form.PaperNames(), ", ")+")")
	fs.Float64("scale", cfg.Scale, "Points per CSS pixel")
	fs.Int("viewport-width", cfg.ViewportWidth, "Browser viewport width in CSS pixels")
	fs.Int("viewport-height", cfg.ViewportHeight, "Browser viewport height in CSS pixels")
	fs.String("border-style", cfg.BorderStyle, "Text widget border ("+strings.Join(form.BorderStyles(), ", ")+")")
	fs.Bool("dedupe-names", cfg.DedupeNames, "Suffix repeated field names with _2, _3, ...")
	fs.String("page-policy", cfg.PagePolicy, "Overlay page selection when the render has more pages ("+
		strings.Join(pdf.PagePolicies(), ", ")+")")
	fs.String("chrome-path", cfg.ChromePath, "Chrome or Chromium executable (default: discovered)")
	fs.Duration("render-timeout", cfg.RenderTimeout, "Maximum time for browser rendering")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("config", cfg.ConfigFile, "YAML config file")
	fs.BoolP("version", "v", false, "Print version and exit")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	for _, name := range []string{
		"mode", "dir", "out", "fields", "paper", "scale", "viewport-width", "viewport-height",
		"border-style", "dedupe-names", "page-policy", "chrome-path", "render-timeout",
		"loglevel", "config",
	} {
		_ = v.BindPFlag(name, fs.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(fs *pflag.FlagSet, w io.Writer) {
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: html-fillable-pdf [flags] <source.html>\n")
		fmt.Fprintf(w, "\nHTML to fillable PDF - renders an HTML form and overlays matching form fields\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  html-fillable-pdf form.html                          # writes ./output/final_fill.pdf\n")
		fmt.Fprintf(w, "  html-fillable-pdf --paper=Letter --out=build form.html\n")
		fmt.Fprintf(w, "  html-fillable-pdf --fields=output/fields.json form.html # skip control extraction\n")
		fmt.Fprintf(w, "  html-fillable-pdf --mode=stdio --dir=forms           # MCP server on stdio reading ./forms\n")
		fmt.Fprintf(w, "\nEnvironment Variables:\n")
		fmt.Fprintf(w, "  %s_DIR, %s_OUT, %s_PAPER, %s_PAGE_POLICY, %s_CHROME_PATH, %s_LOGLEVEL, ...\n",
			EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.InputDir = v.GetString("dir")
	cfg.OutputDir = v.GetString("out")
	cfg.FieldsPath = v.GetString("fields")
	cfg.Paper = v.GetString("paper")
	cfg.Scale = v.GetFloat64("scale")
	cfg.ViewportWidth = v.GetInt("viewport-width")
	cfg.ViewportHeight = v.GetInt("viewport-height")
	cfg.BorderStyle = v.GetString("border-style")
	cfg.DedupeNames = v.GetBool("dedupe-names")
	cfg.PagePolicy = v.GetString("page-policy")
	cfg.ChromePath = v.GetString("chrome-path")
	cfg.RenderTimeout = v.GetDuration("render-timeout")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.ConfigFile = v.GetString("config")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeCLI && c.Mode != ModeStdio {
		return errors.New("mode must be either 'cli' or 'stdio'")
	}

	if c.Mode == ModeCLI && c.SourcePath == "" {
		return ErrMissingSource
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.Mode == ModeStdio && c.InputDir == "" {
		return errors.New("input directory cannot be empty")
	}

	if _, err := c.Geometry(); err != nil {
		return err
	}

	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}

	if _, err := form.ParseBorderStyle(c.BorderStyle); err != nil {
		return err
	}

	if _, err := pdf.ParsePagePolicy(c.PagePolicy); err != nil {
		return err
	}

	if c.RenderTimeout < 0 {
		return errors.New("render timeout cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Geometry returns the page geometry for the configured paper and scale
func (c *Config) Geometry() (form.PageGeometry, error) {
	return form.GeometryFor(c.Paper, c.Scale)
}

// MapOptions returns the mapping policy. Call after Validate.
func (c *Config) MapOptions() form.MapOptions {
	style, err := form.ParseBorderStyle(c.BorderStyle)
	if err != nil {
		style = form.BorderUnderline
	}
	return form.MapOptions{BorderStyle: style, Dedupe: c.DedupeNames}
}

// Policy returns the page alignment policy. Call after Validate.
func (c *Config) Policy() pdf.PagePolicy {
	p, err := pdf.ParsePagePolicy(c.PagePolicy)
	if err != nil {
		return pdf.PolicyClamp
	}
	return p
}

// SlogLevel returns the log level as a slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsStdioMode returns true if the process serves MCP tools on stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Source: %s, InputDir: %s, OutputDir: %s, Paper: %s, Scale: %g, Viewport: %dx%d, "+
		"BorderStyle: %s, DedupeNames: %t, PagePolicy: %s, Fields: %s, RenderTimeout: %s, LogLevel: %s}",
		c.Mode, c.SourcePath, c.InputDir, c.OutputDir, c.Paper, c.Scale, c.ViewportWidth, c.ViewportHeight,
		c.BorderStyle, c.DedupeNames, c.PagePolicy, c.FieldsPath, c.RenderTimeout, c.LogLevel)
}
