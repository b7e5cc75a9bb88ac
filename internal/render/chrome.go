package render

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/a3tai/html-fillable-pdf/internal/form"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
)

//go:embed extract.js
var extractScript string

// ChromeRenderer renders with a headless Chrome driven over the DevTools
// protocol. Each call starts and tears down its own browser.
type ChromeRenderer struct {
	// ExecPath overrides browser discovery
	ExecPath string
	// Timeout bounds the whole render, zero means no limit beyond ctx
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewChromeRenderer creates a renderer
func NewChromeRenderer(execPath string, timeout time.Duration, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{ExecPath: execPath, Timeout: timeout, Logger: logger}
}

// Render loads req.SourcePath, extracts its controls and prints it
func (r *ChromeRenderer) Render(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeRenderFailure, "invalid render request", err).WithStage("render")
	}

	sourceURL, err := fileURL(req.SourcePath)
	if err != nil {
		return nil, pdferrors.NewSourceUnavailable(req.SourcePath, err).WithStage("render")
	}

	profileDir, err := os.MkdirTemp("", "html-fillable-pdf-chrome-*")
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeRenderFailure, "failed to create browser profile", err).WithStage("render")
	}
	defer os.RemoveAll(profileDir)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions(profileDir, req)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(r.logf(slog.LevelDebug)),
		chromedp.WithErrorf(r.logf(slog.LevelWarn)),
	)
	defer cancelBrowser()

	start := time.Now()
	var raws []form.RawControl
	var pdfData []byte

	// Controls are measured in the layout the printer will produce: print
	// media rules applied at the width of the paper.
	actions := []chromedp.Action{
		chromedp.EmulateViewport(printLayoutWidth(req.Geometry), int64(req.ViewportHeight)),
		emulation.SetEmulatedMedia().WithMedia("print"),
		chromedp.Navigate(sourceURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if !req.SkipExtraction {
		actions = append(actions, chromedp.Evaluate(extractScript, &raws))
	}
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(req.Geometry.WidthInches()).
			WithPaperHeight(req.Geometry.HeightInches()).
			WithMarginTop(0).
			WithMarginBottom(0).
			WithMarginLeft(0).
			WithMarginRight(0).
			WithPreferCSSPageSize(false).
			Do(ctx)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	}))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeRenderFailure, "browser rendering failed", err).
			WithStage("render").
			WithFile(req.SourcePath)
	}

	result := &Result{BasePDF: pdfData}
	if !req.SkipExtraction {
		result.Fields = form.FromRaw(raws)
	}

	r.Logger.Debug("Rendered source",
		"path", req.SourcePath,
		"controls", len(raws),
		"pdf_bytes", len(pdfData),
		"elapsed", time.Since(start))

	return result, nil
}

// printLayoutWidth is the paper width in CSS pixels, the width Chrome lays
// the page out at when printing without margins
func printLayoutWidth(geom form.PageGeometry) int64 {
	return int64(math.Round(geom.WidthPt / geom.Scale))
}

func (r *ChromeRenderer) allocatorOptions(profileDir string, req Request) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(profileDir),
		chromedp.WindowSize(req.ViewportWidth, req.ViewportHeight),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}
	// Chrome will not start sandboxed as root
	if runtime.GOOS == "linux" && os.Geteuid() == 0 {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

func (r *ChromeRenderer) logf(level slog.Level) func(string, ...any) {
	return func(format string, args ...any) {
		r.Logger.Log(context.Background(), level, fmt.Sprintf(format, args...), "component", "chromedp")
	}
}

// fileURL turns a filesystem path into a file:// URL
func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
