// Package pipeline runs a full conversion: render, field list, mapping,
// overlay, merge and verification, writing every artifact to one directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/a3tai/html-fillable-pdf/internal/config"
	"github.com/a3tai/html-fillable-pdf/internal/form"
	"github.com/a3tai/html-fillable-pdf/internal/pdf"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
	"github.com/a3tai/html-fillable-pdf/internal/render"
	"github.com/a3tai/html-fillable-pdf/internal/security"
)

// Artifact file names inside the output directory
const (
	BaseFileName    = "base_render.pdf"
	OverlayFileName = "overlay.pdf"
	FinalFileName   = "final_fill.pdf"
	FieldsFileName  = "fields.json"
)

// Options control a single run
type Options struct {
	SourcePath     string
	OutputDir      string
	FieldsPath     string
	Geometry       form.PageGeometry
	ViewportWidth  int
	ViewportHeight int
	Map            form.MapOptions
	Policy         pdf.PagePolicy
}

// OptionsFromConfig derives run options from a validated configuration
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	geom, err := cfg.Geometry()
	if err != nil {
		return Options{}, err
	}
	return Options{
		SourcePath:     cfg.SourcePath,
		OutputDir:      cfg.OutputDir,
		FieldsPath:     cfg.FieldsPath,
		Geometry:       geom,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		Map:            cfg.MapOptions(),
		Policy:         cfg.Policy(),
	}, nil
}

// Artifacts are the absolute paths of the files a run produces
type Artifacts struct {
	BasePDF    string `json:"base_pdf"`
	OverlayPDF string `json:"overlay_pdf"`
	FinalPDF   string `json:"final_pdf"`
	FieldsJSON string `json:"fields_json"`
}

// Paths returns the artifact paths in reporting order
func (a Artifacts) Paths() []string {
	return []string{a.BasePDF, a.OverlayPDF, a.FinalPDF, a.FieldsJSON}
}

// Report summarizes a successful run
type Report struct {
	Artifacts    Artifacts                  `json:"artifacts"`
	Fields       int                        `json:"fields"`
	Widgets      int                        `json:"widgets"`
	BasePages    int                        `json:"base_pages"`
	OverlayPages int                        `json:"overlay_pages"`
	Issues       *pdferrors.ErrorCollection `json:"issues"`
	Elapsed      time.Duration              `json:"elapsed"`
}

// Pipeline wires a renderer to the mapping and composition stages
type Pipeline struct {
	renderer render.Renderer
	logger   *slog.Logger
}

// New creates a pipeline
func New(renderer render.Renderer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{renderer: renderer, logger: logger}
}

// Run converts opts.SourcePath. On failure no final document is left in
// the output directory; intermediate artifacts already written are kept.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	report := &Report{Issues: pdferrors.NewErrorCollection()}

	artifacts, err := p.prepareOutput(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	report.Artifacts = artifacts

	if err := p.run(ctx, opts, report); err != nil {
		if rmErr := os.Remove(artifacts.FinalPDF); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			p.logger.Warn("Failed to remove final document after error", "path", artifacts.FinalPDF, "error", rmErr)
		}
		return nil, err
	}

	report.Elapsed = time.Since(start)
	p.logger.Info("Conversion complete",
		"source", opts.SourcePath,
		"fields", report.Fields,
		"pages", report.BasePages,
		"issues", report.Issues.Summary(),
		"elapsed", report.Elapsed)
	return report, nil
}

// prepareOutput creates the output directory, resolves the artifact paths
// and removes a final document left by an earlier run
func (p *Pipeline) prepareOutput(dir string) (Artifacts, error) {
	validator, err := security.NewPathValidator(dir)
	if err != nil {
		return Artifacts{}, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailure, "invalid output directory", err).WithStage("prepare")
	}
	if err := validator.EnsureRoot(); err != nil {
		return Artifacts{}, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailure, "output directory unavailable", err).
			WithStage("prepare").
			WithFile(dir)
	}

	var a Artifacts
	for _, item := range []struct {
		name string
		dst  *string
	}{
		{BaseFileName, &a.BasePDF},
		{OverlayFileName, &a.OverlayPDF},
		{FinalFileName, &a.FinalPDF},
		{FieldsFileName, &a.FieldsJSON},
	} {
		path, err := validator.Resolve(item.name)
		if err != nil {
			return Artifacts{}, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailure, "invalid artifact path", err).WithStage("prepare")
		}
		*item.dst = path
	}

	if err := os.Remove(a.FinalPDF); err == nil {
		p.logger.Debug("Removed stale final document", "path", a.FinalPDF)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Artifacts{}, pdferrors.Wrap(pdferrors.ErrorTypeWriteFailure, "cannot remove stale final document", err).
			WithStage("prepare").
			WithFile(a.FinalPDF)
	}

	return a, nil
}

func (p *Pipeline) run(ctx context.Context, opts Options, report *Report) error {
	a := report.Artifacts

	source, err := render.Preflight(opts.SourcePath)
	if err != nil {
		return err
	}
	p.logger.Debug("Preflight passed", "path", opts.SourcePath, "title", source.Title, "controls", source.ControlCount())

	fields, base, err := p.renderSource(ctx, opts, source)
	if err != nil {
		return err
	}
	report.Fields = len(fields)
	report.BasePages = base.PageCount()

	fieldList, err := form.MarshalFieldList(fields)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidFieldList, "failed to encode field list", err).WithStage("fields")
	}
	if err := pdf.WriteFileAtomic(a.FieldsJSON, fieldList); err != nil {
		return writeFailure(a.FieldsJSON, err)
	}
	if err := base.WriteFile(a.BasePDF); err != nil {
		return writeFailure(a.BasePDF, err)
	}

	widgets := form.Map(fields, opts.Geometry, opts.Map)
	for _, w := range widgets {
		p.logger.Debug("Mapped field",
			"index", w.Index,
			"name", w.Name,
			"kind", w.Kind,
			"x", w.Rect.X,
			"y", w.Rect.Y,
			"width", w.Rect.Width,
			"height", w.Rect.Height)
	}

	overlay, overlayReport, err := pdf.BuildOverlay(widgets, opts.Geometry)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeMergeFailure, "failed to build overlay", err).WithStage("overlay")
	}
	report.Widgets = overlayReport.Widgets
	report.OverlayPages = overlay.PageCount()
	report.Issues.Merge(overlayReport.Issues)
	for _, d := range overlayReport.Degraded() {
		p.logger.Warn("Widget built with fallback style", "field", d.FieldName, "reason", d.Err)
	}
	if err := overlay.WriteFile(a.OverlayPDF); err != nil {
		return writeFailure(a.OverlayPDF, err)
	}

	// Under the fail policy the merge error reports the mismatch
	if base.PageCount() > overlay.PageCount() && opts.Policy != pdf.PolicyFail {
		mismatch := pdferrors.New(pdferrors.ErrorTypePageCountMismatch,
			fmt.Sprintf("base has %d pages, overlay has %d", base.PageCount(), overlay.PageCount())).WithStage("merge")
		report.Issues.Add(mismatch)
		p.logger.Info("Page count mismatch", "base_pages", base.PageCount(), "overlay_pages", overlay.PageCount(), "policy", opts.Policy)
	}

	final, err := pdf.Merge(base, overlay, opts.Policy)
	if err != nil {
		return withStage(err, "merge")
	}
	if err := final.WriteFile(a.FinalPDF); err != nil {
		return writeFailure(a.FinalPDF, err)
	}

	return p.verify(a.FinalPDF, base.PageCount(), len(widgets))
}

// renderSource produces the base document and the field list, either
// extracted by the renderer or loaded from opts.FieldsPath
func (p *Pipeline) renderSource(ctx context.Context, opts Options, source *render.Source) ([]form.FieldDescriptor, *pdf.Document, error) {
	var fields []form.FieldDescriptor
	if opts.FieldsPath != "" {
		loaded, err := form.LoadFieldList(opts.FieldsPath)
		if err != nil {
			return nil, nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidFieldList, "cannot reuse field list", err).
				WithStage("fields").
				WithFile(opts.FieldsPath)
		}
		fields = loaded
		p.logger.Info("Reusing field list", "path", opts.FieldsPath, "fields", len(fields))
	}

	result, err := p.renderer.Render(ctx, render.Request{
		SourcePath:     opts.SourcePath,
		Geometry:       opts.Geometry,
		ViewportWidth:  opts.ViewportWidth,
		ViewportHeight: opts.ViewportHeight,
		SkipExtraction: opts.FieldsPath != "",
	})
	if err != nil {
		return nil, nil, withStage(err, "render")
	}

	if opts.FieldsPath == "" {
		fields = result.Fields
		if len(fields) != source.ControlCount() {
			p.logger.Warn("Browser and markup disagree on control count",
				"browser", len(fields),
				"markup", source.ControlCount())
		}
	}
	if fields == nil {
		fields = []form.FieldDescriptor{}
	}

	base, err := pdf.NewDocument(result.BasePDF)
	if err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.ErrorTypeRenderFailure, "renderer produced an unreadable PDF", err).WithStage("render")
	}
	if base.PageCount() == 0 {
		return nil, nil, pdferrors.New(pdferrors.ErrorTypeRenderFailure, "renderer produced a document without pages").WithStage("render")
	}

	return fields, base, nil
}

// verify re-reads the written document with an independent parser
func (p *Pipeline) verify(path string, wantPages, widgetsPerPage int) error {
	in, err := pdf.InspectFile(path)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeMergeFailure, "final document cannot be re-read", err).
			WithStage("verify").
			WithFile(path)
	}
	if in.PageCount() != wantPages {
		return pdferrors.New(pdferrors.ErrorTypeMergeFailure,
			fmt.Sprintf("final document has %d pages, want %d", in.PageCount(), wantPages)).
			WithStage("verify").
			WithFile(path)
	}
	for _, page := range in.Pages {
		if len(page.Widgets) != widgetsPerPage {
			return pdferrors.New(pdferrors.ErrorTypeMergeFailure,
				fmt.Sprintf("page has %d widgets, want %d", len(page.Widgets), widgetsPerPage)).
				WithStage("verify").
				WithPage(page.Number).
				WithFile(path)
		}
	}
	p.logger.Debug("Verified final document", "path", path, "pages", in.PageCount())
	return nil
}

func writeFailure(path string, err error) error {
	return pdferrors.Wrap(pdferrors.ErrorTypeWriteFailure, "failed to write artifact", err).
		WithStage("write").
		WithFile(path)
}

// withStage tags conversion errors that carry no stage yet
func withStage(err error, stage string) error {
	var convErr *pdferrors.ConversionError
	if errors.As(err, &convErr) {
		if convErr.Stage == "" {
			convErr.Stage = stage
		}
		return err
	}
	return pdferrors.Wrap(pdferrors.ErrorTypeUnknown, stage+" failed", err).WithStage(stage)
}
