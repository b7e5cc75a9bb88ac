package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/html-fillable-pdf/internal/config"
	"github.com/a3tai/html-fillable-pdf/internal/form"
	"github.com/a3tai/html-fillable-pdf/internal/pdf"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
	"github.com/a3tai/html-fillable-pdf/internal/render"
)

const sourceHTML = `<!doctype html>
<html><head><title>Signup</title></head><body>
<input name="full_name">
<input type="checkbox" name="agree">
</body></html>`

// fakeRenderer returns blank pages and a fixed field list
type fakeRenderer struct {
	pages    int
	fields   []form.FieldDescriptor
	err      error
	requests []render.Request
}

func (f *fakeRenderer) Render(_ context.Context, req render.Request) (*render.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	doc, err := pdf.BlankDocument(req.Geometry, f.pages)
	if err != nil {
		return nil, err
	}
	res := &render.Result{BasePDF: doc.Bytes()}
	if !req.SkipExtraction {
		res.Fields = f.fields
	}
	return res, nil
}

func testFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		{Tag: form.TagInput, ControlType: "text", Name: "full_name", BBox: form.BBox{X: 100, Y: 50, Width: 200, Height: 30}},
		{Tag: form.TagInput, ControlType: "checkbox", Name: "agree", BBox: form.BBox{X: 100, Y: 120, Width: 13, Height: 13}},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (string, Options) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "form.html")
	require.NoError(t, os.WriteFile(src, []byte(sourceHTML), 0o644))

	return dir, Options{
		SourcePath:     src,
		OutputDir:      filepath.Join(dir, "out"),
		Geometry:       form.A4(),
		ViewportWidth:  render.DefaultViewportWidth,
		ViewportHeight: render.DefaultViewportHeight,
		Map:            form.DefaultMapOptions(),
		Policy:         pdf.PolicyClamp,
	}
}

func TestRun_WritesAllArtifacts(t *testing.T) {
	_, opts := setup(t)
	r := &fakeRenderer{pages: 2, fields: testFields()}

	report, err := New(r, quietLogger()).Run(context.Background(), opts)
	require.NoError(t, err)

	for _, p := range report.Artifacts.Paths() {
		assert.FileExists(t, p)
		assert.Equal(t, opts.OutputDir, filepath.Dir(p))
	}
	assert.Equal(t, 2, report.Fields)
	assert.Equal(t, 2, report.Widgets)
	assert.Equal(t, 2, report.BasePages)
	assert.Equal(t, 1, report.OverlayPages)

	mismatches := report.Issues.OfType(pdferrors.ErrorTypePageCountMismatch)
	assert.Len(t, mismatches, 1)

	in, err := pdf.InspectFile(report.Artifacts.FinalPDF)
	require.NoError(t, err)
	assert.Equal(t, 2, in.PageCount())
	for _, page := range in.Pages {
		names := make([]string, len(page.Widgets))
		for i, w := range page.Widgets {
			names[i] = w.Name
		}
		assert.Equal(t, []string{"full_name", "agree"}, names)
	}

	saved, err := form.LoadFieldList(report.Artifacts.FieldsJSON)
	require.NoError(t, err)
	if diff := cmp.Diff(testFields(), saved); diff != "" {
		t.Errorf("field list mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ReusesFieldList(t *testing.T) {
	dir, opts := setup(t)
	saved, err := form.MarshalFieldList(testFields()[:1])
	require.NoError(t, err)
	opts.FieldsPath = filepath.Join(dir, "saved.json")
	require.NoError(t, os.WriteFile(opts.FieldsPath, saved, 0o644))

	r := &fakeRenderer{pages: 1, fields: testFields()}
	report, err := New(r, quietLogger()).Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, r.requests, 1)
	assert.True(t, r.requests[0].SkipExtraction)
	assert.Equal(t, 1, report.Fields)
	assert.Empty(t, report.Issues.OfType(pdferrors.ErrorTypePageCountMismatch))

	in, err := pdf.InspectFile(report.Artifacts.FinalPDF)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name"}, in.WidgetNames())
}

func TestRun_InvalidFieldList(t *testing.T) {
	dir, opts := setup(t)
	opts.FieldsPath = filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(opts.FieldsPath, []byte("{not json"), 0o644))

	_, err := New(&fakeRenderer{pages: 1}, quietLogger()).Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &pdferrors.ConversionError{Type: pdferrors.ErrorTypeInvalidFieldList}))
}

func TestRun_NoFields(t *testing.T) {
	_, opts := setup(t)

	report, err := New(&fakeRenderer{pages: 1}, quietLogger()).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fields)

	in, err := pdf.InspectFile(report.Artifacts.FinalPDF)
	require.NoError(t, err)
	assert.Equal(t, 1, in.PageCount())
	assert.Empty(t, in.WidgetNames())

	data, err := os.ReadFile(report.Artifacts.FieldsJSON)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestRun_MissingSource(t *testing.T) {
	_, opts := setup(t)
	opts.SourcePath = filepath.Join(t.TempDir(), "missing.html")
	r := &fakeRenderer{pages: 1}

	_, err := New(r, quietLogger()).Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &pdferrors.ConversionError{Type: pdferrors.ErrorTypeSourceUnavailable}))
	assert.Empty(t, r.requests)
}

func TestRun_RenderFailureRemovesStaleFinal(t *testing.T) {
	_, opts := setup(t)
	require.NoError(t, os.MkdirAll(opts.OutputDir, 0o755))
	stale := filepath.Join(opts.OutputDir, FinalFileName)
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	r := &fakeRenderer{err: pdferrors.New(pdferrors.ErrorTypeRenderFailure, "browser crashed")}
	_, err := New(r, quietLogger()).Run(context.Background(), opts)
	require.Error(t, err)

	var convErr *pdferrors.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, pdferrors.ErrorTypeRenderFailure, convErr.Type)
	assert.Equal(t, "render", convErr.Stage)
	assert.NoFileExists(t, stale)
}

func TestRun_FailPolicy(t *testing.T) {
	_, opts := setup(t)
	opts.Policy = pdf.PolicyFail
	r := &fakeRenderer{pages: 2, fields: testFields()}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	report, err := New(r, logger).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, pdf.ErrPageOutOfRange))
	assert.NotContains(t, logs.String(), "Page count mismatch", "the merge error is the only report of the mismatch")
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, FinalFileName))
	assert.FileExists(t, filepath.Join(opts.OutputDir, BaseFileName))
	assert.FileExists(t, filepath.Join(opts.OutputDir, OverlayFileName))
}

func TestRun_DegradedWidgetsAreReported(t *testing.T) {
	_, opts := setup(t)
	fields := testFields()
	opts.Map = form.MapOptions{BorderStyle: "wavy"}

	report, err := New(&fakeRenderer{pages: 1, fields: fields}, quietLogger()).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Issues.OfType(pdferrors.ErrorTypeWidgetConstructionDegraded))
	assert.Equal(t, 2, report.Widgets)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SourcePath = "form.html"
	cfg.OutputDir = "/tmp/out"
	cfg.PagePolicy = "repeat"

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "form.html", opts.SourcePath)
	assert.Equal(t, pdf.PolicyRepeat, opts.Policy)
	assert.InDelta(t, 595.28, opts.Geometry.WidthPt, 0.01)

	cfg.Paper = "tabloid-ish"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
