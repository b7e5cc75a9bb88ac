package pdf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// basePageOps is the drawing each generated base page carries, keyed by
// 0-based page index
func basePageOps(i int) string {
	return fmt.Sprintf("0 0 1 rg %d 100 50 50 re f", 50+i*10)
}

// makeBase builds an n page A4 document whose pages each draw one rectangle
func makeBase(t *testing.T, n int) *Document {
	t.Helper()
	doc, err := pagedDocument(form.A4(), n, func(i int) []byte { return []byte(basePageOps(i)) })
	require.NoError(t, err)
	require.Equal(t, n, doc.PageCount())
	return doc
}

// sampleFields is a text input above a checkbox
func sampleFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		{Tag: form.TagInput, ControlType: "text", Name: "full_name", BBox: form.BBox{X: 100, Y: 50, Width: 200, Height: 30}},
		{Tag: form.TagInput, ControlType: "checkbox", Name: "agree", BBox: form.BBox{X: 100, Y: 120, Width: 13, Height: 13}},
	}
}

func sampleOverlay(t *testing.T) (*Document, []form.WidgetDescriptor) {
	t.Helper()
	widgets := form.Map(sampleFields(), form.A4(), form.DefaultMapOptions())
	doc, report, err := BuildOverlay(widgets, form.A4())
	require.NoError(t, err)
	require.Empty(t, report.Degraded())
	return doc, widgets
}

// pageContentOf returns the decoded content of a 1-based page
func pageContentOf(t *testing.T, doc *Document, pageNr int) string {
	t.Helper()
	ctx, err := doc.Context()
	require.NoError(t, err)
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	require.NoError(t, err)
	content, err := pageContent(ctx, pageDict)
	require.NoError(t, err)
	return string(content)
}
