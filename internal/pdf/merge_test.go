package pdf

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/html-fillable-pdf/internal/form"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		name   string
		policy PagePolicy
		i, n   int
		want   int
		err    bool
	}{
		{"clamp inside", PolicyClamp, 0, 1, 0, false},
		{"clamp past end", PolicyClamp, 2, 1, 0, false},
		{"clamp last of many", PolicyClamp, 5, 3, 2, false},
		{"repeat cycles", PolicyRepeat, 4, 3, 1, false},
		{"repeat single", PolicyRepeat, 2, 1, 0, false},
		{"fail inside", PolicyFail, 1, 2, 1, false},
		{"fail past end", PolicyFail, 2, 2, 0, true},
		{"no overlay pages", PolicyClamp, 0, 0, 0, true},
		{"negative index", PolicyRepeat, -1, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Align(tt.policy, tt.i, tt.n)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePagePolicy(t *testing.T) {
	p, err := ParsePagePolicy("Repeat")
	require.NoError(t, err)
	assert.Equal(t, PolicyRepeat, p)

	p, err = ParsePagePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyClamp, p)

	_, err = ParsePagePolicy("stretch")
	assert.Error(t, err)
}

func TestMerge_ClampsOverlayOntoEveryBasePage(t *testing.T) {
	base := makeBase(t, 3)
	overlay, widgets := sampleOverlay(t)

	merged, err := Merge(base, overlay, PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.PageCount())

	in, err := Inspect(merged.Bytes())
	require.NoError(t, err)
	require.Equal(t, 3, in.PageCount())
	for _, page := range in.Pages {
		require.Len(t, page.Widgets, len(widgets), "page %d", page.Number)
		for j, w := range page.Widgets {
			assert.Equal(t, widgets[j].Name, w.Name)
			assert.InDelta(t, widgets[j].Rect.X, w.Rect.X, 0.01)
			assert.InDelta(t, widgets[j].Rect.Y, w.Rect.Y, 0.01)
			assert.InDelta(t, widgets[j].Rect.Width, w.Rect.Width, 0.01)
			assert.InDelta(t, widgets[j].Rect.Height, w.Rect.Height, 0.01)
		}
		assert.InDelta(t, 841.89, page.MediaBox.Height, 0.01)
	}

	fields, err := ListFormFields(merged)
	require.NoError(t, err)
	require.Len(t, fields, 6)
	pages := make([]int, len(fields))
	for i, f := range fields {
		pages[i] = f.Page
	}
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3}, pages)
}

func TestMerge_KeepsBaseContent(t *testing.T) {
	base := makeBase(t, 2)
	overlay, _ := sampleOverlay(t)

	merged, err := Merge(base, overlay, PolicyClamp)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.Contains(t, pageContentOf(t, merged, i+1), basePageOps(i))
	}
}

func TestMerge_StampsOverlayContent(t *testing.T) {
	base := makeBase(t, 2)
	widgets := form.Map(sampleFields(), form.A4(), form.MapOptions{BorderStyle: "wavy"})
	overlay, _, err := BuildOverlay(widgets, form.A4())
	require.NoError(t, err)

	merged, err := Merge(base, overlay, PolicyRepeat)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		content := pageContentOf(t, merged, i+1)
		assert.Contains(t, content, basePageOps(i))
		assert.Contains(t, content, "/HFPOverlay1 Do")
		assert.Less(t, bytes.Index([]byte(content), []byte(basePageOps(i))), bytes.Index([]byte(content), []byte("/HFPOverlay1 Do")))
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	base := makeBase(t, 3)
	overlay, _ := sampleOverlay(t)
	baseBefore := base.Bytes()
	overlayBefore := overlay.Bytes()

	_, err := Merge(base, overlay, PolicyClamp)
	require.NoError(t, err)

	assert.Equal(t, baseBefore, base.Bytes())
	assert.Equal(t, overlayBefore, overlay.Bytes())

	in, err := Inspect(base.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, in.PageCount())
	assert.Empty(t, in.WidgetNames())

	in, err = Inspect(overlay.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, in.PageCount())
	assert.Len(t, in.WidgetNames(), 2)
}

func TestMerge_Deterministic(t *testing.T) {
	base := makeBase(t, 2)
	overlay, _ := sampleOverlay(t)

	first, err := Merge(base, overlay, PolicyClamp)
	require.NoError(t, err)
	second, err := Merge(base, overlay, PolicyClamp)
	require.NoError(t, err)

	a, err := ListFormFields(first)
	require.NoError(t, err)
	b, err := ListFormFields(second)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("merge output differs between runs (-first +second):\n%s", diff)
	}
}

func TestMerge_FailPolicy(t *testing.T) {
	base := makeBase(t, 3)
	overlay, _ := sampleOverlay(t)

	_, err := Merge(base, overlay, PolicyFail)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrPageOutOfRange))
	assert.True(t, stderrors.Is(err, &pdferrors.ConversionError{Type: pdferrors.ErrorTypeMergeFailure}))

	var convErr *pdferrors.ConversionError
	require.True(t, stderrors.As(err, &convErr))
	assert.Equal(t, 2, convErr.PageNumber)

	merged, err := Merge(makeBase(t, 1), overlay, PolicyFail)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.PageCount())
}

func TestMerge_NilInputs(t *testing.T) {
	overlay, _ := sampleOverlay(t)
	_, err := Merge(nil, overlay, PolicyClamp)
	assert.Error(t, err)
}

func TestNewDocument_Invalid(t *testing.T) {
	_, err := NewDocument([]byte("not a pdf"))
	assert.Error(t, err)

	_, err = LoadDocumentFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestDocument_WriteFile(t *testing.T) {
	dir := t.TempDir()
	doc := makeBase(t, 1)
	path := filepath.Join(dir, "base_render.pdf")

	require.NoError(t, doc.WriteFile(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "base_render.pdf", entries[0].Name())

	loaded, err := LoadDocumentFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes(), loaded.Bytes())

	in, err := InspectFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, in.PageCount())

	err = doc.WriteFile(filepath.Join(dir, "missing", "x.pdf"))
	assert.Error(t, err)
}

func TestBlankDocument(t *testing.T) {
	doc, err := BlankDocument(form.A4(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())

	_, err = BlankDocument(form.A4(), 0)
	assert.Error(t, err)
}
