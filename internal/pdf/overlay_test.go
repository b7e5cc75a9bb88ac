package pdf

import (
	"math"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/html-fillable-pdf/internal/form"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
)

func TestResolveStyle(t *testing.T) {
	text := func(style form.BorderStyle) form.WidgetDescriptor {
		return form.WidgetDescriptor{
			Name:     "f",
			Kind:     form.KindText,
			Rect:     form.Rect{X: 10, Y: 10, Width: 100, Height: 20},
			Metadata: form.Metadata{BorderStyle: style, ForceBorder: true},
		}
	}

	tests := []struct {
		name         string
		widget       form.WidgetDescriptor
		wantBorder   string
		wantDegraded bool
	}{
		{"underline", text(form.BorderUnderline), "U", false},
		{"solid", text(form.BorderSolid), "S", false},
		{"dashed", text(form.BorderDashed), "D", false},
		{"beveled", text(form.BorderBeveled), "B", false},
		{"inset", text(form.BorderInset), "I", false},
		{"none is bare", text(form.BorderNone), "", false},
		{"unknown style", text("wavy"), "", true},
		{"checkbox", form.WidgetDescriptor{Kind: form.KindCheckbox, Rect: form.Rect{Width: 10, Height: 10}}, "S", false},
		{"nan rect", form.WidgetDescriptor{Kind: form.KindText, Rect: form.Rect{X: math.NaN(), Width: 10, Height: 10}}, "", true},
		{"infinite rect", form.WidgetDescriptor{Kind: form.KindCheckbox, Rect: form.Rect{Width: math.Inf(1), Height: 10}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveStyle(tt.widget)
			assert.Equal(t, tt.wantDegraded, res.Degraded)
			assert.Equal(t, tt.wantBorder, res.Style.BorderName)
			if tt.wantDegraded {
				assert.Error(t, res.Reason)
				assert.True(t, res.Style.Bare())
			} else {
				assert.NoError(t, res.Reason)
			}
		})
	}

	assert.Equal(t, []float64{3, 2}, ResolveStyle(text(form.BorderDashed)).Style.Dash)
}

func TestTextString(t *testing.T) {
	assert.Equal(t, types.StringLiteral(`a\(b\)\\c`), textString(`a(b)\c`))
	assert.Equal(t, types.HexLiteral("FEFF00E9"), textString("é"))
}

func TestBuildOverlay(t *testing.T) {
	widgets := form.Map(sampleFields(), form.A4(), form.DefaultMapOptions())
	doc, report, err := BuildOverlay(widgets, form.A4())
	require.NoError(t, err)

	assert.Equal(t, 1, doc.PageCount())
	assert.Equal(t, 2, report.Widgets)
	assert.Equal(t, 1, report.TextFields)
	assert.Equal(t, 1, report.Checkboxes)

	fields, err := ListFormFields(doc)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, "full_name", fields[0].Name)
	assert.Equal(t, FieldTypeText, fields[0].Type)
	assert.Equal(t, "full_name", fields[0].Tooltip)
	assert.Equal(t, "U", fields[0].BorderStyle)
	assert.Equal(t, 1, fields[0].Page)
	assert.InDelta(t, 75, fields[0].Rect.X, 0.01)
	assert.InDelta(t, 781.89, fields[0].Rect.Y, 0.01)
	assert.InDelta(t, 150, fields[0].Rect.Width, 0.01)
	assert.InDelta(t, 22.5, fields[0].Rect.Height, 0.01)

	assert.Equal(t, "agree", fields[1].Name)
	assert.Equal(t, FieldTypeCheckbox, fields[1].Type)
	assert.Equal(t, "Off", fields[1].Value)
	assert.InDelta(t, fields[1].Rect.Width, fields[1].Rect.Height, 0.01)

	in, err := Inspect(doc.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, in.PageCount())
	assert.Equal(t, []string{"full_name", "agree"}, in.WidgetNames())
	assert.InDelta(t, 595.28, in.Pages[0].MediaBox.Width, 0.01)
	assert.Equal(t, "Tx", in.Pages[0].Widgets[0].FieldType)
	assert.Equal(t, "Btn", in.Pages[0].Widgets[1].FieldType)
}

func TestBuildOverlay_Empty(t *testing.T) {
	doc, report, err := BuildOverlay(nil, form.A4())
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())
	assert.Zero(t, report.Widgets)

	fields, err := ListFormFields(doc)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestBuildOverlay_InvalidGeometry(t *testing.T) {
	_, _, err := BuildOverlay(nil, form.PageGeometry{WidthPt: 0, HeightPt: 10, Scale: 1})
	assert.Error(t, err)
}

func TestBuildOverlay_DegradedWidgetIsKept(t *testing.T) {
	widgets := form.Map(sampleFields(), form.A4(), form.MapOptions{BorderStyle: "wavy"})
	doc, report, err := BuildOverlay(widgets, form.A4())
	require.NoError(t, err)

	degraded := report.Degraded()
	require.Len(t, degraded, 1)
	assert.Equal(t, "full_name", degraded[0].FieldName)
	assert.Equal(t, pdferrors.ErrorTypeWidgetConstructionDegraded, degraded[0].Type)
	assert.False(t, degraded[0].IsFatal())

	fields, err := ListFormFields(doc)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "full_name", fields[0].Name)
	assert.Empty(t, fields[0].BorderStyle)

	content := pageContentOf(t, doc, 1)
	assert.Contains(t, content, "75 781.8898 150 22.5 re S")
}

func TestBuildOverlay_UnicodeNames(t *testing.T) {
	widgets := []form.WidgetDescriptor{{
		Name:     "Prénom (1)",
		Kind:     form.KindText,
		Rect:     form.Rect{X: 10, Y: 10, Width: 100, Height: 20},
		Metadata: form.Metadata{Tooltip: "Prénom (1)", BorderStyle: form.BorderSolid, ForceBorder: true},
	}}
	doc, _, err := BuildOverlay(widgets, form.A4())
	require.NoError(t, err)

	fields, err := ListFormFields(doc)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Prénom (1)", fields[0].Name)

	in, err := Inspect(doc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Prénom (1)"}, in.WidgetNames())
}

func TestBuildOverlay_TextareaIsMultiline(t *testing.T) {
	fields := []form.FieldDescriptor{
		{Tag: form.TagTextarea, Name: "notes", BBox: form.BBox{X: 10, Y: 10, Width: 300, Height: 90}},
		{Tag: form.TagSelect, Name: "country", BBox: form.BBox{X: 10, Y: 120, Width: 150, Height: 24},
			Options: []form.Option{{Value: "fr", Text: "France"}}},
	}
	doc, _, err := BuildOverlay(form.Map(fields, form.A4(), form.DefaultMapOptions()), form.A4())
	require.NoError(t, err)

	listed, err := ListFormFields(doc)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].Multiline)
	assert.False(t, listed[1].Multiline)
	assert.Equal(t, FieldTypeText, listed[1].Type)
}

func TestTextAppearance(t *testing.T) {
	under := string(textAppearance(WidgetStyle{BorderName: "U", BorderWidth: 1, ForceBorder: true}, 150, 22.5))
	assert.True(t, strings.HasPrefix(under, "/Tx BMC\n"))
	assert.Contains(t, under, "0 0.5 m 150 0.5 l S")

	bare := string(textAppearance(WidgetStyle{}, 150, 22.5))
	assert.Equal(t, "/Tx BMC\nEMC\n", bare)

	on := string(checkboxAppearance(10, true))
	off := string(checkboxAppearance(10, false))
	assert.Contains(t, on, "(4) Tj")
	assert.NotContains(t, off, "Tj")
}
