package form

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryFor(t *testing.T) {
	g, err := GeometryFor("a4", PxToPt)
	require.NoError(t, err)
	assert.InDelta(t, 595.28, g.WidthPt, 0.01)
	assert.InDelta(t, 841.89, g.HeightPt, 0.01)
	assert.Equal(t, 0.75, g.Scale)

	g, err = GeometryFor(PaperLetter, PxToPt)
	require.NoError(t, err)
	assert.Equal(t, 612.0, g.WidthPt)
	assert.Equal(t, 792.0, g.HeightPt)

	_, err = GeometryFor("tabloid", PxToPt)
	assert.Error(t, err)

	_, err = GeometryFor(PaperA4, 0)
	assert.Error(t, err)
}

func TestPageGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		geom    PageGeometry
		wantErr bool
	}{
		{"default", A4(), false},
		{"zero width", PageGeometry{WidthPt: 0, HeightPt: 10, Scale: 1}, true},
		{"negative height", PageGeometry{WidthPt: 10, HeightPt: -1, Scale: 1}, true},
		{"infinite scale", PageGeometry{WidthPt: 10, HeightPt: 10, Scale: math.Inf(1)}, true},
		{"nan width", PageGeometry{WidthPt: math.NaN(), HeightPt: 10, Scale: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPageGeometry_Inches(t *testing.T) {
	g := PageGeometry{WidthPt: 612, HeightPt: 792, Scale: PxToPt}
	assert.Equal(t, 8.5, g.WidthInches())
	assert.Equal(t, 11.0, g.HeightInches())
}

func TestParseBorderStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    BorderStyle
		wantErr bool
	}{
		{"", BorderUnderline, false},
		{"Solid", BorderSolid, false},
		{" dashed ", BorderDashed, false},
		{"none", BorderNone, false},
		{"wavy", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBorderStyle(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
