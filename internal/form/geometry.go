package form

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// PxToPt converts CSS pixels (96 per inch) to PDF points (72 per inch)
const PxToPt = 72.0 / 96.0

const (
	PaperA4     = "A4"
	PaperLetter = "Letter"
)

var paperSizes = map[string][2]float64{
	PaperA4:     {595.2755905511812, 841.8897637795277},
	PaperLetter: {612, 792},
	"Legal":     {612, 1008},
	"A3":        {841.8897637795277, 1190.5511811023623},
	"A5":        {419.52755905511816, 595.2755905511812},
}

// PageGeometry is the target page size in points and the pixel to point scale.
// One geometry applies to every page of a document.
type PageGeometry struct {
	WidthPt  float64 `json:"width_pt"`
	HeightPt float64 `json:"height_pt"`
	Scale    float64 `json:"scale"`
}

// A4 returns the default geometry: A4 portrait at 96 px per inch
func A4() PageGeometry {
	g, _ := GeometryFor(PaperA4, PxToPt)
	return g
}

// GeometryFor returns the geometry of a named paper size. Names are matched
// case-insensitively.
func GeometryFor(paper string, scale float64) (PageGeometry, error) {
	for name, dim := range paperSizes {
		if strings.EqualFold(name, paper) {
			g := PageGeometry{WidthPt: dim[0], HeightPt: dim[1], Scale: scale}
			return g, g.Validate()
		}
	}
	return PageGeometry{}, fmt.Errorf("unknown paper size %q (supported: %s)", paper, strings.Join(PaperNames(), ", "))
}

// PaperNames lists the supported paper size names in sorted order
func PaperNames() []string {
	names := make([]string, 0, len(paperSizes))
	for name := range paperSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the geometry can be used for mapping
func (g PageGeometry) Validate() error {
	if !finitePositive(g.WidthPt) || !finitePositive(g.HeightPt) {
		return fmt.Errorf("page size must be positive, got %gx%g pt", g.WidthPt, g.HeightPt)
	}
	if !finitePositive(g.Scale) {
		return errors.New("pixel to point scale must be positive")
	}
	return nil
}

// WidthInches returns the page width in inches
func (g PageGeometry) WidthInches() float64 { return g.WidthPt / 72 }

// HeightInches returns the page height in inches
func (g PageGeometry) HeightInches() float64 { return g.HeightPt / 72 }

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
