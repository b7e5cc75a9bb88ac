package pdf

import (
	"fmt"
	"math"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// WidgetStyle is the resolved visual style of a widget annotation
type WidgetStyle struct {
	// BorderName is the /BS /S value, empty for the bare style
	BorderName  string
	BorderWidth float64
	Dash        []float64
	ForceBorder bool
}

// Bare reports whether the style carries no border at all
func (s WidgetStyle) Bare() bool {
	return s.BorderName == ""
}

// StyleResult is the outcome of resolving a widget's requested style.
// A degraded result still yields a usable bare style.
type StyleResult struct {
	Style    WidgetStyle
	Degraded bool
	Reason   error
}

var borderNames = map[form.BorderStyle]string{
	form.BorderUnderline: "U",
	form.BorderSolid:     "S",
	form.BorderDashed:    "D",
	form.BorderBeveled:   "B",
	form.BorderInset:     "I",
}

// ResolveStyle works out the style a widget can be built with
func ResolveStyle(w form.WidgetDescriptor) StyleResult {
	r := w.Rect
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return degraded(fmt.Errorf("rectangle %v is not finite", r))
		}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return degraded(fmt.Errorf("rectangle %v has no area", r))
	}

	if w.Kind == form.KindCheckbox {
		return StyleResult{Style: WidgetStyle{BorderName: "S", BorderWidth: 1}}
	}

	requested := w.Metadata.BorderStyle
	if requested == form.BorderNone {
		return StyleResult{Style: WidgetStyle{ForceBorder: w.Metadata.ForceBorder}}
	}

	name, ok := borderNames[requested]
	if !ok {
		return degraded(fmt.Errorf("unsupported border style %q", requested))
	}

	style := WidgetStyle{
		BorderName:  name,
		BorderWidth: 1,
		ForceBorder: w.Metadata.ForceBorder,
	}
	if requested == form.BorderDashed {
		style.Dash = []float64{3, 2}
	}
	return StyleResult{Style: style}
}

func degraded(reason error) StyleResult {
	return StyleResult{Degraded: true, Reason: reason}
}

// sanitizeRect replaces non-finite or empty geometry with a minimal visible
// rectangle at the origin side of the page
func sanitizeRect(r form.Rect) form.Rect {
	fix := func(v, fallback float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fallback
		}
		return v
	}
	out := form.Rect{
		X:      fix(r.X, 0),
		Y:      fix(r.Y, 0),
		Width:  fix(r.Width, form.MinWidth),
		Height: fix(r.Height, form.MinHeight),
	}
	if out.Width <= 0 {
		out.Width = form.MinWidth
	}
	if out.Height <= 0 {
		out.Height = form.MinHeight
	}
	return out
}
