package form

// Minimum widget size policy. A side is only replaced when it falls under
// its threshold, and then it is raised to the (larger) minimum, so a 25pt
// wide box stays 25pt while a 15pt wide box becomes 40pt.
const (
	MinWidthThreshold  = 20.0
	MinWidth           = 40.0
	MinHeightThreshold = 10.0
	MinHeight          = 14.0
)

// MapOptions tunes naming and styling policy
type MapOptions struct {
	// BorderStyle is requested for every text widget
	BorderStyle BorderStyle
	// Dedupe suffixes repeated names (name_2, name_3, ...). Off by default:
	// duplicate names are passed through unchanged.
	Dedupe bool
}

// DefaultMapOptions returns the default policy: underlined text widgets, names kept as is
func DefaultMapOptions() MapOptions {
	return MapOptions{BorderStyle: BorderUnderline}
}

// Map converts every field into exactly one widget, preserving order
func Map(fields []FieldDescriptor, geom PageGeometry, opts MapOptions) []WidgetDescriptor {
	widgets := make([]WidgetDescriptor, len(fields))
	for i, f := range fields {
		widgets[i] = MapField(i, f, geom, opts)
	}

	if opts.Dedupe {
		names := make([]string, len(widgets))
		for i := range widgets {
			names[i] = widgets[i].Name
		}
		for i, name := range DedupeNames(names) {
			widgets[i].Name = name
			widgets[i].Metadata.Tooltip = name
		}
	}

	return widgets
}

// MapField converts a single field. index is the field's position in the
// discovery order and is carried through for diagnostics.
func MapField(index int, f FieldDescriptor, geom PageGeometry, opts MapOptions) WidgetDescriptor {
	rect := ToPageRect(f.BBox, geom)

	w := WidgetDescriptor{
		Index: index,
		Name:  f.Name,
		Kind:  Classify(f),
		Rect:  rect,
		Metadata: Metadata{
			Tooltip:     f.Name,
			SourceTag:   f.Tag,
			ControlType: f.ControlType,
			Options:     f.Options,
		},
	}

	switch w.Kind {
	case KindCheckbox:
		w.Size = min(rect.Width, rect.Height)
		w.Rect.Width = w.Size
		w.Rect.Height = w.Size
	default:
		w.Metadata.BorderStyle = opts.BorderStyle
		w.Metadata.ForceBorder = true
	}

	return w
}

// ToPageRect converts a pixel box into a point rectangle with a bottom-left
// origin. The vertical flip uses the converted height before the minimum
// size policy is applied, so the bottom edge of the box stays in place.
func ToPageRect(b BBox, geom PageGeometry) Rect {
	x := b.X * geom.Scale
	w := b.Width * geom.Scale
	h := b.Height * geom.Scale
	y := geom.HeightPt - (b.Y * geom.Scale) - h

	if w < MinWidthThreshold {
		w = max(w, MinWidth)
	}
	if h < MinHeightThreshold {
		h = max(h, MinHeight)
	}

	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Classify maps HTML control semantics to a widget kind. Only checkbox
// inputs become checkboxes; everything else is a text widget.
func Classify(f FieldDescriptor) WidgetKind {
	if f.IsCheckbox() {
		return KindCheckbox
	}
	return KindText
}
