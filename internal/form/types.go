package form

import (
	"fmt"
	"strings"
)

// Tag identifies the kind of HTML control a field was discovered from
type Tag string

const (
	TagInput    Tag = "input"
	TagSelect   Tag = "select"
	TagTextarea Tag = "textarea"
)

// Valid reports whether the tag is one of the supported control tags
func (t Tag) Valid() bool {
	switch t {
	case TagInput, TagSelect, TagTextarea:
		return true
	default:
		return false
	}
}

// Option is a single entry of a select control
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// BBox is an element box in CSS pixels, top-left origin, document-absolute
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FieldDescriptor is one interactive control found in the rendered document.
// The JSON form is the field list artifact: the box is flattened into the
// top-level object and options is null for anything but a select.
type FieldDescriptor struct {
	Tag         Tag    `json:"tag"`
	ControlType string `json:"type"`
	Name        string `json:"name"`
	BBox
	Options []Option `json:"options"`
}

// IsCheckbox reports whether the field is an input of type checkbox
func (f FieldDescriptor) IsCheckbox() bool {
	return f.Tag == TagInput && f.ControlType == "checkbox"
}

// WidgetKind is the form widget type a field is rendered as
type WidgetKind string

const (
	KindCheckbox WidgetKind = "checkbox"
	KindText     WidgetKind = "text"
)

// BorderStyle is the border a text widget asks the composer for
type BorderStyle string

const (
	BorderUnderline BorderStyle = "underline"
	BorderSolid     BorderStyle = "solid"
	BorderDashed    BorderStyle = "dashed"
	BorderBeveled   BorderStyle = "beveled"
	BorderInset     BorderStyle = "inset"
	// BorderNone is the bare style used when the requested one cannot be honored
	BorderNone BorderStyle = ""
)

// BorderStyles lists the accepted border style names, "none" included
func BorderStyles() []string {
	return []string{"underline", "solid", "dashed", "beveled", "inset", "none"}
}

// ParseBorderStyle parses a border style name. "none" selects the bare style.
func ParseBorderStyle(s string) (BorderStyle, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "none":
		return BorderNone, nil
	case "":
		return BorderUnderline, nil
	case string(BorderUnderline), string(BorderSolid), string(BorderDashed), string(BorderBeveled), string(BorderInset):
		return BorderStyle(v), nil
	default:
		return "", fmt.Errorf("invalid border style %q (valid: %s)", s, strings.Join(BorderStyles(), ", "))
	}
}

// Rect is a rectangle in PDF points, bottom-left origin, page-relative
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// URX returns the x coordinate of the upper right corner
func (r Rect) URX() float64 { return r.X + r.Width }

// URY returns the y coordinate of the upper right corner
func (r Rect) URY() float64 { return r.Y + r.Height }

// Metadata carries kind-specific extras for a widget
type Metadata struct {
	Tooltip     string      `json:"tooltip"`
	BorderStyle BorderStyle `json:"border_style,omitempty"`
	ForceBorder bool        `json:"force_border,omitempty"`
	SourceTag   Tag         `json:"source_tag"`
	ControlType string      `json:"control_type,omitempty"`
	Options     []Option    `json:"options,omitempty"`
}

// WidgetDescriptor is the mapper output for one field
type WidgetDescriptor struct {
	Index    int        `json:"index"`
	Name     string     `json:"name"`
	Kind     WidgetKind `json:"kind"`
	Rect     Rect       `json:"rect"`
	Size     float64    `json:"size,omitempty"` // checkbox edge length
	Metadata Metadata   `json:"metadata"`
}
