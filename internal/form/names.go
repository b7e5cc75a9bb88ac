package form

import "fmt"

// RawControl is a control as reported by the rendering collaborator, before
// name resolution
type RawControl struct {
	Tag         string   `json:"tag"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Placeholder string   `json:"placeholder"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Width       float64  `json:"width"`
	Height      float64  `json:"height"`
	Options     []Option `json:"options"`
}

// ResolveName picks the field identifier: explicit name, then id, then
// placeholder, then "{tag}_{ordinal}"
func ResolveName(name, id, placeholder string, tag Tag, ordinal int) string {
	switch {
	case name != "":
		return name
	case id != "":
		return id
	case placeholder != "":
		return placeholder
	default:
		return FallbackName(tag, ordinal)
	}
}

// FallbackName is the synthesized name for a control with no identifier
func FallbackName(tag Tag, ordinal int) string {
	return fmt.Sprintf("%s_%d", tag, ordinal)
}

// FromRaw normalizes raw controls into field descriptors. The slice index is
// the discovery ordinal. Zero-size boxes are kept.
func FromRaw(raws []RawControl) []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(raws))
	for i, r := range raws {
		tag := Tag(r.Tag)
		f := FieldDescriptor{
			Tag:  tag,
			Name: ResolveName(r.Name, r.ID, r.Placeholder, tag, i),
			BBox: BBox{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
		}
		if tag == TagInput {
			f.ControlType = r.Type
		}
		if tag == TagSelect {
			f.Options = r.Options
			if f.Options == nil {
				f.Options = []Option{}
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// DedupeNames returns a copy of names where every repeat of an earlier name
// gets the first free "_N" suffix, N starting at 2
func DedupeNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}

	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		suffix := seen[n]
		candidate := fmt.Sprintf("%s_%d", n, suffix)
		for taken[candidate] {
			suffix++
			candidate = fmt.Sprintf("%s_%d", n, suffix)
		}
		seen[n] = suffix
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}
