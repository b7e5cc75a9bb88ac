package pdf

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// Parent chains deeper than this are treated as cyclic
const maxPageTreeDepth = 64

// Inspection is what an independent reader sees in a PDF
type Inspection struct {
	Pages []PageInspection `json:"pages"`
}

// PageInspection describes one page
type PageInspection struct {
	Number   int                `json:"number"`
	MediaBox form.Rect          `json:"media_box"`
	Widgets  []WidgetInspection `json:"widgets"`
}

// WidgetInspection describes one widget annotation on a page
type WidgetInspection struct {
	Name      string    `json:"name"`
	FieldType string    `json:"field_type"`
	Rect      form.Rect `json:"rect"`
}

// PageCount returns the number of pages seen
func (in *Inspection) PageCount() int {
	return len(in.Pages)
}

// WidgetNames returns the widget names of every page, in page order
func (in *Inspection) WidgetNames() []string {
	var names []string
	for _, p := range in.Pages {
		for _, w := range p.Widgets {
			names = append(names, w.Name)
		}
	}
	return names
}

// Inspect re-reads a serialized PDF with a parser independent of the one
// used to write it
func Inspect(data []byte) (*Inspection, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return inspectReader(r)
}

// InspectFile re-reads a PDF file, see Inspect
func InspectFile(path string) (*Inspection, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	return inspectReader(r)
}

func inspectReader(r *pdf.Reader) (in *Inspection, err error) {
	// The reader panics on malformed objects
	defer func() {
		if rec := recover(); rec != nil {
			in, err = nil, fmt.Errorf("malformed PDF structure: %v", rec)
		}
	}()

	total := r.NumPage()
	in = &Inspection{Pages: make([]PageInspection, 0, total)}
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			return nil, fmt.Errorf("page %d is missing", i)
		}

		pi := PageInspection{
			Number:   i,
			MediaBox: valueRect(inherited(p.V, "MediaBox")),
			Widgets:  []WidgetInspection{},
		}

		annots := p.V.Key("Annots")
		for j := 0; j < annots.Len(); j++ {
			a := annots.Index(j)
			if a.Key("Subtype").Name() != "Widget" {
				continue
			}
			pi.Widgets = append(pi.Widgets, WidgetInspection{
				Name:      a.Key("T").Text(),
				FieldType: a.Key("FT").Name(),
				Rect:      valueRect(a.Key("Rect")),
			})
		}

		in.Pages = append(in.Pages, pi)
	}

	return in, nil
}

// inherited looks key up on a page and then its /Pages ancestors
func inherited(page pdf.Value, key string) pdf.Value {
	v := page
	for depth := 0; !v.IsNull() && depth < maxPageTreeDepth; depth++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

func valueRect(v pdf.Value) form.Rect {
	if v.Len() != 4 {
		return form.Rect{}
	}
	llx, lly := v.Index(0).Float64(), v.Index(1).Float64()
	urx, ury := v.Index(2).Float64(), v.Index(3).Float64()
	return form.Rect{
		X:      min(llx, urx),
		Y:      min(lly, ury),
		Width:  max(llx, urx) - min(llx, urx),
		Height: max(lly, ury) - min(lly, ury),
	}
}
