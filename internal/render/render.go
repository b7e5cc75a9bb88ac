// Package render turns an HTML document into the base PDF and the list of
// interactive controls found in it.
package render

import (
	"context"
	"fmt"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// Default browser viewport in CSS pixels
const (
	DefaultViewportWidth  = 1200
	DefaultViewportHeight = 1700
)

// Request describes one rendering job
type Request struct {
	// SourcePath is the HTML file to load
	SourcePath string
	// Geometry sets the printed paper size
	Geometry form.PageGeometry
	// Browser window in CSS pixels. Layout for measuring controls uses the
	// paper width and ViewportHeight.
	ViewportWidth  int
	ViewportHeight int
	// SkipExtraction only prints the base PDF, for runs that reuse a saved field list
	SkipExtraction bool
}

// Validate checks the request before a browser is started
func (r Request) Validate() error {
	if r.SourcePath == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if err := r.Geometry.Validate(); err != nil {
		return err
	}
	if r.ViewportWidth <= 0 || r.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", r.ViewportWidth, r.ViewportHeight)
	}
	return nil
}

// Result is the output of a rendering job
type Result struct {
	// BasePDF is the printed document
	BasePDF []byte
	// Fields are the discovered controls in document order, nil when extraction was skipped
	Fields []form.FieldDescriptor
}

// Renderer produces a base PDF and field list from an HTML source
type Renderer interface {
	Render(ctx context.Context, req Request) (*Result, error)
}
