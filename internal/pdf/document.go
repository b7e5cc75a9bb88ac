package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is an immutable serialized PDF. Every operation that needs the
// object model parses a fresh pdfcpu context from the bytes, so callers
// can never mutate a Document through an operation on it.
type Document struct {
	data      []byte
	pageCount int
}

// NewDocument parses data and returns a Document owning a private copy of it
func NewDocument(data []byte) (*Document, error) {
	owned := make([]byte, len(data))
	copy(owned, data)

	ctx, err := readContext(owned)
	if err != nil {
		return nil, err
	}

	return &Document{data: owned, pageCount: ctx.PageCount}, nil
}

// LoadDocumentFile reads and parses a PDF file
func LoadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}
	return NewDocument(data)
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.pageCount
}

// Bytes returns a copy of the serialized document
func (d *Document) Bytes() []byte {
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}

// Size returns the serialized size in bytes
func (d *Document) Size() int {
	return len(d.data)
}

// Context parses a fresh pdfcpu context that the caller may modify freely
func (d *Document) Context() (*model.Context, error) {
	return readContext(d.data)
}

// WriteFile writes the document to path through a temporary file in the
// same directory, so a failed write never leaves a partial file behind
func (d *Document) WriteFile(path string) error {
	return writeFileAtomic(path, d.data)
}

func readContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	return ctx, nil
}

// documentFromContext serializes ctx and re-parses the result
func documentFromContext(ctx *model.Context) (*Document, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF context: %w", err)
	}
	return NewDocument(buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

// WriteFileAtomic writes arbitrary artifact bytes the same way Document.WriteFile does
func WriteFileAtomic(path string, data []byte) error {
	return writeFileAtomic(path, data)
}
