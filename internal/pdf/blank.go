package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// BlankDocument creates a document of n empty pages of the given geometry
func BlankDocument(geom form.PageGeometry, n int) (*Document, error) {
	return pagedDocument(geom, n, nil)
}

// pagedDocument creates n pages, page i drawing content(i) when content is set
func pagedDocument(geom form.PageGeometry, n int, content func(i int) []byte) (*Document, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("document needs at least one page, got %d", n)
	}

	ctx, err := pdfcpu.CreateContextWithXRefTable(model.NewDefaultConfiguration(), &types.Dim{Width: geom.WidthPt, Height: geom.HeightPt})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	root, err := ctx.Catalog()
	if err != nil {
		return nil, err
	}
	pagesRef, ok := root["Pages"].(types.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("catalog has no page tree")
	}
	pages, err := ctx.DereferenceDict(pagesRef)
	if err != nil {
		return nil, err
	}

	kids := types.Array{}
	for i := 0; i < n; i++ {
		page := types.Dict{
			"Type":      types.Name("Page"),
			"Parent":    pagesRef,
			"MediaBox":  types.NewRectangle(0, 0, geom.WidthPt, geom.HeightPt).Array(),
			"Resources": types.Dict{},
		}
		if content != nil {
			ref, err := newStream(ctx, content(i), nil)
			if err != nil {
				return nil, err
			}
			page["Contents"] = *ref
		}
		ref, err := ctx.IndRefForNewObject(page)
		if err != nil {
			return nil, err
		}
		kids = append(kids, *ref)
	}
	pages["Kids"] = kids
	pages["Count"] = types.Integer(n)
	ctx.PageCount = n

	return documentFromContext(ctx)
}
