package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/html-fillable-pdf/internal/form"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
)

// Annotation flag bit for printable widgets
const annotFlagPrint = 4

// Field flag bit for multi-line text fields
const fieldFlagMultiline = 1 << 12

// OverlayReport summarizes what went into an overlay page
type OverlayReport struct {
	Widgets    int
	TextFields int
	Checkboxes int
	Issues     *pdferrors.ErrorCollection
}

// Degraded returns the widgets built with the bare fallback style
func (r *OverlayReport) Degraded() []*pdferrors.ConversionError {
	return r.Issues.OfType(pdferrors.ErrorTypeWidgetConstructionDegraded)
}

type overlayBuilder struct {
	ctx      *model.Context
	pageRef  *types.IndirectRef
	helvRef  *types.IndirectRef
	zadbRef  *types.IndirectRef
	outlines []byte
	fields   types.Array
	annots   types.Array
	report   *OverlayReport
}

// BuildOverlay produces a single page document of the given geometry with
// one widget annotation per descriptor, in descriptor order
func BuildOverlay(widgets []form.WidgetDescriptor, geom form.PageGeometry) (*Document, *OverlayReport, error) {
	if err := geom.Validate(); err != nil {
		return nil, nil, err
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, &types.Dim{Width: geom.WidthPt, Height: geom.HeightPt})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create overlay context: %w", err)
	}

	b := &overlayBuilder{
		ctx:    ctx,
		report: &OverlayReport{Issues: pdferrors.NewErrorCollection()},
	}

	if err := b.addFonts(); err != nil {
		return nil, nil, err
	}

	page, err := b.addPage(geom)
	if err != nil {
		return nil, nil, err
	}

	for _, w := range widgets {
		if err := b.addWidget(w); err != nil {
			return nil, nil, fmt.Errorf("failed to add widget %q: %w", w.Name, err)
		}
	}

	if len(b.outlines) > 0 {
		contentRef, err := newStream(ctx, b.outlines, nil)
		if err != nil {
			return nil, nil, err
		}
		page["Contents"] = *contentRef
	}
	if len(b.annots) > 0 {
		page["Annots"] = b.annots
	}

	if err := b.addAcroForm(); err != nil {
		return nil, nil, err
	}

	doc, err := documentFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	return doc, b.report, nil
}

func (b *overlayBuilder) addFonts() error {
	helv := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	zadb := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("ZapfDingbats"),
	}

	var err error
	if b.helvRef, err = b.ctx.IndRefForNewObject(helv); err != nil {
		return err
	}
	b.zadbRef, err = b.ctx.IndRefForNewObject(zadb)
	return err
}

func (b *overlayBuilder) fontResources() types.Dict {
	return types.Dict{
		"Font": types.Dict{
			"Helv": *b.helvRef,
			"ZaDb": *b.zadbRef,
		},
	}
}

// addPage appends the one overlay page to the page tree
func (b *overlayBuilder) addPage(geom form.PageGeometry) (types.Dict, error) {
	root, err := b.ctx.Catalog()
	if err != nil {
		return nil, err
	}

	pagesRef, ok := root["Pages"].(types.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("overlay catalog has no page tree")
	}
	pages, err := b.ctx.DereferenceDict(pagesRef)
	if err != nil {
		return nil, err
	}

	page := types.Dict{
		"Type":      types.Name("Page"),
		"Parent":    pagesRef,
		"MediaBox":  types.NewRectangle(0, 0, geom.WidthPt, geom.HeightPt).Array(),
		"Resources": b.fontResources(),
	}
	b.pageRef, err = b.ctx.IndRefForNewObject(page)
	if err != nil {
		return nil, err
	}

	kids, err := arrayEntry(b.ctx, pages, "Kids")
	if err != nil {
		return nil, err
	}
	pages["Kids"] = append(kids, *b.pageRef)
	pages["Count"] = types.Integer(len(kids) + 1)
	b.ctx.PageCount = len(kids) + 1

	return page, nil
}

func (b *overlayBuilder) addWidget(w form.WidgetDescriptor) error {
	res := ResolveStyle(w)
	rect := w.Rect
	if res.Degraded {
		rect = sanitizeRect(rect)
		b.outlines = append(b.outlines, outlineOps(rect)...)
		b.report.Issues.Add(pdferrors.NewDegraded(w.Name, res.Reason).WithStage("overlay"))
	}

	annot := types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Widget"),
		"T":       textString(w.Name),
		"TU":      textString(w.Metadata.Tooltip),
		"Rect":    rectArray(rect),
		"F":       types.Integer(annotFlagPrint),
		"P":       *b.pageRef,
	}

	var err error
	if w.Kind == form.KindCheckbox {
		err = b.checkbox(annot, rect, res)
		b.report.Checkboxes++
	} else {
		err = b.textField(annot, w, rect, res)
		b.report.TextFields++
	}
	if err != nil {
		return err
	}

	ref, err := b.ctx.IndRefForNewObject(annot)
	if err != nil {
		return err
	}
	b.annots = append(b.annots, *ref)
	b.fields = append(b.fields, *ref)
	b.report.Widgets++
	return nil
}

func (b *overlayBuilder) appearance(content []byte, w, h float64) (*types.IndirectRef, error) {
	return newStream(b.ctx, content, types.Dict{
		"Type":      types.Name("XObject"),
		"Subtype":   types.Name("Form"),
		"BBox":      floatArray(0, 0, w, h),
		"Resources": b.fontResources(),
	})
}

func (b *overlayBuilder) textField(annot types.Dict, w form.WidgetDescriptor, rect form.Rect, res StyleResult) error {
	annot["FT"] = types.Name("Tx")
	annot["DA"] = types.StringLiteral(textFieldDA)
	annot["Q"] = types.Integer(0)
	if w.Metadata.SourceTag == form.TagTextarea {
		annot["Ff"] = types.Integer(fieldFlagMultiline)
	}

	if !res.Degraded && !res.Style.Bare() {
		bs := types.Dict{
			"W": types.Float(res.Style.BorderWidth),
			"S": types.Name(res.Style.BorderName),
		}
		if len(res.Style.Dash) > 0 {
			bs["D"] = floatArray(res.Style.Dash...)
		}
		annot["BS"] = bs
		annot["MK"] = types.Dict{"BC": floatArray(0, 0, 0)}
	}

	apRef, err := b.appearance(textAppearance(res.Style, rect.Width, rect.Height), rect.Width, rect.Height)
	if err != nil {
		return err
	}
	annot["AP"] = types.Dict{"N": *apRef}
	return nil
}

func (b *overlayBuilder) checkbox(annot types.Dict, rect form.Rect, res StyleResult) error {
	annot["FT"] = types.Name("Btn")
	annot["DA"] = types.StringLiteral(checkboxDA)
	annot["V"] = types.Name("Off")
	annot["AS"] = types.Name("Off")

	if !res.Degraded {
		annot["MK"] = types.Dict{
			"CA": types.StringLiteral(checkGlyph),
			"BC": floatArray(0, 0, 0),
		}
		annot["BS"] = types.Dict{
			"W": types.Float(res.Style.BorderWidth),
			"S": types.Name(res.Style.BorderName),
		}
	}

	size := min(rect.Width, rect.Height)
	onRef, err := b.appearance(checkboxAppearance(size, true), size, size)
	if err != nil {
		return err
	}
	offRef, err := b.appearance(checkboxAppearance(size, false), size, size)
	if err != nil {
		return err
	}
	annot["AP"] = types.Dict{
		"N": types.Dict{
			"Yes": *onRef,
			"Off": *offRef,
		},
	}
	return nil
}

func (b *overlayBuilder) addAcroForm() error {
	root, err := b.ctx.Catalog()
	if err != nil {
		return err
	}
	root["AcroForm"] = types.Dict{
		"Fields":          b.fields,
		"NeedAppearances": types.Boolean(true),
		"DA":              types.StringLiteral(textFieldDA),
		"DR":              b.fontResources(),
	}
	return nil
}
