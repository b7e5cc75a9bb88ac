package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
)

const overlayXObjectPrefix = "HFPOverlay"

type merger struct {
	out     *model.Context
	ovl     *model.Context
	copier  *objectCopier
	xobject map[int]*types.IndirectRef // overlay page number -> form xobject
	fields  types.Array
}

// Merge composites overlay pages onto every page of base and returns a new
// document. Neither input is modified. The result keeps the base page count
// and page sizes; overlay page selection follows policy.
func Merge(base, overlay *Document, policy PagePolicy) (*Document, error) {
	if base == nil || overlay == nil {
		return nil, pdferrors.New(pdferrors.ErrorTypeMergeFailure, "merge needs a base and an overlay document")
	}
	if overlay.PageCount() == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeMergeFailure, "overlay has no pages")
	}

	out, err := base.Context()
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeMergeFailure, "failed to parse base document", err)
	}
	ovl, err := overlay.Context()
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeMergeFailure, "failed to parse overlay document", err)
	}

	m := &merger{
		out:     out,
		ovl:     ovl,
		copier:  newObjectCopier(ovl, out),
		xobject: map[int]*types.IndirectRef{},
	}

	for i := 0; i < out.PageCount; i++ {
		oi, err := Align(policy, i, ovl.PageCount)
		if err != nil {
			return nil, pdferrors.NewMergeFailure(i+1, err)
		}
		if err := m.mergePage(i+1, oi+1); err != nil {
			return nil, pdferrors.NewMergeFailure(i+1, err)
		}
	}

	if err := m.mergeAcroForm(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeMergeFailure, "failed to merge form dictionary", err)
	}

	doc, err := documentFromContext(out)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeMergeFailure, "failed to serialize merged document", err)
	}
	return doc, nil
}

// mergePage composites overlay page ovlNr onto base page pageNr, both 1-based
func (m *merger) mergePage(pageNr, ovlNr int) error {
	pageDict, pageRef, inh, err := m.out.PageDict(pageNr, true)
	if err != nil {
		return err
	}
	if pageDict == nil || pageRef == nil {
		return fmt.Errorf("base page %d not found", pageNr)
	}

	ovlDict, _, ovlInh, err := m.ovl.PageDict(ovlNr, true)
	if err != nil {
		return err
	}
	if ovlDict == nil {
		return fmt.Errorf("overlay page %d not found", ovlNr)
	}

	xobjRef, err := m.overlayXObject(ovlNr, ovlDict, ovlInh)
	if err != nil {
		return err
	}
	if xobjRef != nil {
		var inherited types.Dict
		if inh != nil {
			inherited = inh.Resources
		}
		if err := m.stampContent(pageDict, inherited, *xobjRef, ovlNr); err != nil {
			return err
		}
	}

	return m.copyAnnotations(pageDict, *pageRef, ovlDict)
}

// overlayXObject wraps the content of an overlay page in a form xobject,
// built once per overlay page. Returns nil when the page draws nothing.
func (m *merger) overlayXObject(ovlNr int, ovlDict types.Dict, ovlInh *model.InheritedPageAttrs) (*types.IndirectRef, error) {
	if ref, ok := m.xobject[ovlNr]; ok {
		return ref, nil
	}

	content, err := pageContent(m.ovl, ovlDict)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		m.xobject[ovlNr] = nil
		return nil, nil
	}

	var resources types.Object = types.Dict{}
	if obj, found := ovlDict.Find("Resources"); found && obj != nil {
		resources = obj
	} else if ovlInh != nil && ovlInh.Resources != nil {
		resources = ovlInh.Resources
	}
	resCopy, err := m.copier.copyObject(resources)
	if err != nil {
		return nil, err
	}

	bbox := types.Array{types.Float(0), types.Float(0), types.Float(0), types.Float(0)}
	if ovlInh != nil && ovlInh.MediaBox != nil {
		bbox = ovlInh.MediaBox.Array()
	} else if obj, found := ovlDict.Find("MediaBox"); found {
		if r, err := rectFromArray(m.ovl, obj); err == nil {
			bbox = floatArray(r.X, r.Y, r.URX(), r.URY())
		}
	}

	ref, err := newStream(m.out, content, types.Dict{
		"Type":      types.Name("XObject"),
		"Subtype":   types.Name("Form"),
		"BBox":      bbox,
		"Resources": resCopy,
	})
	if err != nil {
		return nil, err
	}
	m.xobject[ovlNr] = ref
	return ref, nil
}

// stampContent brackets the existing page content in q/Q and draws the
// overlay xobject after it
func (m *merger) stampContent(pageDict, inherited types.Dict, xobjRef types.IndirectRef, ovlNr int) error {
	res, err := resourceDict(m.out, pageDict, inherited)
	if err != nil {
		return err
	}
	xobjects, err := subDict(m.out, res, "XObject")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s%d", overlayXObjectPrefix, ovlNr)
	for n := 2; ; n++ {
		if _, taken := xobjects[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s%d_%d", overlayXObjectPrefix, ovlNr, n)
	}
	xobjects[name] = xobjRef

	var contents types.Array
	if obj, found := pageDict.Find("Contents"); found && obj != nil {
		deref, err := m.out.Dereference(obj)
		if err != nil {
			return err
		}
		if arr, ok := deref.(types.Array); ok {
			contents = append(contents, arr...)
		} else {
			contents = append(contents, obj)
		}
	}

	open, err := newStream(m.out, []byte("q\n"), nil)
	if err != nil {
		return err
	}
	closeAndDraw, err := newStream(m.out, []byte(fmt.Sprintf("Q\nq /%s Do Q\n", name)), nil)
	if err != nil {
		return err
	}

	wrapped := make(types.Array, 0, len(contents)+2)
	wrapped = append(wrapped, *open)
	wrapped = append(wrapped, contents...)
	wrapped = append(wrapped, *closeAndDraw)
	pageDict["Contents"] = wrapped
	return nil
}

// copyAnnotations copies the overlay page annotations onto the base page.
// Each base page gets its own annotation objects.
func (m *merger) copyAnnotations(pageDict types.Dict, pageRef types.IndirectRef, ovlDict types.Dict) error {
	ovlAnnots, err := arrayEntry(m.ovl, ovlDict, "Annots")
	if err != nil {
		return err
	}
	if len(ovlAnnots) == 0 {
		return nil
	}

	annots, err := arrayEntry(m.out, pageDict, "Annots")
	if err != nil {
		return err
	}

	for _, item := range ovlAnnots {
		src, err := m.ovl.DereferenceDict(item)
		if err != nil {
			return err
		}
		if src == nil {
			continue
		}

		annot, err := m.copier.copyDict(src)
		if err != nil {
			return err
		}
		annot["P"] = pageRef

		ref, err := m.out.IndRefForNewObject(annot)
		if err != nil {
			return err
		}
		annots = append(annots, *ref)
		if _, isField := annot.Find("FT"); isField {
			m.fields = append(m.fields, *ref)
		}
	}

	pageDict["Annots"] = annots
	return nil
}

// mergeAcroForm registers the copied widgets as fields of the output form
// and brings over the overlay's default resources
func (m *merger) mergeAcroForm() error {
	if len(m.fields) == 0 {
		return nil
	}

	root, err := m.out.Catalog()
	if err != nil {
		return err
	}
	acroForm, err := subDict(m.out, root, "AcroForm")
	if err != nil {
		return err
	}

	fields, err := arrayEntry(m.out, acroForm, "Fields")
	if err != nil {
		return err
	}
	acroForm["Fields"] = append(fields, m.fields...)
	acroForm["NeedAppearances"] = types.Boolean(true)

	ovlRoot, err := m.ovl.Catalog()
	if err != nil {
		return err
	}
	ovlForm, err := m.ovl.DereferenceDict(ovlRoot["AcroForm"])
	if err != nil || ovlForm == nil {
		return err
	}

	if _, found := acroForm.Find("DA"); !found {
		if da, ok := ovlForm.Find("DA"); ok {
			acroForm["DA"] = da
		}
	}

	ovlDR, err := m.ovl.DereferenceDict(ovlForm["DR"])
	if err != nil || ovlDR == nil {
		return err
	}
	ovlFonts, err := m.ovl.DereferenceDict(ovlDR["Font"])
	if err != nil || ovlFonts == nil {
		return err
	}

	dr, err := subDict(m.out, acroForm, "DR")
	if err != nil {
		return err
	}
	fonts, err := subDict(m.out, dr, "Font")
	if err != nil {
		return err
	}
	for name, font := range ovlFonts {
		if _, taken := fonts[name]; taken {
			continue
		}
		cp, err := m.copier.copyObject(font)
		if err != nil {
			return err
		}
		fonts[name] = cp
	}
	return nil
}
