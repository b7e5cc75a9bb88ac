package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// FieldType is the kind of an AcroForm field
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeButton    FieldType = "button"
	FieldTypeChoice    FieldType = "choice"
	FieldTypeSignature FieldType = "signature"
	FieldTypeUnknown   FieldType = "unknown"
)

// FormField is one terminal field of a document's AcroForm
type FormField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Tooltip     string    `json:"tooltip,omitempty"`
	Value       string    `json:"value,omitempty"`
	Rect        form.Rect `json:"rect"`
	Page        int       `json:"page"` // 1-based, 0 when the widget is not on any page
	BorderStyle string    `json:"border_style,omitempty"`
	Multiline   bool      `json:"multiline,omitempty"`
	ReadOnly    bool      `json:"read_only,omitempty"`
	Required    bool      `json:"required,omitempty"`
}

// ListFormFields reads the AcroForm of doc, in /Fields order
func ListFormFields(doc *Document) ([]FormField, error) {
	ctx, err := doc.Context()
	if err != nil {
		return nil, err
	}
	return formFieldsFromContext(ctx)
}

func formFieldsFromContext(ctx *model.Context) ([]FormField, error) {
	fields := []FormField{}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return fields, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return fields, nil
	}

	fieldsArray, err := arrayEntry(ctx, acroFormDict, "Fields")
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	pages, err := pageNumbers(ctx)
	if err != nil {
		return nil, err
	}

	for i, fieldRef := range fieldsArray {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil {
			return nil, fmt.Errorf("failed to dereference field %d: %w", i, err)
		}
		if fieldDict == nil {
			continue
		}
		fields = append(fields, readField(ctx, fieldDict, pages, i))
	}

	return fields, nil
}

// pageNumbers maps page object numbers to 1-based page numbers
func pageNumbers(ctx *model.Context) (map[int]int, error) {
	pages := make(map[int]int, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		_, ref, _, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if ref != nil {
			pages[int(ref.ObjectNumber)] = i
		}
	}
	return pages, nil
}

func readField(ctx *model.Context, fieldDict types.Dict, pages map[int]int, index int) FormField {
	field := FormField{Type: fieldType(ctx, fieldDict)}

	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			field.Name = name
		}
	}
	if field.Name == "" {
		field.Name = fmt.Sprintf("field_%d", index)
	}

	if tuObj, found := fieldDict.Find("TU"); found {
		if tu, err := ctx.DereferenceStringOrHexLiteral(tuObj, model.V10, nil); err == nil {
			field.Tooltip = tu
		}
	}

	if vObj, found := fieldDict.Find("V"); found {
		if field.Type == FieldTypeText {
			if v, err := ctx.DereferenceStringOrHexLiteral(vObj, model.V10, nil); err == nil {
				field.Value = v
			}
		} else if name, err := ctx.DereferenceName(vObj, model.V10, nil); err == nil {
			field.Value = string(name)
		}
	}

	if flagsObj, found := fieldDict.Find("Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			v := int(*flags)
			field.ReadOnly = v&1 != 0
			field.Required = v&2 != 0
			field.Multiline = field.Type == FieldTypeText && v&fieldFlagMultiline != 0
		}
	}

	if bsObj, found := fieldDict.Find("BS"); found {
		if bs, err := ctx.DereferenceDict(bsObj); err == nil && bs != nil {
			if s := bs.NameEntry("S"); s != nil {
				field.BorderStyle = *s
			}
		}
	}

	// Merged field and widget, or the first kid widget
	widget := fieldDict
	if _, found := fieldDict.Find("Rect"); !found {
		if kids, err := arrayEntry(ctx, fieldDict, "Kids"); err == nil && len(kids) > 0 {
			if kid, err := ctx.DereferenceDict(kids[0]); err == nil && kid != nil {
				widget = kid
			}
		}
	}

	if rectObj, found := widget.Find("Rect"); found {
		if r, err := rectFromArray(ctx, rectObj); err == nil {
			field.Rect = r
		}
	}
	if pObj, found := widget.Find("P"); found {
		if ref, ok := pObj.(types.IndirectRef); ok {
			field.Page = pages[int(ref.ObjectNumber)]
		}
	}

	return field
}

// fieldType determines the field type from FT, following inheritance
func fieldType(ctx *model.Context, fieldDict types.Dict) FieldType {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return fieldType(ctx, parentDict)
			}
		}
		return FieldTypeUnknown
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return FieldTypeUnknown
	}

	switch ftName {
	case "Btn":
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				v := int(*flags)
				if v&(1<<15) != 0 {
					return FieldTypeRadio
				} else if v&(1<<16) != 0 {
					return FieldTypeButton
				}
			}
		}
		return FieldTypeCheckbox
	case "Tx":
		return FieldTypeText
	case "Ch":
		return FieldTypeChoice
	case "Sig":
		return FieldTypeSignature
	default:
		return FieldTypeUnknown
	}
}
