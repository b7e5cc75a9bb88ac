package pdf

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

// textString encodes s as a PDF text string: a literal for printable ASCII,
// UTF-16BE with a byte order mark otherwise
func textString(s string) types.Object {
	ascii := true
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			ascii = false
			break
		}
	}

	if ascii {
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
		return types.StringLiteral(r.Replace(s))
	}

	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2, 2+2*len(units))
	buf[0], buf[1] = 0xfe, 0xff
	for _, u := range units {
		buf = append(buf, byte(u>>8), byte(u))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(buf)))
}

func rectArray(r form.Rect) types.Array {
	return types.Array{
		types.Float(r.X),
		types.Float(r.Y),
		types.Float(r.URX()),
		types.Float(r.URY()),
	}
}

func floatArray(values ...float64) types.Array {
	arr := make(types.Array, len(values))
	for i, v := range values {
		arr[i] = types.Float(v)
	}
	return arr
}

// numberValue reads an Integer or Float
func numberValue(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	default:
		return 0, false
	}
}

// rectFromArray converts a PDF rectangle array into a Rect, normalizing
// corner order
func rectFromArray(ctx *model.Context, o types.Object) (form.Rect, error) {
	arr, err := ctx.DereferenceArray(o)
	if err != nil {
		return form.Rect{}, err
	}
	if len(arr) != 4 {
		return form.Rect{}, fmt.Errorf("rectangle needs 4 numbers, got %d", len(arr))
	}

	var v [4]float64
	for i, item := range arr {
		obj, err := ctx.Dereference(item)
		if err != nil {
			return form.Rect{}, err
		}
		n, ok := numberValue(obj)
		if !ok {
			return form.Rect{}, fmt.Errorf("rectangle entry %d is not a number", i)
		}
		v[i] = n
	}

	llx, urx := min(v[0], v[2]), max(v[0], v[2])
	lly, ury := min(v[1], v[3]), max(v[1], v[3])
	return form.Rect{X: llx, Y: lly, Width: urx - llx, Height: ury - lly}, nil
}

// newStream adds a Flate encoded stream with the given content and extra
// dictionary entries and returns its reference
func newStream(ctx *model.Context, content []byte, entries types.Dict) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	for k, v := range entries {
		sd.Dict[k] = v
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// pageContent returns the decoded, concatenated content streams of a page
func pageContent(ctx *model.Context, pageDict types.Dict) ([]byte, error) {
	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}

	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}

	var streams types.Array
	switch v := obj.(type) {
	case types.Array:
		streams = v
	case types.StreamDict:
		streams = types.Array{v}
	default:
		return nil, fmt.Errorf("unexpected page contents of type %T", obj)
	}

	var out []byte
	for _, item := range streams {
		o, err := ctx.Dereference(item)
		if err != nil {
			return nil, err
		}
		sd, ok := o.(types.StreamDict)
		if !ok {
			return nil, fmt.Errorf("content entry of type %T is not a stream", o)
		}
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("failed to decode content stream: %w", err)
		}
		out = append(out, sd.Content...)
		out = append(out, '\n')
	}

	return out, nil
}

// resourceDict returns the page's own resource dictionary, creating one from
// the inherited resources when the page has none
func resourceDict(ctx *model.Context, pageDict types.Dict, inherited types.Dict) (types.Dict, error) {
	if obj, found := pageDict.Find("Resources"); found && obj != nil {
		d, err := ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}

	d := types.Dict{}
	for k, v := range inherited {
		d[k] = v
	}
	pageDict["Resources"] = d
	return d, nil
}

// subDict returns d[key] as a dictionary, creating it when absent
func subDict(ctx *model.Context, d types.Dict, key string) (types.Dict, error) {
	if obj, found := d.Find(key); found && obj != nil {
		sub, err := ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			return sub, nil
		}
	}
	sub := types.Dict{}
	d[key] = sub
	return sub, nil
}

// arrayEntry returns a copy of d[key] as an array, empty when absent
func arrayEntry(ctx *model.Context, d types.Dict, key string) (types.Array, error) {
	obj, found := d.Find(key)
	if !found || obj == nil {
		return types.Array{}, nil
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil {
		return nil, err
	}
	out := make(types.Array, len(arr))
	copy(out, arr)
	return out, nil
}
