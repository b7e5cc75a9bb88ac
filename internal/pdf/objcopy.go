package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// objectCopier deep-copies objects of one document into another. Indirect
// objects are copied once and shared by every later reference. Keys linking
// back into the source page tree are dropped.
type objectCopier struct {
	src, dst *model.Context
	copied   map[int]types.IndirectRef
}

var pageTreeKeys = map[string]bool{
	"P":      true,
	"Parent": true,
}

// Stream filter entries are rebuilt by the destination encoder
var streamFilterKeys = map[string]bool{
	"Filter":      true,
	"DecodeParms": true,
	"Length":      true,
	"DL":          true,
}

func newObjectCopier(src, dst *model.Context) *objectCopier {
	return &objectCopier{src: src, dst: dst, copied: map[int]types.IndirectRef{}}
}

func (c *objectCopier) copyObject(o types.Object) (types.Object, error) {
	switch v := o.(type) {
	case nil:
		return nil, nil
	case types.IndirectRef:
		return c.copyRef(v)
	case types.Dict:
		return c.copyDict(v)
	case types.Array:
		out := make(types.Array, 0, len(v))
		for _, item := range v {
			cp, err := c.copyObject(item)
			if err != nil {
				return nil, err
			}
			out = append(out, cp)
		}
		return out, nil
	case types.StreamDict:
		return c.copyStream(v)
	default:
		// Names, numbers, strings and booleans are values
		return o, nil
	}
}

// copyDict copies a dictionary without sharing it, so the caller may
// modify the result
func (c *objectCopier) copyDict(d types.Dict) (types.Dict, error) {
	out := types.Dict{}
	for k, v := range d {
		if pageTreeKeys[k] {
			continue
		}
		cp, err := c.copyObject(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		if cp != nil {
			out[k] = cp
		}
	}
	return out, nil
}

func (c *objectCopier) copyRef(ref types.IndirectRef) (types.Object, error) {
	objNr := int(ref.ObjectNumber)
	if done, ok := c.copied[objNr]; ok {
		return done, nil
	}

	obj, err := c.src.Dereference(ref)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	// Reserve the destination number first so cycles resolve to it
	newRef, err := c.dst.IndRefForNewObject(types.Dict{})
	if err != nil {
		return nil, err
	}
	c.copied[objNr] = *newRef

	cp, err := c.copyObject(obj)
	if err != nil {
		return nil, err
	}

	entry, found := c.dst.Table[int(newRef.ObjectNumber)]
	if !found {
		return nil, fmt.Errorf("lost reserved object %d", int(newRef.ObjectNumber))
	}
	entry.Object = cp
	return *newRef, nil
}

func (c *objectCopier) copyStream(sd types.StreamDict) (types.Object, error) {
	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("failed to decode stream: %w", err)
	}

	out, err := c.dst.NewStreamDictForBuf(sd.Content)
	if err != nil {
		return nil, err
	}
	for k, v := range sd.Dict {
		if streamFilterKeys[k] || pageTreeKeys[k] {
			continue
		}
		cp, err := c.copyObject(v)
		if err != nil {
			return nil, fmt.Errorf("stream key %s: %w", k, err)
		}
		if cp != nil {
			out.Dict[k] = cp
		}
	}
	if err := out.Encode(); err != nil {
		return nil, err
	}
	return *out, nil
}
