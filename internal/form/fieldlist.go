package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteFieldList writes fields as an indented JSON array in discovery order
func WriteFieldList(w io.Writer, fields []FieldDescriptor) error {
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return fmt.Errorf("failed to encode field list: %w", err)
	}
	return nil
}

// ReadFieldList decodes a field list. Entries with an empty name get the
// fallback name for their position; unknown tags are rejected.
func ReadFieldList(r io.Reader) ([]FieldDescriptor, error) {
	var fields []FieldDescriptor
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode field list: %w", err)
	}

	for i := range fields {
		if !fields[i].Tag.Valid() {
			return nil, fmt.Errorf("field %d: unsupported tag %q", i, fields[i].Tag)
		}
		if fields[i].Name == "" {
			fields[i].Name = FallbackName(fields[i].Tag, i)
		}
		if fields[i].Width < 0 || fields[i].Height < 0 {
			return nil, fmt.Errorf("field %d (%s): negative box size", i, fields[i].Name)
		}
	}

	return fields, nil
}

// MarshalFieldList returns the serialized field list
func MarshalFieldList(fields []FieldDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFieldList(&buf, fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadFieldList reads a field list file
func LoadFieldList(path string) ([]FieldDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open field list: %w", err)
	}
	defer f.Close()

	return ReadFieldList(f)
}
