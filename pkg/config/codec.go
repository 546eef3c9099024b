package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
)

// TypesKey is the document key carrying the read-only enumeration metadata.
const TypesKey = "$types"

// View selects which parts of a record are rendered.
type View struct {
	Secrets  bool           // update-service username and password
	LowLevel bool           // frame-buffer count, location and grab mode
	Types    map[string]any // optional metadata block, see Metadata
}

// Full renders everything; it is the only view that is ever persisted.
var Full = View{Secrets: true, LowLevel: true}

// Codec maps records to settings documents and back. Keys missing from a
// decoded document take their value from the codec's defaults.
type Codec struct {
	defaults Record
}

func NewCodec(defaults Record) *Codec {
	return &Codec{defaults: defaults}
}

// Defaults returns the record missing keys fall back to.
func (c *Codec) Defaults() Record {
	return c.defaults
}

// Encode renders the complete document.
func (c *Codec) Encode(r Record) ([]byte, error) {
	return c.Render(r, Full)
}

func (c *Codec) Render(r Record, v View) ([]byte, error) {
	doc := map[string]any{}
	for _, f := range fields {
		if f.vis == visSecret && !v.Secrets || f.vis == visLowLevel && !v.LowLevel {
			continue
		}
		setPath(doc, f.path, f.encode(&r))
	}
	if v.Types != nil {
		doc[TypesKey] = v.Types
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// Decode parses a settings document. The result is built from a private copy
// of the defaults, so nothing is observable unless the whole document decodes.
func (c *Codec) Decode(doc []byte) (Record, error) {
	if err := CheckShape(doc); err != nil {
		return Record{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(doc)))
	dec.UseNumber()

	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Record{}, fmt.Errorf("%w: unexpected data after document", ErrDecode)
	}

	r := c.defaults
	for _, f := range fields {
		raw, ok := lookupPath(tree, f.path)
		if !ok {
			if f.required {
				return Record{}, fmt.Errorf("%w: %s is required", ErrDecode, strings.Join(f.path, "."))
			}
			continue
		}
		if err := f.decode(&r, raw); err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrDecode, strings.Join(f.path, "."), err)
		}
	}

	return r, nil
}

func setPath(doc map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		next, ok := doc[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			doc[key] = next
		}
		doc = next
	}
	doc[path[len(path)-1]] = value
}

func lookupPath(doc map[string]any, path []string) (any, bool) {
	var cur any = doc
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}
