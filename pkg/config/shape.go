package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/tidwall/jsonc"
)

// ValidateShape reports whether doc could be decoded, without decoding it.
func ValidateShape(doc []byte) bool {
	return CheckShape(doc) == nil
}

// CheckShape verifies that the document is a single object, that the tag is
// present and numeric and that every other known key, when present, has the
// expected primitive type. Absent keys are fine: decoding falls back to
// defaults for them.
func CheckShape(doc []byte) error {
	data := jsonc.ToJSON(doc)

	_, typ, end, err := jsonparser.Get(data)
	if err != nil || typ != jsonparser.Object {
		return fmt.Errorf("%w: document is not an object", ErrDecode)
	}
	if len(bytes.TrimSpace(data[end:])) > 0 {
		return fmt.Errorf("%w: unexpected data after document", ErrDecode)
	}

	for _, path := range containers {
		_, typ, _, err := jsonparser.Get(data, path...)
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDecode, strings.Join(path, "."), err)
		}
		if typ != jsonparser.Object {
			return fmt.Errorf("%w: %s: expected object, got %s", ErrDecode, strings.Join(path, "."), typ)
		}
	}

	for _, f := range fields {
		_, typ, _, err := jsonparser.Get(data, f.path...)
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			if f.required {
				return fmt.Errorf("%w: %s is required", ErrDecode, strings.Join(f.path, "."))
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDecode, strings.Join(f.path, "."), err)
		}
		if typ != f.kind {
			return fmt.Errorf("%w: %s: expected %s, got %s", ErrDecode, strings.Join(f.path, "."), f.kind, typ)
		}
	}

	return nil
}
