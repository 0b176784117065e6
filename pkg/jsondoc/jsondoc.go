// Package jsondoc edits JSON manifests such as composer.json and
// package.json without disturbing their key order.
//
// Documents are orderedmap objects. Nested objects decode to
// orderedmap.OrderedMap values, arrays to []any. Encode writes four-space
// indentation without escaping slashes, HTML characters or unicode.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// ErrNotObject is returned by Parse when the document root is not an object.
var ErrNotObject = errors.New("document root is not a JSON object")

// Object is a JSON object that remembers the order its keys were added in.
type Object = orderedmap.OrderedMap

// NewObject returns an empty object that encodes without HTML escaping.
func NewObject() *Object {
	o := orderedmap.New()
	o.SetEscapeHTML(false)
	return o
}

// FromPairs builds an object from alternating keys and values.
func FromPairs(pairs ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		o.Set(key, pairs[i+1])
	}
	return o
}

// Parse decodes a JSON document whose root is an object.
func Parse(data []byte) (*Object, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	o := NewObject()
	if err := json.Unmarshal(trimmed, o); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return o, nil
}

// Encode renders o with four-space indentation and a trailing newline.
func Encode(o *Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AsObject returns v as an object when it is one, decoded or constructed.
func AsObject(v any) (*Object, bool) {
	switch t := v.(type) {
	case *Object:
		return t, t != nil
	case Object:
		return &t, true
	}
	return nil, false
}

// String returns the value under key if it is a string.
func String(o *Object, key string) (string, bool) {
	v, _ := o.Get(key)
	s, ok := v.(string)
	return s, ok
}

// Array returns the array under key. A missing key or a non-array value
// yields nil.
func Array(o *Object, key string) []any {
	v, _ := o.Get(key)
	arr, _ := v.([]any)
	return arr
}

// AppendUnique appends entry to the array under key unless an existing
// object element shares a string value with entry for any of the match
// keys. The array is created when missing, even if entry is not added. An
// empty entry is never appended. It reports whether entry was added.
func AppendUnique(o *Object, key string, entry *Object, match ...string) bool {
	arr := Array(o, key)
	if arr == nil {
		arr = []any{}
	}

	if entry == nil || len(entry.Keys()) == 0 {
		o.Set(key, arr)
		return false
	}

	for _, el := range arr {
		existing, ok := AsObject(el)
		if !ok {
			continue
		}
		for _, m := range match {
			want, ok := String(entry, m)
			if !ok {
				continue
			}
			if got, ok := String(existing, m); ok && got == want {
				o.Set(key, arr)
				return false
			}
		}
	}

	o.Set(key, append(arr, entry))
	return true
}
