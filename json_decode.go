// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pbcodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// errSkip is returned for values that WithIgnoreUnknown says to drop.
var errSkip = errors.New("skip")

// FromJSON builds a message of type md from a JSON value tree, as produced
// by [json.Unmarshal] into an any. Numbers may be float64 or json.Number.
//
// Keys may be either the JSON name or the proto name of a field.
func FromJSON(md *MessageDescriptor, tree any, opts ...JSONOption) (*Message, error) {
	m := NewMessage(md)
	d := &jsonDecoder{opts: newJSONOptions(opts)}
	if err := d.message(md, m, tree, d.opts.maxDepth); err != nil {
		return nil, err
	}
	return m, nil
}

// UnmarshalJSON decodes the JSON encoding of a message of type md.
func UnmarshalJSON(md *MessageDescriptor, data []byte, opts ...JSONOption) (*Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("pbcodec: %s: %v: %w", md.TypeName, err, ErrInvalidJSON)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("pbcodec: %s: trailing data after JSON value: %w", md.TypeName, ErrInvalidJSON)
	}
	return FromJSON(md, tree, opts...)
}

type jsonDecoder struct {
	opts jsonOptions
}

func (d *jsonDecoder) registry() *Registry {
	if d.opts.registry != nil {
		return d.opts.registry
	}
	return builtinRegistry()
}

func jsonTypeError(want string, got any) error {
	return fmt.Errorf("expected %s, got %s: %w", want, jsonKind(got), ErrInvalidJSON)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func (d *jsonDecoder) message(md *MessageDescriptor, m *Message, v any, depth int) error {
	if depth < 0 {
		return fmt.Errorf("pbcodec: %s: %w", md.TypeName, ErrRecursionDepth)
	}
	if hasSpecialJSON(md.TypeName) {
		return d.wellKnown(md, m, v, depth)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return &FieldError{Field: md.TypeName, Err: jsonTypeError("object", v)}
	}
	oneofs := make(map[*OneofDescriptor]string)
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		val := obj[key]
		fd := md.FieldByName(key)
		if fd == nil {
			if xd := d.extension(md, key); xd != nil {
				if err := d.extensionValue(m, xd, val, depth); err != nil {
					return err
				}
				continue
			}
			if d.opts.ignoreUnknown {
				continue
			}
			return &FieldError{
				Field: md.TypeName,
				Err:   fmt.Errorf("key %q: %w", key, ErrUnknownJSONKey),
			}
		}
		if od := fd.Oneof; od != nil && val != nil {
			if prev, ok := oneofs[od]; ok {
				return &FieldError{
					Field: od.FullName(),
					Err:   fmt.Errorf("both %q and %q are set: %w", prev, key, ErrFieldValueInvalid),
				}
			}
			oneofs[od] = key
		}
		if err := d.field(m, fd, val, depth); err != nil {
			return err
		}
	}
	return nil
}

// extension resolves an "[pkg.ext]" key.
func (d *jsonDecoder) extension(md *MessageDescriptor, key string) *ExtensionDescriptor {
	if len(key) < 3 || key[0] != '[' || key[len(key)-1] != ']' {
		return nil
	}
	xd, ok := d.registry().ExtensionByName(key[1 : len(key)-1])
	if !ok || xd.Extendee.TypeName != md.TypeName {
		return nil
	}
	return xd
}

func (d *jsonDecoder) extensionValue(m *Message, xd *ExtensionDescriptor, val any, depth int) error {
	ext := NewMessage(xd.Parent)
	if err := d.field(ext, xd.FieldDescriptor, val, depth); err != nil {
		return err
	}
	if !isSet(ext, xd.FieldDescriptor) {
		ClearExtension(m, xd)
		return nil
	}
	data, err := Marshal(xd.Parent, ext)
	if err != nil {
		return err
	}
	fields, err := splitFields(data)
	if err != nil {
		return err
	}
	ClearExtension(m, xd)
	m.unknown = append(m.unknown, fields...)
	return nil
}

// acceptsNull returns whether null is a value of fd's element type rather
// than an absent value.
func acceptsNull(fd *FieldDescriptor) bool {
	switch fd.ElemKind {
	case KindMessage:
		return fd.Message.TypeName == wktValue
	case KindEnum:
		return fd.Enum.TypeName == wktNullValue
	}
	return false
}

func (d *jsonDecoder) field(m *Message, fd *FieldDescriptor, val any, depth int) error {
	if val == nil && (fd.Kind == KindList || fd.Kind == KindMap || !acceptsNull(fd)) {
		// null means unset: fields with presence are cleared, and fields
		// without keep their zero value.
		if fd.HasPresence() || fd.Kind == KindList || fd.Kind == KindMap {
			m.del(fd)
		}
		return nil
	}

	switch fd.Kind {
	case KindList:
		arr, ok := val.([]any)
		if !ok {
			return wrapField(fd, "", jsonTypeError("array", val))
		}
		items := make([]any, 0, len(arr))
		for i, item := range arr {
			where := fmt.Sprintf("list item #%d", i)
			if item == nil && !acceptsNull(fd) {
				return wrapField(fd, where, fmt.Errorf("null is not allowed: %w", ErrInvalidJSON))
			}
			v, err := d.elem(fd, item, depth)
			if errors.Is(err, errSkip) {
				continue
			}
			if err != nil {
				return wrapField(fd, where, err)
			}
			items = append(items, v)
		}
		m.put(fd.LocalName, &rawList{items: items})

	case KindMap:
		obj, ok := val.(map[string]any)
		if !ok {
			return wrapField(fd, "", jsonTypeError("object", val))
		}
		entries := make(map[any]any, len(obj))
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			key, err := scalar.ParseMapKey(fd.MapKey, k)
			if err != nil {
				return wrapField(fd, fmt.Sprintf("map key %q", k), err)
			}
			where := fmt.Sprintf("map value for key %q", k)
			item := obj[k]
			if item == nil && !acceptsNull(fd) {
				return wrapField(fd, where, fmt.Errorf("null is not allowed: %w", ErrInvalidJSON))
			}
			v, err := d.elem(fd, item, depth)
			if errors.Is(err, errSkip) {
				continue
			}
			if err != nil {
				return wrapField(fd, where, err)
			}
			entries[key] = v
		}
		m.put(fd.LocalName, &rawMap{entries: entries})

	default:
		v, err := d.elem(fd, val, depth)
		if errors.Is(err, errSkip) {
			return nil
		}
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				return err
			}
			return wrapField(fd, "", err)
		}
		m.set(fd, v)
	}
	return nil
}

func (d *jsonDecoder) elem(fd *FieldDescriptor, val any, depth int) (any, error) {
	switch fd.ElemKind {
	case KindMessage:
		sub := NewMessage(fd.Message)
		if err := d.message(fd.Message, sub, val, depth-1); err != nil {
			return nil, err
		}
		return sub, nil
	case KindEnum:
		return d.enum(fd.Enum, val)
	}
	return parseJSONScalar(fd.Scalar, val, fd.ValidateUTF8)
}

func (d *jsonDecoder) enum(ed *EnumDescriptor, val any) (any, error) {
	switch v := val.(type) {
	case nil:
		if ed.TypeName == wktNullValue {
			return int32(0), nil
		}
	case string:
		if ev := ed.ValueByName(v); ev != nil {
			return ev.Number, nil
		}
		if d.opts.ignoreUnknown {
			return nil, errSkip
		}
		return nil, fmt.Errorf("%q is not a value of %s: %w", v, ed.TypeName, ErrFieldValueInvalid)
	case json.Number, float64:
		n, err := parseJSONScalar(Int32, v, false)
		if err != nil {
			return nil, err
		}
		if !ed.Open && ed.ValueByNumber(n.(int32)) == nil {
			if d.opts.ignoreUnknown {
				return nil, errSkip
			}
			return nil, fmt.Errorf("%d is not a value of closed enum %s: %w", n, ed.TypeName, ErrFieldValueInvalid)
		}
		return n, nil
	}
	return nil, jsonTypeError("enum name or number", val)
}

// parseJSONScalar converts a JSON value into the storage representation of
// t. Integers and floats may be quoted; floats also accept "NaN",
// "Infinity" and "-Infinity".
func parseJSONScalar(t scalar.Type, val any, validateUTF8 bool) (any, error) {
	switch t {
	case scalar.Bool:
		b, ok := val.(bool)
		if !ok {
			return nil, jsonTypeError("boolean", val)
		}
		return b, nil

	case scalar.String:
		s, ok := val.(string)
		if !ok {
			return nil, jsonTypeError("string", val)
		}
		if validateUTF8 && !utf8.ValidString(s) {
			return nil, fmt.Errorf("invalid UTF-8 in string: %w", ErrInvalidUTF8)
		}
		return s, nil

	case scalar.Bytes:
		s, ok := val.(string)
		if !ok {
			return nil, jsonTypeError("base64 string", val)
		}
		b, err := scalar.DecodeBase64(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %v: %w", err, ErrFieldValueInvalid)
		}
		return b, nil

	case scalar.Float, scalar.Double:
		text, err := numberText(val)
		if err != nil {
			return nil, err
		}
		var f float64
		switch text {
		case "NaN":
			f = math.NaN()
		case "Infinity":
			f = math.Inf(1)
		case "-Infinity":
			f = math.Inf(-1)
		default:
			f, err = strconv.ParseFloat(text, 64)
			if err != nil || math.IsInf(f, 0) {
				return nil, fmt.Errorf("invalid %v: %q: %w", t, text, ErrFieldValueInvalid)
			}
		}
		return scalar.Check(t, f, false)
	}

	text, err := numberText(val)
	if err != nil {
		return nil, err
	}
	if t.Signed() {
		n, err := scalar.ParseInt(text, bitsOf(t))
		if err != nil {
			return nil, fmt.Errorf("invalid %v: %q: %w", t, text, ErrFieldValueInvalid)
		}
		return scalar.Check(t, n, false)
	}
	n, err := scalar.ParseUint(text, bitsOf(t))
	if err != nil {
		return nil, fmt.Errorf("invalid %v: %q: %w", t, text, ErrFieldValueInvalid)
	}
	return scalar.Check(t, n, false)
}

func bitsOf(t scalar.Type) int {
	if t.Is64() {
		return 64
	}
	return 32
}

// numberText returns the text of a JSON number or quoted number.
func numberText(val any) (string, error) {
	switch v := val.(type) {
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		if v == "" || strings.TrimSpace(v) != v {
			return "", fmt.Errorf("invalid number %q: %w", v, ErrFieldValueInvalid)
		}
		return v, nil
	}
	return "", jsonTypeError("number", val)
}
