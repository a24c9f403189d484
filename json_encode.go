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
	"fmt"
	"math"
	"strconv"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// ToJSON returns the JSON form of m, which must be of type md, as a tree of
// map[string]any, []any, string, json.Number, bool and nil values, ready to
// be passed to [json.Marshal].
func ToJSON(md *MessageDescriptor, m *Message, opts ...JSONOption) (any, error) {
	if m.typeName != md.TypeName {
		return nil, &FieldError{Field: md.TypeName, Err: ErrForeignField}
	}
	e := &jsonEncoder{opts: newJSONOptions(opts)}
	return e.message(md, m, e.opts.maxDepth)
}

// MarshalJSON returns the JSON encoding of m, which must be of type md.
func MarshalJSON(md *MessageDescriptor, m *Message, opts ...JSONOption) ([]byte, error) {
	tree, err := ToJSON(md, m, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("pbcodec: %s: %w", md.TypeName, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type jsonEncoder struct {
	opts jsonOptions
}

func (e *jsonEncoder) registry() *Registry {
	if e.opts.registry != nil {
		return e.opts.registry
	}
	return builtinRegistry()
}

func (e *jsonEncoder) key(fd *FieldDescriptor) string {
	if e.opts.protoNames {
		return fd.Name
	}
	return fd.JSONName
}

func (e *jsonEncoder) message(md *MessageDescriptor, m *Message, depth int) (any, error) {
	if depth < 0 {
		return nil, fmt.Errorf("pbcodec: %s: %w", md.TypeName, ErrRecursionDepth)
	}
	if hasSpecialJSON(md.TypeName) {
		return e.wellKnown(md, m, depth)
	}

	obj := make(map[string]any, len(md.Fields))
	for _, fd := range md.Fields {
		if !isSet(m, fd) {
			if !e.opts.emitDefaults || fd.HasPresence() {
				continue
			}
		}
		v, err := e.field(m, fd, depth)
		if err != nil {
			return nil, err
		}
		obj[e.key(fd)] = v
	}

	if len(m.unknown) > 0 {
		exts, _ := extensionFields(e.registry(), m)
		for _, xd := range exts {
			ext, err := extensionMessage(m, xd)
			if err != nil {
				return nil, wrapField(xd.FieldDescriptor, "", err)
			}
			v, err := e.field(ext, xd.FieldDescriptor, depth)
			if err != nil {
				return nil, err
			}
			obj["["+xd.TypeName+"]"] = v
		}
	}
	return obj, nil
}

// field returns the JSON form of fd's value in m, or of its zero value if it
// is unset.
func (e *jsonEncoder) field(m *Message, fd *FieldDescriptor, depth int) (any, error) {
	switch fd.Kind {
	case KindList:
		var items []any
		if l := m.list(fd, false); l != nil {
			items = l.items
		}
		out := make([]any, len(items))
		for i, v := range items {
			var err error
			if out[i], err = e.elem(fd, v, depth); err != nil {
				return nil, wrapField(fd, fmt.Sprintf("list item #%d", i), err)
			}
		}
		return out, nil

	case KindMap:
		out := make(map[string]any)
		if mm := m.mapping(fd, false); mm != nil {
			for k, v := range mm.entries {
				key := scalar.FormatMapKey(k)
				var err error
				if out[key], err = e.elem(fd, v, depth); err != nil {
					return nil, wrapField(fd, fmt.Sprintf("map value for key %q", key), err)
				}
			}
		}
		return out, nil
	}

	v, ok := m.get(fd)
	if !ok {
		v = fd.zero
	}
	out, err := e.elem(fd, v, depth)
	if err != nil {
		return nil, wrapField(fd, "", err)
	}
	return out, nil
}

func (e *jsonEncoder) elem(fd *FieldDescriptor, v any, depth int) (any, error) {
	switch fd.ElemKind {
	case KindMessage:
		sub, _ := v.(*Message)
		if sub == nil {
			sub = NewMessage(fd.Message)
		}
		return e.message(fd.Message, sub, depth-1)
	case KindEnum:
		n, _ := v.(int32)
		return e.enum(fd.Enum, n), nil
	}
	return jsonScalar(fd.Scalar, v, fd.JSType)
}

func (e *jsonEncoder) enum(ed *EnumDescriptor, n int32) any {
	if ed.TypeName == wktNullValue {
		return nil
	}
	if !e.opts.enumAsInteger {
		if ev := ed.ValueByNumber(n); ev != nil {
			return ev.Name
		}
	}
	return json.Number(strconv.FormatInt(int64(n), 10))
}

// jsonScalar returns the JSON form of a scalar in storage representation.
func jsonScalar(t scalar.Type, v any, js JSType) (any, error) {
	switch v := v.(type) {
	case int32:
		return json.Number(strconv.FormatInt(int64(v), 10)), nil
	case uint32:
		return json.Number(strconv.FormatUint(uint64(v), 10)), nil
	case int64:
		s := strconv.FormatInt(v, 10)
		if js == JSNumber {
			return json.Number(s), nil
		}
		return s, nil
	case uint64:
		s := strconv.FormatUint(v, 10)
		if js == JSNumber {
			return json.Number(s), nil
		}
		return s, nil
	case float32:
		return jsonFloat(float64(v), 32), nil
	case float64:
		return jsonFloat(v, 64), nil
	case bool:
		return v, nil
	case string:
		return v, nil
	case []byte:
		return scalar.EncodeBase64(v), nil
	}
	return nil, fmt.Errorf("cannot encode %T as %v: %w", v, t, ErrFieldValueInvalid)
}

func jsonFloat(f float64, bits int) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	// Same shortest form as encoding/json: plain notation, except for very
	// small or very large magnitudes.
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, format, -1, bits)
	if format == 'e' {
		// Trim e-09 to e-9.
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return json.Number(b)
}
