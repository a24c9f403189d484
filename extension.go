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
	"fmt"
	"slices"

	"github.com/nyuiela/sub0cre-sub000/internal/wire"
)

// Extension values are not stored as fields. Like any field the decoder
// does not know about, they stay in the unknown field list, and are decoded
// on demand.

func checkExtendee(m *Message, xd *ExtensionDescriptor) error {
	if m.typeName != xd.Extendee.TypeName {
		return &FieldError{
			Field: xd.TypeName,
			Err:   fmt.Errorf("extends %s, not %s: %w", xd.Extendee.TypeName, m.typeName, ErrForeignField),
		}
	}
	return nil
}

// extensionMessage decodes the unknown fields of m that belong to xd into a
// message of xd's container type.
func extensionMessage(m *Message, xd *ExtensionDescriptor) (*Message, error) {
	w := wire.NewWriter()
	for _, u := range m.unknown {
		if int32(u.Number) == xd.Number {
			w.Tag(u.Number, u.WireType).Raw(u.Data)
		}
	}
	return Unmarshal(xd.Parent, w.Finish(), WithDiscardUnknown(true))
}

// HasExtension returns whether m holds a value for xd.
func HasExtension(m *Message, xd *ExtensionDescriptor) bool {
	if checkExtendee(m, xd) != nil {
		return false
	}
	for _, u := range m.unknown {
		if int32(u.Number) == xd.Number {
			return true
		}
	}
	return false
}

// GetExtension returns the value of xd in m, in the form
// [ReflectMessage.Get] returns it. Unset extensions report their default.
func GetExtension(m *Message, xd *ExtensionDescriptor) (any, error) {
	if err := checkExtendee(m, xd); err != nil {
		return nil, err
	}
	ext, err := extensionMessage(m, xd)
	if err != nil {
		return nil, wrapField(xd.FieldDescriptor, "", err)
	}
	return Reflect(xd.Parent, ext).Get(xd.FieldDescriptor), nil
}

// SetExtension sets the value of xd in m. Values are accepted as by
// [ReflectMessage.Set].
func SetExtension(m *Message, xd *ExtensionDescriptor, v any) error {
	if err := checkExtendee(m, xd); err != nil {
		return err
	}
	ext := NewMessage(xd.Parent)
	if err := Reflect(xd.Parent, ext).Set(xd.FieldDescriptor, v); err != nil {
		return err
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

// ClearExtension removes the value of xd from m.
func ClearExtension(m *Message, xd *ExtensionDescriptor) {
	if checkExtendee(m, xd) != nil {
		return
	}
	m.unknown = slices.DeleteFunc(m.unknown, func(u UnknownField) bool {
		return int32(u.Number) == xd.Number
	})
}

// splitFields breaks encoded fields into unknown field records.
func splitFields(data []byte) ([]UnknownField, error) {
	r := wire.NewReader(data)
	var out []UnknownField
	for !r.Done() {
		num, typ, err := r.Tag()
		if err != nil {
			return nil, err
		}
		raw, err := r.Skip(num, typ, DefaultMaxDepth)
		if err != nil {
			return nil, err
		}
		out = append(out, UnknownField{Number: num, WireType: typ, Data: raw})
	}
	return out, nil
}

// extensionFields returns the unknown fields of m grouped by the registered
// extension they belong to, in field number order. Fields that belong to
// no registered extension are returned separately.
func extensionFields(r *Registry, m *Message) (exts []*ExtensionDescriptor, rest []UnknownField) {
	seen := make(map[int32]bool)
	for _, u := range m.unknown {
		xd, ok := r.Extension(m.typeName, int32(u.Number))
		if !ok {
			rest = append(rest, u)
			continue
		}
		if !seen[xd.Number] {
			seen[xd.Number] = true
			exts = append(exts, xd)
		}
	}
	slices.SortFunc(exts, func(a, b *ExtensionDescriptor) int {
		return int(a.Number) - int(b.Number)
	})
	return exts, rest
}

