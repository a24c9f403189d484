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

	"go.uber.org/multierr"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// CheckValue validates v as a single value of fd and returns it in its
// storage representation. For list and map fields, v is an element, or a
// map value.
//
// Integers may be given as any Go integer type that is in range for the
// field; 64-bit fields also accept decimal strings. Enums accept any in-range
// integer if open, and only declared numbers if closed, as well as an
// *EnumValueDescriptor of the field's enum. Message values must be a
// *ReflectMessage over the field's message type or a *Message of that type.
func CheckValue(fd *FieldDescriptor, v any) (any, error) {
	switch fd.ElemKind {
	case KindScalar:
		return scalar.Check(fd.Scalar, v, fd.ValidateUTF8)

	case KindEnum:
		if ev, ok := v.(*EnumValueDescriptor); ok {
			if ev.Parent != fd.Enum {
				return nil, fmt.Errorf("%s is not a value of %s: %w", ev.Name, fd.Enum.TypeName, ErrForeignField)
			}
			return ev.Number, nil
		}
		n, err := scalar.Check(Int32, v, false)
		if err != nil {
			return nil, err
		}
		if !fd.Enum.Open && fd.Enum.ValueByNumber(n.(int32)) == nil {
			return nil, fmt.Errorf("%d is not a value of closed enum %s: %w", n, fd.Enum.TypeName, ErrFieldValueInvalid)
		}
		return n, nil

	case KindMessage:
		switch v := v.(type) {
		case *ReflectMessage:
			if v.desc != fd.Message {
				return nil, fmt.Errorf("expected %s, got %s: %w", fd.Message.TypeName, v.desc.TypeName, ErrForeignField)
			}
			return v.msg, nil
		case *Message:
			if v == nil || v.typeName != fd.Message.TypeName {
				return nil, fmt.Errorf("expected %s, got %v: %w", fd.Message.TypeName, typeNameOf(v), ErrFieldValueInvalid)
			}
			return v, nil
		}
		return nil, fmt.Errorf("expected %s, got %T: %w", fd.Message.TypeName, v, ErrFieldValueInvalid)
	}
	return nil, fmt.Errorf("invalid field kind %v: %w", fd.ElemKind, ErrFieldValueInvalid)
}

func typeNameOf(m *Message) string {
	if m == nil {
		return "nil"
	}
	return m.typeName
}

// CheckMessage validates every value stored in m, including nested
// messages, and checks that every required field is set.
//
// All problems found are reported; use [multierr.Errors] to list them.
func CheckMessage(md *MessageDescriptor, m *Message) error {
	if m.typeName != md.TypeName {
		return &FieldError{
			Field: md.TypeName,
			Err:   fmt.Errorf("cannot check %s as %s: %w", m.typeName, md.TypeName, ErrForeignField),
		}
	}
	var errs error
	checkMessage(md, m, DefaultMaxDepth, &errs)
	return errs
}

func checkMessage(md *MessageDescriptor, m *Message, depth int, errs *error) {
	if depth <= 0 {
		multierr.AppendInto(errs, fmt.Errorf("pbcodec: %s: %w", md.TypeName, ErrRecursionDepth))
		return
	}
	recheck := func(fd *FieldDescriptor, where string, v any) {
		got, err := CheckValue(fd, v)
		if err != nil {
			multierr.AppendInto(errs, wrapField(fd, where, err))
			return
		}
		if sub, ok := got.(*Message); ok {
			checkMessage(fd.Message, sub, depth-1, errs)
		}
	}

	for _, fd := range md.Fields {
		switch fd.Kind {
		case KindList:
			l := m.list(fd, false)
			if l == nil {
				continue
			}
			for i, item := range l.items {
				recheck(fd, fmt.Sprintf("list item #%d", i), item)
			}
		case KindMap:
			mm := m.mapping(fd, false)
			if mm == nil {
				continue
			}
			for _, k := range sortedKeys(mm.entries) {
				if _, err := scalar.CheckMapKey(fd.MapKey, k); err != nil {
					multierr.AppendInto(errs, wrapField(fd, fmt.Sprintf("map key %q", fmt.Sprint(k)), err))
					continue
				}
				recheck(fd, fmt.Sprintf("map value for key %q", scalar.FormatMapKey(k)), mm.entries[k])
			}
		default:
			v, ok := m.get(fd)
			if !ok {
				if fd.Presence == PresenceLegacyRequired {
					multierr.AppendInto(errs, wrapField(fd, "", ErrRequiredFieldUnset))
				}
				continue
			}
			recheck(fd, "", v)
		}
	}
}
