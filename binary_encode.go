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

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
	"github.com/nyuiela/sub0cre-sub000/internal/sync2"
	"github.com/nyuiela/sub0cre-sub000/internal/wire"
)

// Marshal returns the binary encoding of m, which must be of type md.
//
// Fields are written in field number order, followed by unknown fields in
// the order they were decoded. Map entries are written in key order, so the
// output is deterministic.
func Marshal(md *MessageDescriptor, m *Message, opts ...MarshalOption) ([]byte, error) {
	if m.typeName != md.TypeName {
		return nil, &FieldError{Field: md.TypeName, Err: ErrForeignField}
	}
	w, drop := writers.Get()
	defer drop()
	e := &encoder{w: w, opts: newMarshalOptions(opts)}
	if err := e.message(md, m, DefaultMaxDepth); err != nil {
		return nil, err
	}
	return slices.Clone(e.w.Finish()), nil
}

// writers holds scratch buffers for encoding.
var writers sync2.Pool[wire.Writer, *wire.Writer]

type encoder struct {
	w    *wire.Writer
	opts marshalOptions
}

func (e *encoder) message(md *MessageDescriptor, m *Message, depth int) error {
	if depth < 0 {
		return fmt.Errorf("pbcodec: %s: %w", md.TypeName, ErrRecursionDepth)
	}
	for _, fd := range md.sorted {
		if err := e.field(m, fd, depth); err != nil {
			return err
		}
	}
	if !e.opts.omitUnknown {
		for _, u := range m.unknown {
			e.w.Tag(u.Number, u.WireType).Raw(u.Data)
		}
	}
	return nil
}

func (e *encoder) field(m *Message, fd *FieldDescriptor, depth int) error {
	num := protowire.Number(fd.Number)
	switch fd.Kind {
	case KindList:
		l := m.list(fd, false)
		if l == nil || len(l.items) == 0 {
			return nil
		}
		if fd.Packed {
			e.w.Tag(num, protowire.BytesType).Fork()
			for _, v := range l.items {
				e.scalar(fd.scalarType(), v)
			}
			e.w.Join()
			return nil
		}
		for _, v := range l.items {
			if err := e.value(fd, num, v, depth); err != nil {
				return err
			}
		}
		return nil

	case KindMap:
		mm := m.mapping(fd, false)
		if mm == nil {
			return nil
		}
		for _, k := range sortedKeys(mm.entries) {
			if err := e.entry(fd, num, k, mm.entries[k], depth); err != nil {
				return err
			}
		}
		return nil
	}

	v, ok := m.get(fd)
	if !ok {
		if fd.Presence == PresenceLegacyRequired {
			return wrapField(fd, "", ErrRequiredFieldUnset)
		}
		return nil
	}
	if !fd.HasPresence() && isZero(fd, v) {
		return nil
	}
	return e.value(fd, num, v, depth)
}

// value writes a single tagged value of fd's element type.
func (e *encoder) value(fd *FieldDescriptor, num protowire.Number, v any, depth int) error {
	if fd.ElemKind != KindMessage {
		e.w.Tag(num, fd.scalarType().WireType())
		e.scalar(fd.scalarType(), v)
		return nil
	}
	sub, _ := v.(*Message)
	if sub == nil {
		sub = NewMessage(fd.Message)
	}
	if fd.Delimited {
		e.w.Tag(num, protowire.StartGroupType)
		if err := e.message(fd.Message, sub, depth-1); err != nil {
			return err
		}
		e.w.Tag(num, protowire.EndGroupType)
		return nil
	}
	e.w.Tag(num, protowire.BytesType).Fork()
	if err := e.message(fd.Message, sub, depth-1); err != nil {
		return err
	}
	e.w.Join()
	return nil
}

// entry writes one map entry. Map values are always length-prefixed.
func (e *encoder) entry(fd *FieldDescriptor, num protowire.Number, k, v any, depth int) error {
	e.w.Tag(num, protowire.BytesType).Fork()
	e.w.Tag(1, fd.MapKey.WireType())
	e.scalar(fd.MapKey, k)
	if fd.ElemKind == KindMessage {
		sub, _ := v.(*Message)
		if sub == nil {
			sub = NewMessage(fd.Message)
		}
		e.w.Tag(2, protowire.BytesType).Fork()
		if err := e.message(fd.Message, sub, depth-1); err != nil {
			return err
		}
		e.w.Join()
	} else {
		e.w.Tag(2, fd.scalarType().WireType())
		e.scalar(fd.scalarType(), v)
	}
	e.w.Join()
	return nil
}

// scalar writes a value in storage representation without a tag. Values of
// the wrong Go type are written as the zero value; they can only get into a
// message by way of [WithoutCheck].
func (e *encoder) scalar(t scalar.Type, v any) {
	switch t {
	case scalar.Double:
		f, _ := v.(float64)
		e.w.Double(f)
	case scalar.Float:
		f, _ := v.(float32)
		e.w.Float(f)
	case scalar.Int64:
		n, _ := v.(int64)
		e.w.Int64(n)
	case scalar.Uint64:
		n, _ := v.(uint64)
		e.w.Uint64(n)
	case scalar.Int32:
		n, _ := v.(int32)
		e.w.Int32(n)
	case scalar.Fixed64:
		n, _ := v.(uint64)
		e.w.Fixed64(n)
	case scalar.Fixed32:
		n, _ := v.(uint32)
		e.w.Fixed32(n)
	case scalar.Bool:
		b, _ := v.(bool)
		e.w.Bool(b)
	case scalar.String:
		s, _ := v.(string)
		e.w.String(s)
	case scalar.Bytes:
		b, _ := v.([]byte)
		e.w.Bytes(b)
	case scalar.Uint32:
		n, _ := v.(uint32)
		e.w.Uint32(n)
	case scalar.Sfixed32:
		n, _ := v.(int32)
		e.w.Sfixed32(n)
	case scalar.Sfixed64:
		n, _ := v.(int64)
		e.w.Sfixed64(n)
	case scalar.Sint32:
		n, _ := v.(int32)
		e.w.Sint32(n)
	case scalar.Sint64:
		n, _ := v.(int64)
		e.w.Sint64(n)
	}
}
