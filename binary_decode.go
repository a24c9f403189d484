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
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nyuiela/sub0cre-sub000/internal/debug"
	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
	"github.com/nyuiela/sub0cre-sub000/internal/wire"
)

// Unmarshal decodes the binary encoding of a message of type md.
//
// The returned error may additionally implement a method with the signature
//
//	Offset() int
//
// which returns the offset into data at which the error occurred.
func Unmarshal(md *MessageDescriptor, data []byte, opts ...UnmarshalOption) (*Message, error) {
	m := NewMessage(md)
	if err := UnmarshalInto(md, m, data, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// UnmarshalInto decodes data and merges it into m: singular fields are
// overwritten, message fields are merged, and list and map elements are
// appended.
//
// If decoding fails, m may have been partially modified.
func UnmarshalInto(md *MessageDescriptor, m *Message, data []byte, opts ...UnmarshalOption) error {
	if m.typeName != md.TypeName {
		return &FieldError{Field: md.TypeName, Err: ErrForeignField}
	}
	d := &decoder{
		r:    wire.NewReader(data),
		opts: newUnmarshalOptions(opts),
	}
	return d.message(md, m, 0, d.opts.maxDepth)
}

type decoder struct {
	r    *wire.Reader
	opts unmarshalOptions
}

// message decodes fields into m until the end of the current frame, or
// until the end-group tag for group if it is not zero.
func (d *decoder) message(md *MessageDescriptor, m *Message, group protowire.Number, depth int) error {
	if depth < 0 {
		return wire.NewError(wire.CodeRecursionDepth, d.r.Pos())
	}
	for !d.r.Done() {
		start := d.r.Pos()
		num, typ, err := d.r.Tag()
		if err != nil {
			return err
		}
		if typ == protowire.EndGroupType {
			if group == 0 || num != group {
				return wire.NewError(wire.CodeEndGroup, start)
			}
			return nil
		}

		fd := md.byNumber[int32(num)]
		if fd != nil && accepts(fd, typ) {
			debug.Log(nil, "field", "%s @ %d, wire type %d", fd.FullName(), start, typ)
			if err := d.field(m, fd, num, typ, depth); err != nil {
				return err
			}
			continue
		}

		data, err := d.r.Skip(num, typ, depth)
		if err != nil {
			return err
		}
		if !d.opts.discardUnknown {
			m.unknown = append(m.unknown, UnknownField{
				Number:   num,
				WireType: typ,
				Data:     append([]byte(nil), data...),
			})
		}
	}
	if group != 0 {
		return wire.NewError(wire.CodeTruncated, d.r.Pos())
	}
	return nil
}

// accepts returns whether a value of fd may be encoded with typ. Values
// with any other wire type are kept as unknown fields.
func accepts(fd *FieldDescriptor, typ protowire.Type) bool {
	switch fd.Kind {
	case KindMap:
		return typ == protowire.BytesType
	case KindMessage:
		return typ == protowire.BytesType || typ == protowire.StartGroupType
	case KindList:
		if fd.ElemKind == KindMessage {
			return typ == protowire.BytesType || typ == protowire.StartGroupType
		}
		want := fd.scalarType()
		return typ == want.WireType() || (typ == protowire.BytesType && want.Packable())
	}
	return typ == fd.scalarType().WireType()
}

func (d *decoder) field(m *Message, fd *FieldDescriptor, num protowire.Number, typ protowire.Type, depth int) error {
	switch fd.Kind {
	case KindMessage:
		v, _ := m.get(fd)
		sub, _ := v.(*Message)
		if sub == nil {
			sub = NewMessage(fd.Message)
		}
		if err := d.submessage(fd.Message, sub, num, typ, depth); err != nil {
			return err
		}
		m.set(fd, sub)

	case KindList:
		l := m.list(fd, true)
		if fd.ElemKind == KindMessage {
			sub := NewMessage(fd.Message)
			if err := d.submessage(fd.Message, sub, num, typ, depth); err != nil {
				return err
			}
			l.items = append(l.items, sub)
			return nil
		}
		if typ == protowire.BytesType && fd.scalarType().Packable() {
			return d.packed(m, fd, l)
		}
		v, err := d.scalar(fd)
		if err != nil {
			return err
		}
		if d.closedUnknown(m, fd, num, v) {
			return nil
		}
		l.items = append(l.items, v)

	case KindMap:
		return d.entry(m, fd, num, depth)

	default:
		v, err := d.scalar(fd)
		if err != nil {
			return err
		}
		if d.closedUnknown(m, fd, num, v) {
			return nil
		}
		m.set(fd, v)
	}
	return nil
}

func (d *decoder) submessage(md *MessageDescriptor, m *Message, num protowire.Number, typ protowire.Type, depth int) error {
	if typ == protowire.StartGroupType {
		return d.message(md, m, num, depth-1)
	}
	n, err := d.r.Length()
	if err != nil {
		return err
	}
	old, err := d.r.PushLimit(n)
	if err != nil {
		return err
	}
	if err := d.message(md, m, 0, depth-1); err != nil {
		return err
	}
	d.r.PopLimit(old)
	return nil
}

func (d *decoder) packed(m *Message, fd *FieldDescriptor, l *rawList) error {
	n, err := d.r.Length()
	if err != nil {
		return err
	}
	old, err := d.r.PushLimit(n)
	if err != nil {
		return err
	}
	for !d.r.Done() {
		v, err := d.scalar(fd)
		if err != nil {
			return err
		}
		if d.closedUnknown(m, fd, protowire.Number(fd.Number), v) {
			continue
		}
		l.items = append(l.items, v)
	}
	d.r.PopLimit(old)
	return nil
}

// closedUnknown diverts a value that is not a member of a closed enum into
// the unknown field list, and reports whether it did so.
func (d *decoder) closedUnknown(m *Message, fd *FieldDescriptor, num protowire.Number, v any) bool {
	if fd.ElemKind != KindEnum || fd.Enum.Open {
		return false
	}
	n := v.(int32)
	if fd.Enum.ValueByNumber(n) != nil {
		return false
	}
	if !d.opts.discardUnknown {
		m.unknown = append(m.unknown, UnknownField{
			Number:   num,
			WireType: protowire.VarintType,
			Data:     protowire.AppendVarint(nil, uint64(int64(n))),
		})
	}
	return true
}

// entry decodes one entry of a map field. Missing keys and values take their
// zero value.
func (d *decoder) entry(m *Message, fd *FieldDescriptor, num protowire.Number, depth int) error {
	if depth-1 < 0 {
		return wire.NewError(wire.CodeRecursionDepth, d.r.Pos())
	}
	n, err := d.r.Length()
	if err != nil {
		return err
	}
	start := d.r.Pos()
	old, err := d.r.PushLimit(n)
	if err != nil {
		return err
	}

	key := fd.MapKey.Zero()
	var val any
	for !d.r.Done() {
		at := d.r.Pos()
		fnum, typ, err := d.r.Tag()
		if err != nil {
			return err
		}
		switch {
		case fnum == 1 && typ == fd.MapKey.WireType():
			if key, err = d.scalarOf(fd.MapKey, fd.ValidateUTF8); err != nil {
				return err
			}
		case fnum == 2 && fd.ElemKind == KindMessage && typ == protowire.BytesType:
			sub, _ := val.(*Message)
			if sub == nil {
				sub = NewMessage(fd.Message)
			}
			if err := d.submessage(fd.Message, sub, fnum, typ, depth-1); err != nil {
				return err
			}
			val = sub
		case fnum == 2 && fd.ElemKind != KindMessage && typ == fd.scalarType().WireType():
			if val, err = d.scalar(fd); err != nil {
				return err
			}
		case typ == protowire.EndGroupType:
			return wire.NewError(wire.CodeEndGroup, at)
		default:
			if _, err := d.r.Skip(fnum, typ, depth-1); err != nil {
				return err
			}
		}
	}
	d.r.PopLimit(old)

	if val == nil {
		switch fd.ElemKind {
		case KindMessage:
			val = NewMessage(fd.Message)
		default:
			val = fd.zero
		}
	}
	if fd.ElemKind == KindEnum && !fd.Enum.Open && fd.Enum.ValueByNumber(val.(int32)) == nil {
		// The whole entry is kept, so that the key is not lost.
		if !d.opts.discardUnknown {
			m.unknown = append(m.unknown, UnknownField{
				Number:   num,
				WireType: protowire.BytesType,
				Data:     protowire.AppendBytes(nil, d.r.Slice(start, start+n)),
			})
		}
		return nil
	}
	m.mapping(fd, true).entries[key] = val
	return nil
}

// scalar reads a single value of fd's element type.
func (d *decoder) scalar(fd *FieldDescriptor) (any, error) {
	return d.scalarOf(fd.scalarType(), fd.ValidateUTF8)
}

func (d *decoder) scalarOf(t scalar.Type, validate bool) (any, error) {
	switch t {
	case scalar.Double:
		return d.r.Double()
	case scalar.Float:
		return d.r.Float()
	case scalar.Int64:
		return d.r.Int64()
	case scalar.Uint64:
		return d.r.Uint64()
	case scalar.Int32:
		return d.r.Int32()
	case scalar.Fixed64:
		return d.r.Fixed64()
	case scalar.Fixed32:
		return d.r.Fixed32()
	case scalar.Bool:
		return d.r.Bool()
	case scalar.String:
		at := d.r.Pos()
		b, err := d.r.Bytes()
		if err != nil {
			return nil, err
		}
		if validate && !d.opts.allowInvalidUTF8 && !utf8.Valid(b) {
			return nil, wire.NewError(wire.CodeUTF8, at)
		}
		return string(b), nil
	case scalar.Bytes:
		b, err := d.r.Bytes()
		if err != nil {
			return nil, err
		}
		return append([]byte{}, b...), nil
	case scalar.Uint32:
		return d.r.Uint32()
	case scalar.Sfixed32:
		return d.r.Sfixed32()
	case scalar.Sfixed64:
		return d.r.Sfixed64()
	case scalar.Sint32:
		return d.r.Sint32()
	case scalar.Sint64:
		return d.r.Sint64()
	}
	return nil, wire.NewError(wire.CodeReserved, d.r.Pos())
}
