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
	"iter"
	"maps"
	"slices"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// ReflectMessage provides access to the fields of a [Message] by way of its
// descriptor.
//
// A ReflectMessage is a view: it holds no state of its own beyond cached
// list and map views, and any number of views may exist for one message.
// Passing a field that does not belong to the viewed message type panics
// with a [*FieldError] wrapping [ErrForeignField], except in
// [ReflectMessage.Set], which returns it.
type ReflectMessage struct {
	desc  *MessageDescriptor
	msg   *Message
	check bool

	lists map[*FieldDescriptor]*ReflectList
	maps  map[*FieldDescriptor]*ReflectMap
}

// Reflect returns a view of m as a message of type md. If m is nil, a new
// empty message is created.
//
// Panics if m is not of type md.
func Reflect(md *MessageDescriptor, m *Message, opts ...ReflectOption) *ReflectMessage {
	var o reflectOptions
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(&o)
		}
	}
	if m == nil {
		m = NewMessage(md)
	} else if m.typeName != md.TypeName {
		panic(&FieldError{
			Field: md.TypeName,
			Err:   fmt.Errorf("cannot view %s as %s: %w", m.typeName, md.TypeName, ErrForeignField),
		})
	}
	return &ReflectMessage{desc: md, msg: m, check: !o.noCheck}
}

func (r *ReflectMessage) sub(md *MessageDescriptor, m *Message) *ReflectMessage {
	return &ReflectMessage{desc: md, msg: m, check: r.check}
}

// Descriptor returns the descriptor of the viewed message.
func (r *ReflectMessage) Descriptor() *MessageDescriptor { return r.desc }

// Message returns the viewed message.
func (r *ReflectMessage) Message() *Message { return r.msg }

// Fields returns the fields of the message type in declaration order.
func (r *ReflectMessage) Fields() []*FieldDescriptor { return r.desc.Fields }

// Members returns the fields outside of any oneof and the oneofs, in
// declaration order.
func (r *ReflectMessage) Members() []Member { return r.desc.Members }

// FindNumber returns the field with the given number, or nil.
func (r *ReflectMessage) FindNumber(n int32) *FieldDescriptor {
	return r.desc.FieldByNumber(n)
}

func (r *ReflectMessage) owns(fd *FieldDescriptor) error {
	if fd == nil {
		return &FieldError{Field: "<nil>", Err: ErrForeignField}
	}
	if fd.Parent != r.desc {
		return foreignField(fd, r.desc)
	}
	return nil
}

func (r *ReflectMessage) mustOwn(fd *FieldDescriptor) {
	if err := r.owns(fd); err != nil {
		panic(err)
	}
}

// OneofCase returns the set member of od, or nil if none is set.
func (r *ReflectMessage) OneofCase(od *OneofDescriptor) *FieldDescriptor {
	if od == nil || od.Parent != r.desc {
		panic(&FieldError{Field: fmt.Sprint(od), Err: ErrForeignField})
	}
	name := r.msg.oneofCase(od)
	for _, fd := range od.Fields {
		if fd.LocalName == name {
			return fd
		}
	}
	return nil
}

// IsSet returns whether fd is set.
//
// Members of a oneof are set if they are the active member. Fields with
// explicit presence are set if they hold a value. Other fields are set if
// they differ from their zero value; lists and maps are set if they are not
// empty.
func (r *ReflectMessage) IsSet(fd *FieldDescriptor) bool {
	r.mustOwn(fd)
	return isSet(r.msg, fd)
}

func isSet(m *Message, fd *FieldDescriptor) bool {
	switch fd.Kind {
	case KindList:
		l := m.list(fd, false)
		return l != nil && len(l.items) > 0
	case KindMap:
		mm := m.mapping(fd, false)
		return mm != nil && len(mm.entries) > 0
	}
	v, ok := m.get(fd)
	if !ok {
		return false
	}
	if fd.HasPresence() {
		return true
	}
	return !isZero(fd, v)
}

// isZero returns whether a singular value is the zero value of its type.
func isZero(fd *FieldDescriptor, v any) bool {
	switch fd.ElemKind {
	case KindScalar:
		return fd.Scalar.IsZero(v)
	case KindEnum:
		n, _ := v.(int32)
		return n == 0
	}
	return v == nil
}

// Get returns the value of fd.
//
// Scalars are returned in their storage representation, and enums as int32.
// Unset fields report their default. Message fields are returned as a
// *ReflectMessage, which views a new empty message if the field is unset;
// that message is not attached to r. Lists and maps are returned as
// *ReflectList and *ReflectMap.
func (r *ReflectMessage) Get(fd *FieldDescriptor) any {
	r.mustOwn(fd)
	switch fd.Kind {
	case KindList:
		return r.GetList(fd)
	case KindMap:
		return r.GetMap(fd)
	case KindMessage:
		return r.GetMessage(fd)
	}
	v, ok := r.msg.get(fd)
	if !ok {
		v = fd.zero
		if b, ok := v.([]byte); ok {
			v = slices.Clone(b)
		}
	}
	return v
}

// GetMessage returns a view of the message-typed field fd.
func (r *ReflectMessage) GetMessage(fd *FieldDescriptor) *ReflectMessage {
	r.mustKind(fd, KindMessage)
	v, _ := r.msg.get(fd)
	sub, _ := v.(*Message)
	if sub == nil {
		sub = NewMessage(fd.Message)
	}
	return r.sub(fd.Message, sub)
}

// Mutable is like [ReflectMessage.GetMessage], but sets fd to a new empty
// message first if it is unset.
func (r *ReflectMessage) Mutable(fd *FieldDescriptor) *ReflectMessage {
	r.mustKind(fd, KindMessage)
	v, _ := r.msg.get(fd)
	sub, _ := v.(*Message)
	if sub == nil {
		sub = NewMessage(fd.Message)
		r.msg.set(fd, sub)
	}
	return r.sub(fd.Message, sub)
}

// GetList returns a view of the list field fd.
//
// The view stays valid until fd is replaced with [ReflectMessage.Set] or
// cleared.
func (r *ReflectMessage) GetList(fd *FieldDescriptor) *ReflectList {
	r.mustKind(fd, KindList)
	raw := r.msg.list(fd, true)
	if v := r.lists[fd]; v != nil && v.raw == raw {
		return v
	}
	v := &ReflectList{field: fd, raw: raw, check: r.check}
	if r.lists == nil {
		r.lists = make(map[*FieldDescriptor]*ReflectList)
	}
	r.lists[fd] = v
	return v
}

// GetMap returns a view of the map field fd.
//
// The view stays valid until fd is replaced with [ReflectMessage.Set] or
// cleared.
func (r *ReflectMessage) GetMap(fd *FieldDescriptor) *ReflectMap {
	r.mustKind(fd, KindMap)
	raw := r.msg.mapping(fd, true)
	if v := r.maps[fd]; v != nil && v.raw == raw {
		return v
	}
	v := &ReflectMap{field: fd, raw: raw, check: r.check}
	if r.maps == nil {
		r.maps = make(map[*FieldDescriptor]*ReflectMap)
	}
	r.maps[fd] = v
	return v
}

func (r *ReflectMessage) mustKind(fd *FieldDescriptor, kind Kind) {
	r.mustOwn(fd)
	if fd.Kind != kind {
		panic(fieldErrorf(fd, ErrFieldValueInvalid, "field is a %v, not a %v", fd.Kind, kind))
	}
}

// Set sets the value of fd to v.
//
// Scalars accept any Go value that fits the field's type; see
// [CheckValue]. Message fields accept a *ReflectMessage or a *Message of the
// field's type. Lists accept a *ReflectList or a []any; maps accept a
// *ReflectMap, a map[any]any or a map[string]any. Setting a member of a
// oneof unsets the other members.
//
// If v is rejected, the message is not modified.
func (r *ReflectMessage) Set(fd *FieldDescriptor, v any) error {
	if err := r.owns(fd); err != nil {
		return err
	}
	switch fd.Kind {
	case KindList:
		items, err := r.toList(fd, v)
		if err != nil {
			return err
		}
		r.msg.put(fd.LocalName, &rawList{items: items})
	case KindMap:
		entries, err := r.toMap(fd, v)
		if err != nil {
			return err
		}
		r.msg.put(fd.LocalName, &rawMap{entries: entries})
	default:
		if r.check {
			var err error
			if v, err = CheckValue(fd, v); err != nil {
				return wrapField(fd, "", err)
			}
		} else if rm, ok := v.(*ReflectMessage); ok {
			v = rm.msg
		}
		r.msg.set(fd, v)
	}
	return nil
}

func (r *ReflectMessage) toList(fd *FieldDescriptor, v any) ([]any, error) {
	var in []any
	switch v := v.(type) {
	case *ReflectList:
		if !sameElem(v.field, fd) {
			return nil, fieldErrorf(fd, ErrForeignField, "cannot assign list of %s", v.field.FullName())
		}
		return slices.Clone(v.raw.items), nil
	case []any:
		in = v
	case nil:
		return nil, nil
	default:
		return nil, fieldErrorf(fd, ErrFieldValueInvalid, "expected list, got %T", v)
	}
	if !r.check {
		return slices.Clone(in), nil
	}
	out := make([]any, len(in))
	for i, item := range in {
		var err error
		if out[i], err = CheckValue(fd, item); err != nil {
			return nil, wrapField(fd, fmt.Sprintf("list item #%d", i), err)
		}
	}
	return out, nil
}

func (r *ReflectMessage) toMap(fd *FieldDescriptor, v any) (map[any]any, error) {
	out := make(map[any]any)
	put := func(k, v any) error {
		if !r.check {
			if rm, ok := v.(*ReflectMessage); ok {
				v = rm.msg
			}
			out[k] = v
			return nil
		}
		key, err := scalar.CheckMapKey(fd.MapKey, k)
		if err != nil {
			return wrapField(fd, fmt.Sprintf("map key %q", fmt.Sprint(k)), err)
		}
		val, err := CheckValue(fd, v)
		if err != nil {
			return wrapField(fd, fmt.Sprintf("map value for key %q", scalar.FormatMapKey(key)), err)
		}
		out[key] = val
		return nil
	}

	switch v := v.(type) {
	case *ReflectMap:
		if v.field.MapKey != fd.MapKey || !sameElem(v.field, fd) {
			return nil, fieldErrorf(fd, ErrForeignField, "cannot assign map of %s", v.field.FullName())
		}
		for k, val := range v.raw.entries {
			out[k] = val
		}
	case map[any]any:
		for _, k := range sortedKeys(v) {
			if err := put(k, v[k]); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(v)) {
			if err := put(k, v[k]); err != nil {
				return nil, err
			}
		}
	case nil:
	default:
		return nil, fieldErrorf(fd, ErrFieldValueInvalid, "expected map, got %T", v)
	}
	return out, nil
}

// sameElem returns whether a and b hold elements of the same type.
func sameElem(a, b *FieldDescriptor) bool {
	return a.ElemKind == b.ElemKind && a.Scalar == b.Scalar &&
		a.Enum == b.Enum && a.Message == b.Message
}

// Clear unsets fd.
//
// A member of a oneof is only cleared if it is the active member. Fields
// with implicit presence are reset to their zero value.
func (r *ReflectMessage) Clear(fd *FieldDescriptor) {
	r.mustOwn(fd)
	switch {
	case fd.Kind == KindList:
		delete(r.lists, fd)
		r.msg.del(fd)
	case fd.Kind == KindMap:
		delete(r.maps, fd)
		r.msg.del(fd)
	case fd.HasPresence():
		r.msg.del(fd)
	default:
		zero := fd.zero
		if b, ok := zero.([]byte); ok {
			zero = slices.Clone(b)
		}
		r.msg.set(fd, zero)
	}
}

// Range calls yield for each set field, in field number order, with the
// value [ReflectMessage.Get] would return.
func (r *ReflectMessage) Range() iter.Seq2[*FieldDescriptor, any] {
	return func(yield func(*FieldDescriptor, any) bool) {
		for _, fd := range r.desc.sorted {
			if isSet(r.msg, fd) && !yield(fd, r.Get(fd)) {
				return
			}
		}
	}
}

// Unknown returns the message's unknown fields.
func (r *ReflectMessage) Unknown() []UnknownField {
	return r.msg.Unknown()
}

// SetUnknown replaces the message's unknown fields.
func (r *ReflectMessage) SetUnknown(fields []UnknownField) {
	r.msg.SetUnknown(fields)
}
