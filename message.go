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
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is a dynamic message value.
//
// A Message only records the name of its type; its fields are interpreted
// through a [MessageDescriptor], usually by way of [Reflect]. Values are
// stored under each field's local name:
//
//   - scalars as int32, int64, uint32, uint64, float32, float64, bool,
//     string or []byte, and enums as int32;
//   - message fields as *Message;
//   - the active member of a oneof under the oneof's local name, tagged with
//     the member's name;
//   - lists and maps in their own containers, with map keys in the storage
//     type of the key.
//
// Fields that are not described by the descriptor a message was decoded with
// are kept in its unknown field list and written back out by [Marshal].
type Message struct {
	typeName string
	fields   map[string]any
	unknown  []UnknownField
}

// UnknownField is a field that a message's descriptor does not describe.
type UnknownField struct {
	Number   protowire.Number
	WireType protowire.Type
	// Data is the encoded value that followed the field's tag. For groups it
	// includes the terminating end-group tag.
	Data []byte
}

// oneofValue is the value stored for a oneof.
type oneofValue struct {
	Case  string // LocalName of the active field.
	Value any
}

type rawList struct {
	items []any
}

type rawMap struct {
	entries map[any]any
}

// NewMessage returns an empty message of the given type.
func NewMessage(md *MessageDescriptor) *Message {
	return newMessage(md.TypeName)
}

func newMessage(typeName string) *Message {
	return &Message{typeName: typeName}
}

// TypeName returns the fully-qualified name of the message's type.
func (m *Message) TypeName() string {
	return m.typeName
}

// Unknown returns the message's unknown fields. The returned slice must not
// be modified.
func (m *Message) Unknown() []UnknownField {
	return m.unknown
}

// SetUnknown replaces the message's unknown fields.
func (m *Message) SetUnknown(fields []UnknownField) {
	m.unknown = fields
}

// Reset clears all fields, including unknown fields.
func (m *Message) Reset() {
	clear(m.fields)
	m.unknown = nil
}

func (m *Message) put(key string, v any) {
	if m.fields == nil {
		m.fields = make(map[string]any)
	}
	m.fields[key] = v
}

// get returns the stored value of fd, handling oneofs.
func (m *Message) get(fd *FieldDescriptor) (any, bool) {
	if m == nil {
		return nil, false
	}
	if fd.Oneof != nil {
		slot, ok := m.fields[fd.Oneof.LocalName].(oneofValue)
		if !ok || slot.Case != fd.LocalName {
			return nil, false
		}
		return slot.Value, true
	}
	v, ok := m.fields[fd.LocalName]
	return v, ok
}

// set stores v for fd without any checks. Setting a oneof member replaces
// whichever member was active.
func (m *Message) set(fd *FieldDescriptor, v any) {
	if fd.Oneof != nil {
		m.put(fd.Oneof.LocalName, oneofValue{Case: fd.LocalName, Value: v})
		return
	}
	m.put(fd.LocalName, v)
}

// del removes the stored value of fd. For a oneof member, the oneof is only
// cleared if fd is the active member.
func (m *Message) del(fd *FieldDescriptor) {
	if fd.Oneof != nil {
		if slot, ok := m.fields[fd.Oneof.LocalName].(oneofValue); ok && slot.Case == fd.LocalName {
			delete(m.fields, fd.Oneof.LocalName)
		}
		return
	}
	delete(m.fields, fd.LocalName)
}

// oneofCase returns the local name of the active member of od.
func (m *Message) oneofCase(od *OneofDescriptor) string {
	slot, _ := m.fields[od.LocalName].(oneofValue)
	return slot.Case
}

// list returns the list storage of fd, creating it if asked to.
func (m *Message) list(fd *FieldDescriptor, create bool) *rawList {
	l, _ := m.fields[fd.LocalName].(*rawList)
	if l == nil && create {
		l = new(rawList)
		m.put(fd.LocalName, l)
	}
	return l
}

// mapping returns the map storage of fd, creating it if asked to.
func (m *Message) mapping(fd *FieldDescriptor, create bool) *rawMap {
	mm, _ := m.fields[fd.LocalName].(*rawMap)
	if mm == nil && create {
		mm = &rawMap{entries: make(map[any]any)}
		m.put(fd.LocalName, mm)
	}
	return mm
}

// Raw accessors used when reading descriptor messages. They do not need a
// descriptor, since the local names of descriptor.proto fields are fixed.

func (m *Message) str(name string) string {
	if m == nil {
		return ""
	}
	s, _ := m.fields[name].(string)
	return s
}

func (m *Message) i32(name string) (int32, bool) {
	if m == nil {
		return 0, false
	}
	n, ok := m.fields[name].(int32)
	return n, ok
}

func (m *Message) boolean(name string) bool {
	if m == nil {
		return false
	}
	b, _ := m.fields[name].(bool)
	return b
}

func (m *Message) has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.fields[name]
	return ok
}

func (m *Message) msg(name string) *Message {
	if m == nil {
		return nil
	}
	sub, _ := m.fields[name].(*Message)
	return sub
}

func (m *Message) items(name string) []any {
	if m == nil {
		return nil
	}
	l, _ := m.fields[name].(*rawList)
	if l == nil {
		return nil
	}
	return l.items
}

func (m *Message) msgs(name string) []*Message {
	items := m.items(name)
	out := make([]*Message, 0, len(items))
	for _, v := range items {
		if sub, ok := v.(*Message); ok {
			out = append(out, sub)
		}
	}
	return out
}

func (m *Message) strs(name string) []string {
	items := m.items(name)
	out := make([]string, 0, len(items))
	for _, v := range items {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
