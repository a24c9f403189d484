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

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// Edition identifies the set of feature defaults a file is built with.
//
// The syntax markers "proto2" and "proto3" are mapped onto editions of their
// own.
type Edition int32

const (
	EditionUnknown Edition = 0
	EditionProto2  Edition = 998
	EditionProto3  Edition = 999
	Edition2023    Edition = 1000
	Edition2024    Edition = 1001
)

// String implements [fmt.Stringer].
func (e Edition) String() string {
	switch e {
	case EditionProto2:
		return "proto2"
	case EditionProto3:
		return "proto3"
	case Edition2023:
		return "2023"
	case Edition2024:
		return "2024"
	}
	return fmt.Sprintf("Edition(%d)", int32(e))
}

// ScalarType is the type of a scalar field, numbered as in
// google.protobuf.FieldDescriptorProto.Type.
type ScalarType = scalar.Type

const (
	Double   = scalar.Double
	Float    = scalar.Float
	Int64    = scalar.Int64
	Uint64   = scalar.Uint64
	Int32    = scalar.Int32
	Fixed64  = scalar.Fixed64
	Fixed32  = scalar.Fixed32
	Bool     = scalar.Bool
	String   = scalar.String
	Bytes    = scalar.Bytes
	Uint32   = scalar.Uint32
	Sfixed32 = scalar.Sfixed32
	Sfixed64 = scalar.Sfixed64
	Sint32   = scalar.Sint32
	Sint64   = scalar.Sint64
)

// Kind classifies a field by the shape of its value.
type Kind int8

const (
	KindScalar Kind = iota + 1
	KindEnum
	KindMessage
	KindList
	KindMap
)

// String implements [fmt.Stringer].
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindMessage:
		return "message"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// Presence describes how a field tracks whether it is set. The values match
// google.protobuf.FeatureSet.FieldPresence.
type Presence int8

const (
	PresenceExplicit       Presence = 1
	PresenceImplicit       Presence = 2
	PresenceLegacyRequired Presence = 3
)

// JSType is the jstype field option, which selects how 64-bit integers are
// written to JSON.
type JSType int8

const (
	JSNormal JSType = 0
	JSString JSType = 1
	JSNumber JSType = 2
)

// FileDescriptor describes a .proto file.
type FileDescriptor struct {
	Name         string
	Package      string
	Edition      Edition
	Dependencies []*FileDescriptor

	Messages   []*MessageDescriptor
	Enums      []*EnumDescriptor
	Services   []*ServiceDescriptor
	Extensions []*ExtensionDescriptor

	// Proto is the google.protobuf.FileDescriptorProto this file was built
	// from.
	Proto *Message

	features features
}

// String implements [fmt.Stringer].
func (f *FileDescriptor) String() string { return f.Name }

// MessageDescriptor describes a message type.
type MessageDescriptor struct {
	TypeName string
	Name     string
	File     *FileDescriptor
	Parent   *MessageDescriptor

	// Fields in declaration order.
	Fields []*FieldDescriptor
	Oneofs []*OneofDescriptor
	// Members lists the fields that are not part of a oneof, and each oneof
	// once, in declaration order. Each element is a *FieldDescriptor or a
	// *OneofDescriptor.
	Members []Member

	NestedMessages   []*MessageDescriptor
	NestedEnums      []*EnumDescriptor
	NestedExtensions []*ExtensionDescriptor

	Proto *Message

	mapEntry bool
	features features

	sorted   []*FieldDescriptor
	byNumber map[int32]*FieldDescriptor
	byName   map[string]*FieldDescriptor
}

// String implements [fmt.Stringer].
func (md *MessageDescriptor) String() string { return md.TypeName }

// IsMapEntry returns whether this is the synthetic entry type of a map field.
func (md *MessageDescriptor) IsMapEntry() bool { return md.mapEntry }

// FieldByNumber returns the field with the given number, or nil.
func (md *MessageDescriptor) FieldByNumber(n int32) *FieldDescriptor {
	return md.byNumber[n]
}

// FieldByName returns the field with the given proto name or JSON name, or
// nil.
func (md *MessageDescriptor) FieldByName(name string) *FieldDescriptor {
	return md.byName[name]
}

// SortedFields returns the fields ordered by number. The returned slice must
// not be modified.
func (md *MessageDescriptor) SortedFields() []*FieldDescriptor {
	return md.sorted
}

// index builds the derived lookup tables. Called once all fields are known.
func (md *MessageDescriptor) index() {
	md.sorted = slices.Clone(md.Fields)
	slices.SortFunc(md.sorted, func(a, b *FieldDescriptor) int {
		return int(a.Number) - int(b.Number)
	})
	md.byNumber = make(map[int32]*FieldDescriptor, len(md.Fields))
	md.byName = make(map[string]*FieldDescriptor, 2*len(md.Fields))
	for _, fd := range md.Fields {
		md.byNumber[fd.Number] = fd
		md.byName[fd.JSONName] = fd
	}
	// Proto names win over JSON names on collision.
	for _, fd := range md.Fields {
		md.byName[fd.Name] = fd
	}

	md.Members = md.Members[:0]
	seen := make(map[*OneofDescriptor]bool)
	for _, fd := range md.Fields {
		if fd.Oneof == nil {
			md.Members = append(md.Members, fd)
			continue
		}
		if !seen[fd.Oneof] {
			seen[fd.Oneof] = true
			md.Members = append(md.Members, fd.Oneof)
		}
	}
}

// Member is a *FieldDescriptor or a *OneofDescriptor.
type Member interface {
	member()
}

func (*FieldDescriptor) member() {}
func (*OneofDescriptor) member() {}

// FieldDescriptor describes a message field or the value of an extension.
type FieldDescriptor struct {
	Number int32
	// Name is the name in the .proto file.
	Name string
	// LocalName is the lowerCamelCase name the field is stored under.
	LocalName string
	JSONName  string

	// Kind is the shape of the field's value. For singular fields ElemKind
	// is the same as Kind; for lists and maps it is the kind of the
	// elements, or of the map values.
	Kind     Kind
	ElemKind Kind

	Scalar  ScalarType
	Enum    *EnumDescriptor
	Message *MessageDescriptor
	// MapKey is the type of the keys of a map field.
	MapKey ScalarType

	Presence  Presence
	Packed    bool
	Delimited bool
	Oneof     *OneofDescriptor
	Parent    *MessageDescriptor

	// Default is the declared proto2 default, or nil.
	Default      any
	JSType       JSType
	ValidateUTF8 bool

	Proto *Message

	// zero is returned by reflective getters when the field is unset.
	zero any
	ext  *ExtensionDescriptor
}

// FullName returns the fully-qualified name of the field.
func (fd *FieldDescriptor) FullName() string {
	if fd.ext != nil {
		return fd.ext.TypeName
	}
	if fd.Parent == nil {
		return fd.Name
	}
	return fd.Parent.TypeName + "." + fd.Name
}

// String implements [fmt.Stringer].
func (fd *FieldDescriptor) String() string { return fd.FullName() }

// IsExtension returns whether this describes the value of an extension.
func (fd *FieldDescriptor) IsExtension() bool { return fd.ext != nil }

// HasPresence returns whether the field distinguishes being unset from
// holding its zero value.
func (fd *FieldDescriptor) HasPresence() bool {
	switch fd.Kind {
	case KindList, KindMap:
		return false
	}
	return fd.Presence != PresenceImplicit || fd.Oneof != nil
}

// scalarType returns the scalar type used to encode a single element of this
// field. Enums encode as int32.
func (fd *FieldDescriptor) scalarType() ScalarType {
	if fd.ElemKind == KindEnum {
		return Int32
	}
	return fd.Scalar
}

// OneofDescriptor describes a oneof.
type OneofDescriptor struct {
	Name      string
	LocalName string
	Fields    []*FieldDescriptor
	Parent    *MessageDescriptor
}

// FullName returns the fully-qualified name of the oneof.
func (od *OneofDescriptor) FullName() string {
	return od.Parent.TypeName + "." + od.Name
}

// String implements [fmt.Stringer].
func (od *OneofDescriptor) String() string { return od.FullName() }

// EnumDescriptor describes an enum type.
type EnumDescriptor struct {
	TypeName string
	Name     string
	File     *FileDescriptor
	Parent   *MessageDescriptor
	Values   []*EnumValueDescriptor
	// Open enums accept numbers without a declared value.
	Open bool

	Proto *Message

	byNumber map[int32]*EnumValueDescriptor
	byName   map[string]*EnumValueDescriptor
}

// String implements [fmt.Stringer].
func (ed *EnumDescriptor) String() string { return ed.TypeName }

// ValueByNumber returns the first value with the given number, or nil.
func (ed *EnumDescriptor) ValueByNumber(n int32) *EnumValueDescriptor {
	return ed.byNumber[n]
}

// ValueByName returns the value with the given name, or nil.
func (ed *EnumDescriptor) ValueByName(name string) *EnumValueDescriptor {
	return ed.byName[name]
}

func (ed *EnumDescriptor) index() {
	ed.byNumber = make(map[int32]*EnumValueDescriptor, len(ed.Values))
	ed.byName = make(map[string]*EnumValueDescriptor, len(ed.Values))
	for _, v := range ed.Values {
		if _, ok := ed.byNumber[v.Number]; !ok {
			ed.byNumber[v.Number] = v
		}
		ed.byName[v.Name] = v
	}
}

// EnumValueDescriptor describes a value of an enum.
type EnumValueDescriptor struct {
	Name   string
	Number int32
	Parent *EnumDescriptor
}

// ExtensionDescriptor describes an extension field.
//
// The embedded [FieldDescriptor] describes the extension's value. Its parent
// is a synthetic message type with the extendee's name whose only field is
// the extension; extension values are stored in messages of that type.
type ExtensionDescriptor struct {
	*FieldDescriptor

	TypeName string
	Extendee *MessageDescriptor
	// Scope is the message the extension is declared in, or nil for a
	// top-level extension.
	Scope *MessageDescriptor
	File  *FileDescriptor
}

// String implements [fmt.Stringer].
func (xd *ExtensionDescriptor) String() string { return xd.TypeName }

// ServiceDescriptor describes a service.
type ServiceDescriptor struct {
	TypeName string
	Name     string
	File     *FileDescriptor
	Methods  []*MethodDescriptor

	Proto *Message
}

// String implements [fmt.Stringer].
func (sd *ServiceDescriptor) String() string { return sd.TypeName }

// MethodDescriptor describes a method of a service.
type MethodDescriptor struct {
	Name            string
	Parent          *ServiceDescriptor
	Input           *MessageDescriptor
	Output          *MessageDescriptor
	ClientStreaming bool
	ServerStreaming bool
}

// FullName returns the fully-qualified name of the method.
func (m *MethodDescriptor) FullName() string {
	return m.Parent.TypeName + "." + m.Name
}
