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

// Package scalar describes the Protobuf scalar types: how each is stored in
// memory, its zero value, its wire type, and the range of values it admits.
package scalar

import (
	"bytes"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Type is a scalar field type. Values match google.protobuf.FieldDescriptorProto.Type.
type Type int32

const (
	Double   Type = 1
	Float    Type = 2
	Int64    Type = 3
	Uint64   Type = 4
	Int32    Type = 5
	Fixed64  Type = 6
	Fixed32  Type = 7
	Bool     Type = 8
	String   Type = 9
	Bytes    Type = 12
	Uint32   Type = 13
	Sfixed32 Type = 15
	Sfixed64 Type = 16
	Sint32   Type = 17
	Sint64   Type = 18
)

var names = map[Type]string{
	Double:   "double",
	Float:    "float",
	Int64:    "int64",
	Uint64:   "uint64",
	Int32:    "int32",
	Fixed64:  "fixed64",
	Fixed32:  "fixed32",
	Bool:     "bool",
	String:   "string",
	Bytes:    "bytes",
	Uint32:   "uint32",
	Sfixed32: "sfixed32",
	Sfixed64: "sfixed64",
	Sint32:   "sint32",
	Sint64:   "sint64",
}

// Valid returns whether t names a scalar type (as opposed to a message,
// group or enum).
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

// String implements [fmt.Stringer].
func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// WireType returns the wire type a single value of t is written with.
func (t Type) WireType() protowire.Type {
	switch t {
	case Double, Fixed64, Sfixed64:
		return protowire.Fixed64Type
	case Float, Fixed32, Sfixed32:
		return protowire.Fixed32Type
	case String, Bytes:
		return protowire.BytesType
	default:
		return protowire.VarintType
	}
}

// Packable returns whether repeated values of t may use packed encoding.
func (t Type) Packable() bool {
	return t != String && t != Bytes
}

// Is64 returns whether t is one of the 64-bit integer types, which JSON
// renders as strings.
func (t Type) Is64() bool {
	switch t {
	case Int64, Uint64, Fixed64, Sfixed64, Sint64:
		return true
	}
	return false
}

// Signed returns whether t is a signed integer type.
func (t Type) Signed() bool {
	switch t {
	case Int32, Sint32, Sfixed32, Int64, Sint64, Sfixed64:
		return true
	}
	return false
}

// Zero returns the zero value of t in its storage representation.
func (t Type) Zero() any {
	switch t {
	case Double:
		return float64(0)
	case Float:
		return float32(0)
	case Int64, Sint64, Sfixed64:
		return int64(0)
	case Uint64, Fixed64:
		return uint64(0)
	case Int32, Sint32, Sfixed32:
		return int32(0)
	case Uint32, Fixed32:
		return uint32(0)
	case Bool:
		return false
	case String:
		return ""
	case Bytes:
		return []byte{}
	}
	panic(fmt.Sprintf("pbcodec: not a scalar type: %v", t))
}

// IsZero returns whether v is the zero value of t.
//
// Negative zero is not considered zero, since it is observable on the wire.
func (t Type) IsZero(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case float64:
		return v == 0 && !math.Signbit(v)
	case float32:
		return v == 0 && !math.Signbit(float64(v))
	case int64:
		return v == 0
	case uint64:
		return v == 0
	case int32:
		return v == 0
	case uint32:
		return v == 0
	case bool:
		return !v
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// Equal compares two values of t in storage representation.
//
// Unlike ==, two NaNs with the same bits compare equal, so that decoded
// values can be compared against their source.
func Equal(t Type, a, b any) bool {
	switch a := a.(type) {
	case float64:
		b, ok := b.(float64)
		return ok && (a == b || math.IsNaN(a) && math.IsNaN(b))
	case float32:
		b, ok := b.(float32)
		return ok && (a == b || a != a && b != b)
	case []byte:
		b, ok := b.([]byte)
		return ok && bytes.Equal(a, b)
	default:
		return a == b
	}
}
