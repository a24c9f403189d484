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

// Package prototest compares dynamic messages against messages produced by
// the google.golang.org/protobuf runtime.
package prototest

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/emptypb"

	pbcodec "github.com/nyuiela/sub0cre-sub000"
	"github.com/nyuiela/sub0cre-sub000/internal/dbg"
)

// Equal validates that a message decoded by the reference runtime and one
// decoded by this module have the same observable value.
func Equal(t testing.TB, expect proto.Message, got *pbcodec.ReflectMessage) {
	t.Helper()
	e := &equal{TB: t}

	panicked := true
	defer func() {
		if panicked {
			t.Errorf("panicked at %s", e.formatPath())
		}
	}()

	e.message(expect.ProtoReflect(), got)
	panicked = false
}

// UnknownBytes re-encodes a message's unknown fields.
func UnknownBytes(fields []pbcodec.UnknownField) []byte {
	var b []byte
	for _, f := range fields {
		b = protowire.AppendTag(b, f.Number, f.WireType)
		b = append(b, f.Data...)
	}
	return b
}

type equal struct {
	testing.TB
	path []any
}

func (e *equal) value(v1 protoreflect.Value, v2 any) {
	e.Helper()

	switch a := v1.Interface().(type) {
	case protoreflect.Message:
		b, ok := v2.(*pbcodec.ReflectMessage)
		if !ok {
			e.wrongType(a, v2)
			return
		}
		e.message(a, b)

	case protoreflect.EnumNumber:
		b, ok := v2.(int32)
		switch {
		case !ok:
			e.wrongType(a, v2)
		case int32(a) != b:
			e.fail("expected enum %d, got %d", a, b)
		}

	case []byte:
		b, ok := v2.([]byte)
		switch {
		case !ok:
			e.wrongType(a, v2)
		case !bytes.Equal(a, b):
			e.fail("expected `%x`, got `%x`", a, b)
		}

	case float64:
		b, ok := v2.(float64)
		switch {
		case !ok:
			e.wrongType(a, v2)
		case math.Float64bits(a) != math.Float64bits(b) && !(math.IsNaN(a) && math.IsNaN(b)):
			e.fail("expected %v:%#x, got %v:%#x", a, math.Float64bits(a), b, math.Float64bits(b))
		}

	case float32:
		b, ok := v2.(float32)
		switch {
		case !ok:
			e.wrongType(a, v2)
		case math.Float32bits(a) != math.Float32bits(b) && !(a != a && b != b):
			e.fail("expected %v:%#x, got %v:%#x", a, math.Float32bits(a), b, math.Float32bits(b))
		}

	default:
		if a != v2 {
			e.fail("expected %v (%T), got %v (%T)", a, a, v2, v2)
		}
	}
}

func (e *equal) message(a protoreflect.Message, b *pbcodec.ReflectMessage) {
	e.Helper()

	d := a.Descriptor()
	if string(d.FullName()) != b.Descriptor().TypeName {
		e.fail("expected %v, got %v", d.FullName(), b.Descriptor().TypeName)
		return
	}

	// The reference runtime re-encodes unknown fields minimally, so compare
	// them after a round trip through an empty message.
	transcode := func(b []byte) []byte {
		empty := new(emptypb.Empty)
		_ = proto.Unmarshal(b, empty)
		return empty.ProtoReflect().GetUnknown()
	}

	want, got := a.GetUnknown(), UnknownBytes(b.Unknown())
	if !bytes.Equal(transcode(want), transcode(got)) {
		e.fail("unequal unknown fields: want `%x`, got `%x`", want, got)
	}

	fds := d.Fields()
	for i := range fds.Len() {
		fd := fds.Get(i)
		e.push(fd.Name(), func() {
			e.Helper()
			ours := b.FindNumber(int32(fd.Number()))
			if ours == nil {
				e.fail("missing field %d", fd.Number())
				return
			}
			if a.Has(fd) != b.IsSet(ours) {
				e.fail("unequal has: want %v, got %v", a.Has(fd), b.IsSet(ours))
			}

			switch {
			case fd.IsList():
				e.list(a.Get(fd).List(), b.GetList(ours))
			case fd.IsMap():
				e.mapping(a.Get(fd).Map(), b.GetMap(ours))
			case fd.Message() != nil:
				if a.Has(fd) {
					e.message(a.Get(fd).Message(), b.GetMessage(ours))
				}
			default:
				e.value(a.Get(fd), b.Get(ours))
			}
		})
	}

	ods := d.Oneofs()
	for i := range ods.Len() {
		od := ods.Get(i)
		if od.IsSynthetic() {
			continue
		}
		e.push(od.Name(), func() {
			e.Helper()
			var want, got string
			if fd := a.WhichOneof(od); fd != nil {
				want = string(fd.Name())
			}
			for _, ours := range b.Descriptor().Oneofs {
				if ours.Name != string(od.Name()) {
					continue
				}
				if fd := b.OneofCase(ours); fd != nil {
					got = fd.Name
				}
			}
			if want != got {
				e.fail("unequal which: want %q, got %q", want, got)
			}
		})
	}
}

func (e *equal) list(a protoreflect.List, b *pbcodec.ReflectList) {
	e.Helper()
	for i := range min(a.Len(), b.Len()) {
		e.push(i, func() {
			e.Helper()
			e.value(a.Get(i), b.Get(i))
		})
	}

	if a.Len() != b.Len() {
		e.fail("unequal lengths: want %d, got %d", a.Len(), b.Len())
	}
}

func (e *equal) mapping(a protoreflect.Map, b *pbcodec.ReflectMap) {
	e.Helper()
	if a.Len() != b.Len() {
		e.fail("unequal lengths: want %d, got %d", a.Len(), b.Len())
	}

	a.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		e.push(k.Interface(), func() {
			e.Helper()
			if !b.Has(k.Interface()) {
				e.fail("missing key")
				return
			}
			e.value(v, b.Get(k.Interface()))
		})
		return true
	})
}

func (e *equal) push(v any, f func()) {
	e.Helper()
	e.path = append(e.path, v)
	f()
	e.path = e.path[:len(e.path)-1]
}

func (e *equal) wrongType(a, b any) {
	e.Helper()
	e.fail("%v", dbg.Dict("type mismatch", "want", fmt.Sprintf("%T", a), "got", fmt.Sprintf("%T", b)))
}

func (e *equal) fail(format string, args ...any) {
	e.Helper()
	e.Errorf("failure at %s: %v", e.formatPath(), dbg.Fprintf(format, args...))
}

func (e *equal) formatPath() string {
	if len(e.path) == 0 {
		return "."
	}

	buf := new(strings.Builder)
	for _, e := range e.path {
		switch e := e.(type) {
		case protoreflect.Name, protoreflect.FullName:
			fmt.Fprintf(buf, ".%v", e)
		case string:
			fmt.Fprintf(buf, "[%q]", e)
		default:
			fmt.Fprintf(buf, "[%v]", e)
		}
	}

	return buf.String()
}
