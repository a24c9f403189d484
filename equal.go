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
	"slices"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
	"github.com/nyuiela/sub0cre-sub000/internal/wire"
)

// Equal returns whether a and b, both of type md, hold the same fields and
// the same unknown fields.
//
// Fields with implicit presence that hold their zero value compare equal to
// unset fields. Floating-point NaNs compare equal to each other.
func Equal(md *MessageDescriptor, a, b *Message) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.typeName != md.TypeName || b.typeName != md.TypeName {
		return false
	}
	for _, fd := range md.Fields {
		set := isSet(a, fd)
		if set != isSet(b, fd) {
			return false
		}
		if !set {
			continue
		}
		switch fd.Kind {
		case KindList:
			la, lb := a.list(fd, false).items, b.list(fd, false).items
			if !slices.EqualFunc(la, lb, func(x, y any) bool { return elemEqual(fd, x, y) }) {
				return false
			}
		case KindMap:
			ma, mb := a.mapping(fd, false).entries, b.mapping(fd, false).entries
			if len(ma) != len(mb) {
				return false
			}
			for k, va := range ma {
				vb, ok := mb[k]
				if !ok || !elemEqual(fd, va, vb) {
					return false
				}
			}
		default:
			va, _ := a.get(fd)
			vb, _ := b.get(fd)
			if !elemEqual(fd, va, vb) {
				return false
			}
		}
	}
	wa, dropA := writers.Get()
	defer dropA()
	wb, dropB := writers.Get()
	defer dropB()
	return bytes.Equal(appendUnknown(wa, a).Finish(), appendUnknown(wb, b).Finish())
}

func elemEqual(fd *FieldDescriptor, a, b any) bool {
	switch fd.ElemKind {
	case KindMessage:
		ma, _ := a.(*Message)
		mb, _ := b.(*Message)
		if ma == nil {
			ma = NewMessage(fd.Message)
		}
		if mb == nil {
			mb = NewMessage(fd.Message)
		}
		return Equal(fd.Message, ma, mb)
	case KindEnum:
		return a == b
	}
	return scalar.Equal(fd.Scalar, a, b)
}

func appendUnknown(w *wire.Writer, m *Message) *wire.Writer {
	for _, u := range m.unknown {
		w.Tag(u.Number, u.WireType).Raw(u.Data)
	}
	return w
}
