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

import "slices"

// Clone returns a deep copy of m, which must be of type md.
func Clone(md *MessageDescriptor, m *Message) *Message {
	if m == nil {
		return nil
	}
	out := newMessage(m.typeName)
	for _, fd := range md.Fields {
		switch fd.Kind {
		case KindList:
			l := m.list(fd, false)
			if l == nil {
				continue
			}
			items := make([]any, len(l.items))
			for i, v := range l.items {
				items[i] = cloneElem(fd, v)
			}
			out.put(fd.LocalName, &rawList{items: items})
		case KindMap:
			mm := m.mapping(fd, false)
			if mm == nil {
				continue
			}
			entries := make(map[any]any, len(mm.entries))
			for k, v := range mm.entries {
				entries[k] = cloneElem(fd, v)
			}
			out.put(fd.LocalName, &rawMap{entries: entries})
		default:
			if v, ok := m.get(fd); ok {
				out.set(fd, cloneElem(fd, v))
			}
		}
	}
	if m.unknown != nil {
		out.unknown = make([]UnknownField, len(m.unknown))
		for i, u := range m.unknown {
			u.Data = slices.Clone(u.Data)
			out.unknown[i] = u
		}
	}
	return out
}

func cloneElem(fd *FieldDescriptor, v any) any {
	switch v := v.(type) {
	case *Message:
		return Clone(fd.Message, v)
	case []byte:
		return slices.Clone(v)
	}
	return v
}
