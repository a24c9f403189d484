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
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// ReflectMap is a view of a map field.
//
// Keys are accepted as any value [ReflectMap.Set] accepts, and are returned
// in the storage type of the map's key type.
type ReflectMap struct {
	field *FieldDescriptor
	raw   *rawMap
	check bool
}

// Field returns the field this map belongs to.
func (m *ReflectMap) Field() *FieldDescriptor { return m.field }

// Len returns the number of entries.
func (m *ReflectMap) Len() int { return len(m.raw.entries) }

func (m *ReflectMap) key(k any) (any, bool) {
	key, err := scalar.CheckMapKey(m.field.MapKey, k)
	return key, err == nil
}

func (m *ReflectMap) view(v any) any {
	if msg, ok := v.(*Message); ok {
		return &ReflectMessage{desc: m.field.Message, msg: msg, check: m.check}
	}
	return v
}

// Has returns whether there is an entry for k.
func (m *ReflectMap) Has(k any) bool {
	key, ok := m.key(k)
	if !ok {
		return false
	}
	_, ok = m.raw.entries[key]
	return ok
}

// Get returns the value for k, or nil if there is none. Message values are
// returned as a *ReflectMessage.
func (m *ReflectMap) Get(k any) any {
	key, ok := m.key(k)
	if !ok {
		return nil
	}
	v, ok := m.raw.entries[key]
	if !ok {
		return nil
	}
	return m.view(v)
}

// Set sets the value for k.
//
// Non-string keys may also be given in their string form, as in JSON.
func (m *ReflectMap) Set(k, v any) error {
	key, err := scalar.CheckMapKey(m.field.MapKey, k)
	if err != nil {
		return wrapField(m.field, fmt.Sprintf("map key %q", fmt.Sprint(k)), err)
	}
	if m.check {
		if v, err = CheckValue(m.field, v); err != nil {
			return wrapField(m.field, fmt.Sprintf("map value for key %q", scalar.FormatMapKey(key)), err)
		}
	} else if rm, ok := v.(*ReflectMessage); ok {
		v = rm.msg
	}
	m.raw.entries[key] = v
	return nil
}

// Delete removes the entry for k, and returns whether there was one.
func (m *ReflectMap) Delete(k any) bool {
	key, ok := m.key(k)
	if !ok {
		return false
	}
	_, ok = m.raw.entries[key]
	delete(m.raw.entries, key)
	return ok
}

// Clear removes all entries.
func (m *ReflectMap) Clear() {
	clear(m.raw.entries)
}

// All ranges over the entries in key order.
func (m *ReflectMap) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for _, k := range sortedKeys(m.raw.entries) {
			if !yield(k, m.view(m.raw.entries[k])) {
				return
			}
		}
	}
}

// Keys ranges over the keys in order.
func (m *ReflectMap) Keys() iter.Seq[any] {
	return func(yield func(any) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values ranges over the values in key order.
func (m *ReflectMap) Values() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// sortedKeys returns the keys of a map in ascending order.
func sortedKeys(entries map[any]any) []any {
	return slices.SortedFunc(maps.Keys(entries), compareKeys)
}

func compareKeys(a, b any) int {
	switch a := a.(type) {
	case string:
		b, _ := b.(string)
		return strings.Compare(a, b)
	case bool:
		b, _ := b.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		}
		return 1
	case int32:
		b, _ := b.(int32)
		return cmp.Compare(a, b)
	case int64:
		b, _ := b.(int64)
		return cmp.Compare(a, b)
	case uint32:
		b, _ := b.(uint32)
		return cmp.Compare(a, b)
	case uint64:
		b, _ := b.(uint64)
		return cmp.Compare(a, b)
	}
	return 0
}
