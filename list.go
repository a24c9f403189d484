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
)

// ReflectList is a view of a list field.
type ReflectList struct {
	field *FieldDescriptor
	raw   *rawList
	check bool
}

// Field returns the field this list belongs to.
func (l *ReflectList) Field() *FieldDescriptor { return l.field }

// Len returns the number of elements.
func (l *ReflectList) Len() int { return len(l.raw.items) }

// Get returns the element at index i. Message elements are returned as a
// *ReflectMessage.
//
// Panics if i is out of range.
func (l *ReflectList) Get(i int) any {
	if err := l.inRange(i); err != nil {
		panic(err)
	}
	return l.view(l.raw.items[i])
}

func (l *ReflectList) view(v any) any {
	if m, ok := v.(*Message); ok {
		return &ReflectMessage{desc: l.field.Message, msg: m, check: l.check}
	}
	return v
}

func (l *ReflectList) inRange(i int) error {
	if i < 0 || i >= len(l.raw.items) {
		return wrapField(l.field, fmt.Sprintf("list item #%d", i),
			fmt.Errorf("index out of range [0, %d): %w", len(l.raw.items), ErrFieldListRange))
	}
	return nil
}

func (l *ReflectList) checked(i int, v any) (any, error) {
	if !l.check {
		if rm, ok := v.(*ReflectMessage); ok {
			return rm.msg, nil
		}
		return v, nil
	}
	v, err := CheckValue(l.field, v)
	if err != nil {
		return nil, wrapField(l.field, fmt.Sprintf("list item #%d", i), err)
	}
	return v, nil
}

// Set replaces the element at index i.
func (l *ReflectList) Set(i int, v any) error {
	if err := l.inRange(i); err != nil {
		return err
	}
	v, err := l.checked(i, v)
	if err != nil {
		return err
	}
	l.raw.items[i] = v
	return nil
}

// Add appends an element.
func (l *ReflectList) Add(v any) error {
	v, err := l.checked(len(l.raw.items), v)
	if err != nil {
		return err
	}
	l.raw.items = append(l.raw.items, v)
	return nil
}

// Clear removes all elements.
func (l *ReflectList) Clear() {
	clear(l.raw.items)
	l.raw.items = l.raw.items[:0]
}

// All ranges over the elements, as returned by [ReflectList.Get].
func (l *ReflectList) All() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for i, v := range l.raw.items {
			if !yield(i, l.view(v)) {
				return
			}
		}
	}
}
