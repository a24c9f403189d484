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
	"maps"
	"strings"
)

// typeURLPrefix is prepended to type names by [AnyPack].
const typeURLPrefix = "type.googleapis.com/"

// typeNameFromURL returns the part of a type URL after the last slash.
func typeNameFromURL(url string) string {
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

func anyFields(md *MessageDescriptor) (typeURL, value *FieldDescriptor) {
	return md.FieldByNumber(1), md.FieldByNumber(2)
}

// AnyPack returns a google.protobuf.Any holding the binary encoding of m.
func AnyPack(md *MessageDescriptor, m *Message) (*Message, error) {
	anyMD, err := builtinRegistry().descriptorType("Any")
	if err != nil {
		return nil, err
	}
	data, err := Marshal(md, m)
	if err != nil {
		return nil, err
	}
	typeURL, value := anyFields(anyMD)
	out := NewMessage(anyMD)
	out.set(typeURL, typeURLPrefix+md.TypeName)
	out.set(value, data)
	return out, nil
}

// AnyIs returns whether the google.protobuf.Any a holds a message of type
// md.
func AnyIs(a *Message, md *MessageDescriptor) bool {
	anyMD, err := builtinRegistry().descriptorType("Any")
	if err != nil || a.typeName != wktAny {
		return false
	}
	typeURL, _ := anyFields(anyMD)
	url, _ := a.fields[typeURL.LocalName].(string)
	return url != "" && typeNameFromURL(url) == md.TypeName
}

// AnyUnpack decodes the message held by the google.protobuf.Any a, looking
// its type up in r.
func AnyUnpack(r *Registry, a *Message, opts ...UnmarshalOption) (*MessageDescriptor, *Message, error) {
	if a.typeName != wktAny {
		return nil, nil, &FieldError{Field: wktAny, Err: fmt.Errorf("got %s: %w", a.typeName, ErrForeignField)}
	}
	anyMD, err := r.descriptorType("Any")
	if err != nil {
		return nil, nil, err
	}
	typeURL, value := anyFields(anyMD)
	url, _ := a.fields[typeURL.LocalName].(string)
	data, _ := a.fields[value.LocalName].([]byte)

	md, ok := r.Message(typeNameFromURL(url))
	if !ok {
		return nil, nil, fieldErrorf(typeURL, ErrUnresolvedType, "cannot resolve %q", url)
	}
	m, err := Unmarshal(md, data, opts...)
	if err != nil {
		return nil, nil, err
	}
	return md, m, nil
}

// wrapsValue returns whether the JSON form of an Any holding a message of the
// named type puts the message under a "value" key. This is the case for every
// google.protobuf type; the fields of any other message are inlined.
func wrapsValue(name string) bool {
	return strings.HasPrefix(name, "google.protobuf.")
}

// anyValue writes a google.protobuf.Any as an object with an "@type" key.
func (e *jsonEncoder) anyValue(md *MessageDescriptor, m *Message, depth int) (any, error) {
	typeURL, value := anyFields(md)
	url, _ := m.fields[typeURL.LocalName].(string)
	data, _ := m.fields[value.LocalName].([]byte)
	if url == "" && len(data) == 0 {
		return map[string]any{}, nil
	}

	inner, ok := e.registry().Message(typeNameFromURL(url))
	if !ok {
		return nil, fieldErrorf(typeURL, ErrUnresolvedType, "cannot resolve %q", url)
	}
	sub, err := Unmarshal(inner, data)
	if err != nil {
		return nil, wrapField(value, "", err)
	}
	payload, err := e.message(inner, sub, depth-1)
	if err != nil {
		return nil, err
	}

	if wrapsValue(inner.TypeName) {
		return map[string]any{"@type": url, "value": payload}, nil
	}
	obj, _ := payload.(map[string]any)
	out := make(map[string]any, len(obj)+1)
	maps.Copy(out, obj)
	out["@type"] = url
	return out, nil
}

func (d *jsonDecoder) anyValue(md *MessageDescriptor, m *Message, v any, depth int) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return &FieldError{Field: md.TypeName, Err: jsonTypeError("object", v)}
	}
	if len(obj) == 0 {
		return nil
	}
	typeURL, value := anyFields(md)
	url, ok := obj["@type"].(string)
	if !ok || url == "" {
		return fieldErrorf(typeURL, ErrInvalidJSON, `missing "@type"`)
	}

	inner, ok := d.registry().Message(typeNameFromURL(url))
	if !ok {
		return fieldErrorf(typeURL, ErrUnresolvedType, "cannot resolve %q", url)
	}

	var payload any
	if wrapsValue(inner.TypeName) {
		payload = obj["value"]
		for k := range obj {
			if k != "@type" && k != "value" && !d.opts.ignoreUnknown {
				return &FieldError{Field: md.TypeName, Err: fmt.Errorf("key %q: %w", k, ErrUnknownJSONKey)}
			}
		}
	} else {
		rest := maps.Clone(obj)
		delete(rest, "@type")
		payload = rest
	}

	sub := NewMessage(inner)
	if err := d.message(inner, sub, payload, depth-1); err != nil {
		return err
	}
	data, err := Marshal(inner, sub)
	if err != nil {
		return err
	}
	m.set(typeURL, url)
	m.set(value, data)
	return nil
}
