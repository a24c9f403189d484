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
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Limits of google.protobuf.Timestamp and google.protobuf.Duration.
const (
	minTimestamp   = -62135596800 // 0001-01-01T00:00:00Z
	maxTimestamp   = 253402300799 // 9999-12-31T23:59:59Z
	maxDuration    = 315576000000
	nanosPerSecond = 1_000_000_000
)

// hasSpecialJSON returns whether a message type has a JSON mapping other
// than an object of its fields.
func hasSpecialJSON(name string) bool {
	switch name {
	case wktAny, wktTimestamp, wktDuration, wktStruct, wktValue,
		wktListValue, wktFieldMask, wktEmpty:
		return true
	}
	return isWrapper(name)
}

func (e *jsonEncoder) wellKnown(md *MessageDescriptor, m *Message, depth int) (any, error) {
	switch name := md.TypeName; {
	case isWrapper(name):
		fd := md.FieldByNumber(1)
		return e.field(m, fd, depth)

	case name == wktAny:
		return e.anyValue(md, m, depth)

	case name == wktTimestamp:
		secs, nanos := secondsNanos(md, m)
		s, err := formatTimestamp(secs, nanos)
		if err != nil {
			return nil, &FieldError{Field: name, Err: err}
		}
		return s, nil

	case name == wktDuration:
		secs, nanos := secondsNanos(md, m)
		s, err := formatDuration(secs, nanos)
		if err != nil {
			return nil, &FieldError{Field: name, Err: err}
		}
		return s, nil

	case name == wktStruct:
		fd := md.FieldByName("fields")
		return e.field(m, fd, depth)

	case name == wktListValue:
		fd := md.FieldByName("values")
		return e.field(m, fd, depth)

	case name == wktValue:
		od := md.Oneofs[0]
		for _, fd := range od.Fields {
			v, ok := m.get(fd)
			if !ok {
				continue
			}
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				return nil, fieldErrorf(fd, ErrFieldValueInvalid, "%v is not a JSON number", f)
			}
			return e.elem(fd, v, depth)
		}
		return nil, &FieldError{Field: name, Err: fmt.Errorf("no kind is set: %w", ErrFieldValueInvalid)}

	case name == wktFieldMask:
		fd := md.FieldByName("paths")
		var paths []string
		if l := m.list(fd, false); l != nil {
			for _, v := range l.items {
				path, _ := v.(string)
				camel := camelCase(path)
				if back, ok := snakeCase(camel); !ok || back != path {
					return nil, fieldErrorf(fd, ErrFieldValueInvalid, "path %q has no JSON form", path)
				}
				paths = append(paths, camel)
			}
		}
		return strings.Join(paths, ","), nil

	case name == wktEmpty:
		return map[string]any{}, nil
	}
	return nil, fmt.Errorf("pbcodec: no JSON mapping for %s", md.TypeName)
}

func (d *jsonDecoder) wellKnown(md *MessageDescriptor, m *Message, v any, depth int) error {
	switch name := md.TypeName; {
	case isWrapper(name):
		return d.field(m, md.FieldByNumber(1), v, depth)

	case name == wktAny:
		return d.anyValue(md, m, v, depth)

	case name == wktTimestamp:
		s, ok := v.(string)
		if !ok {
			return &FieldError{Field: name, Err: jsonTypeError("string", v)}
		}
		secs, nanos, err := parseTimestamp(s)
		if err != nil {
			return &FieldError{Field: name, Err: err}
		}
		setSecondsNanos(md, m, secs, nanos)
		return nil

	case name == wktDuration:
		s, ok := v.(string)
		if !ok {
			return &FieldError{Field: name, Err: jsonTypeError("string", v)}
		}
		secs, nanos, err := parseDuration(s)
		if err != nil {
			return &FieldError{Field: name, Err: err}
		}
		setSecondsNanos(md, m, secs, nanos)
		return nil

	case name == wktStruct:
		if _, ok := v.(map[string]any); !ok {
			return &FieldError{Field: name, Err: jsonTypeError("object", v)}
		}
		return d.field(m, md.FieldByName("fields"), v, depth)

	case name == wktListValue:
		if _, ok := v.([]any); !ok {
			return &FieldError{Field: name, Err: jsonTypeError("array", v)}
		}
		return d.field(m, md.FieldByName("values"), v, depth)

	case name == wktValue:
		var fd *FieldDescriptor
		switch v.(type) {
		case nil:
			fd = md.FieldByName("null_value")
		case bool:
			fd = md.FieldByName("bool_value")
		case string:
			fd = md.FieldByName("string_value")
		case json.Number, float64:
			fd = md.FieldByName("number_value")
		case map[string]any:
			fd = md.FieldByName("struct_value")
		case []any:
			fd = md.FieldByName("list_value")
		default:
			return &FieldError{Field: name, Err: jsonTypeError("JSON value", v)}
		}
		val, err := d.elem(fd, v, depth)
		if err != nil {
			return wrapField(fd, "", err)
		}
		m.set(fd, val)
		return nil

	case name == wktFieldMask:
		s, ok := v.(string)
		if !ok {
			return &FieldError{Field: name, Err: jsonTypeError("string", v)}
		}
		fd := md.FieldByName("paths")
		l := &rawList{}
		if s != "" {
			for _, path := range strings.Split(s, ",") {
				snake, ok := snakeCase(path)
				if !ok {
					return fieldErrorf(fd, ErrFieldValueInvalid, "path %q is not lowerCamelCase", path)
				}
				l.items = append(l.items, snake)
			}
		}
		m.put(fd.LocalName, l)
		return nil

	case name == wktEmpty:
		obj, ok := v.(map[string]any)
		if !ok {
			return &FieldError{Field: name, Err: jsonTypeError("object", v)}
		}
		if len(obj) > 0 && !d.opts.ignoreUnknown {
			key := slices.Sorted(maps.Keys(obj))[0]
			return &FieldError{Field: name, Err: fmt.Errorf("key %q: %w", key, ErrUnknownJSONKey)}
		}
		return nil
	}
	return fmt.Errorf("pbcodec: no JSON mapping for %s", md.TypeName)
}

func secondsNanos(md *MessageDescriptor, m *Message) (int64, int32) {
	secs, _ := m.fields[md.FieldByNumber(1).LocalName].(int64)
	nanos, _ := m.fields[md.FieldByNumber(2).LocalName].(int32)
	return secs, nanos
}

func setSecondsNanos(md *MessageDescriptor, m *Message, secs int64, nanos int32) {
	m.put(md.FieldByNumber(1).LocalName, secs)
	m.put(md.FieldByNumber(2).LocalName, nanos)
}

// formatTimestamp writes a timestamp in RFC 3339 form, in UTC, with 0, 3, 6
// or 9 fractional digits.
func formatTimestamp(secs int64, nanos int32) (string, error) {
	if secs < minTimestamp || secs > maxTimestamp {
		return "", fmt.Errorf("seconds %d out of range: %w", secs, ErrFieldValueInvalid)
	}
	if nanos < 0 || nanos >= nanosPerSecond {
		return "", fmt.Errorf("nanos %d out of range: %w", nanos, ErrFieldValueInvalid)
	}
	t := time.Unix(secs, 0).UTC()
	return t.Format("2006-01-02T15:04:05") + fraction(nanos) + "Z", nil
}

// parseTimestamp parses an RFC 3339 timestamp with any UTC offset.
func parseTimestamp(s string) (int64, int32, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp %q: %w", s, ErrFieldValueInvalid)
	}
	// time.Parse accepts years of more than four digits when the layout
	// does not, and lowercase separators it should not.
	if len(s) < 20 || s[4] != '-' || s[10] != 'T' {
		return 0, 0, fmt.Errorf("invalid timestamp %q: %w", s, ErrFieldValueInvalid)
	}
	secs := t.Unix()
	if secs < minTimestamp || secs > maxTimestamp {
		return 0, 0, fmt.Errorf("timestamp %q out of range: %w", s, ErrFieldValueInvalid)
	}
	return secs, int32(t.Nanosecond()), nil
}

// formatDuration writes a duration as seconds with 0, 3, 6 or 9 fractional
// digits and an "s" suffix.
func formatDuration(secs int64, nanos int32) (string, error) {
	if secs < -maxDuration || secs > maxDuration {
		return "", fmt.Errorf("seconds %d out of range: %w", secs, ErrFieldValueInvalid)
	}
	if nanos <= -nanosPerSecond || nanos >= nanosPerSecond ||
		(secs > 0 && nanos < 0) || (secs < 0 && nanos > 0) {
		return "", fmt.Errorf("nanos %d out of range: %w", nanos, ErrFieldValueInvalid)
	}
	var b strings.Builder
	if secs < 0 || nanos < 0 {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatUint(absInt(secs), 10))
	b.WriteString(fraction(int32(absInt(int64(nanos)))))
	b.WriteByte('s')
	return b.String(), nil
}

func absInt(n int64) uint64 {
	if n < 0 {
		return uint64(-n)
	}
	return uint64(n)
}

// parseDuration parses the JSON form of a duration.
func parseDuration(s string) (int64, int32, error) {
	bad := fmt.Errorf("invalid duration %q: %w", s, ErrFieldValueInvalid)
	text, ok := strings.CutSuffix(s, "s")
	if !ok || text == "" {
		return 0, 0, bad
	}
	neg := false
	if text[0] == '-' {
		neg = true
		text = text[1:]
	}
	whole, frac, _ := strings.Cut(text, ".")
	if whole == "" || len(frac) > 9 || !digits(whole) || !digits(frac) {
		return 0, 0, bad
	}
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || secs > maxDuration {
		return 0, 0, fmt.Errorf("duration %q out of range: %w", s, ErrFieldValueInvalid)
	}
	var nanos int64
	if frac != "" {
		nanos, _ = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
	}
	if neg {
		secs, nanos = -secs, -nanos
	}
	return secs, int32(nanos), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// fraction formats nanoseconds as a fractional part of a second with 0, 3,
// 6 or 9 digits.
func fraction(nanos int32) string {
	switch {
	case nanos == 0:
		return ""
	case nanos%1_000_000 == 0:
		return fmt.Sprintf(".%03d", nanos/1_000_000)
	case nanos%1_000 == 0:
		return fmt.Sprintf(".%06d", nanos/1_000)
	}
	return fmt.Sprintf(".%09d", nanos)
}
