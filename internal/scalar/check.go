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

package scalar

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/nyuiela/sub0cre-sub000/internal/xerrors"
)

// Error describes a value rejected by [Check].
type Error struct {
	Msg string
	err error
}

// Error implements [error].
func (e *Error) Error() string { return e.Msg }

// Unwrap implements error unwrapping viz [errors.Unwrap].
func (e *Error) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return xerrors.FieldValueInvalid
}

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Check validates v as a value of t and converts it into the storage
// representation of t.
//
// Integer types accept any Go integer within range; the 64-bit types also
// accept decimal strings. Floating-point types accept any Go number, but a
// finite value that overflows float32 is rejected for float fields.
// Strings must be valid UTF-8 when validateUTF8 is set.
func Check(t Type, v any, validateUTF8 bool) (any, error) {
	switch t {
	case Int32, Sint32, Sfixed32:
		n, err := toSigned(t, v, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case Uint32, Fixed32:
		n, err := toUnsigned(t, v, math.MaxUint32)
		return uint32(n), err
	case Int64, Sint64, Sfixed64:
		return toSigned(t, v, math.MinInt64, math.MaxInt64)
	case Uint64, Fixed64:
		return toUnsigned(t, v, math.MaxUint64)

	case Float:
		f, ok := toFloat(v)
		if !ok {
			return nil, errorf("expected %v, got %T", t, v)
		}
		if !math.IsInf(f, 0) && math.IsInf(float64(float32(f)), 0) {
			return nil, errorf("%v out of range: %v", t, f)
		}
		return float32(f), nil
	case Double:
		f, ok := toFloat(v)
		if !ok {
			return nil, errorf("expected %v, got %T", t, v)
		}
		return f, nil

	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, errorf("expected %v, got %T", t, v)
		}
		return b, nil
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, errorf("expected %v, got %T", t, v)
		}
		if validateUTF8 && !utf8.ValidString(s) {
			return nil, &Error{Msg: "invalid UTF-8 in string", err: xerrors.InvalidUTF8}
		}
		return s, nil
	case Bytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case nil:
			return []byte{}, nil
		}
		return nil, errorf("expected %v, got %T", t, v)
	}
	return nil, errorf("not a scalar type: %v", t)
}

func toSigned(t Type, v any, lo, hi int64) (int64, error) {
	var n int64
	switch v := v.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, errorf("%v out of range: %v", t, v)
		}
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, errorf("%v out of range: %v", t, v)
		}
		n = int64(v)
	case string:
		if !t.Is64() {
			return 0, errorf("expected %v, got %T", t, v)
		}
		parsed, err := ParseInt(v, 64)
		if err != nil {
			return 0, errorf("invalid %v: %q", t, v)
		}
		n = parsed
	default:
		return 0, errorf("expected %v, got %T", t, v)
	}
	if n < lo || n > hi {
		return 0, errorf("%v out of range: %d", t, n)
	}
	return n, nil
}

func toUnsigned(t Type, v any, hi uint64) (uint64, error) {
	var n uint64
	switch v := v.(type) {
	case int, int8, int16, int32, int64:
		s, _ := toSigned(Int64, v, math.MinInt64, math.MaxInt64)
		if s < 0 {
			return 0, errorf("%v out of range: %d", t, s)
		}
		n = uint64(s)
	case uint:
		n = uint64(v)
	case uint8:
		n = uint64(v)
	case uint16:
		n = uint64(v)
	case uint32:
		n = uint64(v)
	case uint64:
		n = v
	case string:
		if !t.Is64() {
			return 0, errorf("expected %v, got %T", t, v)
		}
		parsed, err := ParseUint(v, 64)
		if err != nil {
			return 0, errorf("invalid %v: %q", t, v)
		}
		n = parsed
	default:
		return 0, errorf("expected %v, got %T", t, v)
	}
	if n > hi {
		return 0, errorf("%v out of range: %d", t, n)
	}
	return n, nil
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
