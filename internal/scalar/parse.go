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
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"
)

var errSyntax = errors.New("invalid syntax")

// ParseInt parses a signed decimal integer of the given bit size.
//
// Exponent notation is accepted as long as the value it denotes is an exact
// integer, which is how JSON producers sometimes spell large numbers.
func ParseInt(s string, bits int) (int64, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	if err == nil {
		return n, nil
	}
	if !strings.ContainsAny(s, ".eE") {
		return 0, err
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, errSyntax
	}
	lo, hi := -math.Ldexp(1, bits-1), math.Ldexp(1, bits-1)
	if f < lo || f >= hi {
		return 0, strconv.ErrRange
	}
	return int64(f), nil
}

// ParseUint parses an unsigned decimal integer of the given bit size.
func ParseUint(s string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, bits)
	if err == nil {
		return n, nil
	}
	if !strings.ContainsAny(s, ".eE") {
		return 0, err
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, errSyntax
	}
	if f < 0 || f >= math.Ldexp(1, bits) {
		return 0, strconv.ErrRange
	}
	return uint64(f), nil
}

// ParseMapKey parses the string form of a map key, as used by JSON object
// keys, into the storage representation of t.
func ParseMapKey(t Type, s string) (any, error) {
	switch t {
	case String:
		return s, nil
	case Bool:
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, errorf("invalid %v map key: %q", t, s)
	case Int32, Sint32, Sfixed32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, errorf("invalid %v map key: %q", t, s)
		}
		return int32(n), nil
	case Uint32, Fixed32:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, errorf("invalid %v map key: %q", t, s)
		}
		return uint32(n), nil
	case Int64, Sint64, Sfixed64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errorf("invalid %v map key: %q", t, s)
		}
		return n, nil
	case Uint64, Fixed64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errorf("invalid %v map key: %q", t, s)
		}
		return n, nil
	}
	return nil, errorf("invalid map key type: %v", t)
}

// FormatMapKey renders a map key in storage representation as a string.
func FormatMapKey(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case bool:
		return strconv.FormatBool(k)
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint32:
		return strconv.FormatUint(uint64(k), 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	}
	return ""
}

// CheckMapKey converts a key into the storage representation of t. Besides
// the inputs accepted by [Check], string forms are parsed for non-string key
// types.
func CheckMapKey(t Type, k any) (any, error) {
	if s, ok := k.(string); ok && t != String {
		return ParseMapKey(t, s)
	}
	return Check(t, k, true)
}

// ParseDefault parses the textual default value that protoc records for a
// proto2 field.
func ParseDefault(t Type, s string) (any, error) {
	switch t {
	case String:
		return s, nil
	case Bytes:
		return Unescape(s)
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errorf("invalid %v default: %q", t, s)
		}
		return b, nil
	case Float, Double:
		var f float64
		switch s {
		case "inf":
			f = math.Inf(1)
		case "-inf":
			f = math.Inf(-1)
		case "nan":
			f = math.NaN()
		default:
			var err error
			if f, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, errorf("invalid %v default: %q", t, s)
			}
		}
		if t == Float {
			return float32(f), nil
		}
		return f, nil
	}

	var (
		v   any
		err error
	)
	if t.Signed() {
		v, err = strconv.ParseInt(s, 0, 64)
	} else {
		v, err = strconv.ParseUint(s, 0, 64)
	}
	if err != nil {
		return nil, errorf("invalid %v default: %q", t, s)
	}
	return Check(t, v, false)
}

// Unescape decodes the C-style escapes protoc uses for bytes defaults.
func Unescape(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i == len(s) {
			return nil, errorf("invalid escape sequence in %q", s)
		}
		switch c = s[i]; c {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'v':
			out = append(out, '\v')
		case '\\', '\'', '"', '?':
			out = append(out, c)
		case 'x', 'X':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				return nil, errorf("invalid escape sequence in %q", s)
			}
			n, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			out = append(out, byte(n))
			i = j - 1
		default:
			if c < '0' || c > '7' {
				return nil, errorf("invalid escape sequence in %q", s)
			}
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, err := strconv.ParseUint(s[i:j], 8, 16)
			if err != nil || n > 0xff {
				return nil, errorf("invalid escape sequence in %q", s)
			}
			out = append(out, byte(n))
			i = j - 1
		}
	}
	return out, nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// EncodeBase64 renders b with the standard, padded base64 alphabet.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 accepts both the standard and URL-safe alphabets, with or
// without padding.
func DecodeBase64(s string) ([]byte, error) {
	enc := base64.RawStdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.RawURLEncoding
	}
	b, err := enc.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, errorf("invalid base64: %v", err)
	}
	return b, nil
}
