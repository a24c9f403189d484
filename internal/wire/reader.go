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

package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nyuiela/sub0cre-sub000/internal/zigzag"
)

// Reader consumes Protobuf wire data from a byte slice.
//
// Nested length-delimited frames are handled by narrowing the readable window
// with [Reader.PushLimit] rather than slicing, so that error offsets are
// always relative to the start of the original input.
type Reader struct {
	buf   []byte
	pos   int
	limit int
}

// NewReader returns a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data, limit: len(data)}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of bytes left before the current limit.
func (r *Reader) Len() int { return r.limit - r.pos }

// Done returns whether the current frame has been consumed.
func (r *Reader) Done() bool { return r.pos >= r.limit }

// PushLimit restricts reading to the next n bytes and returns the previous
// limit, which must later be passed to [Reader.PopLimit].
func (r *Reader) PushLimit(n int) (int, error) {
	if n < 0 || n > r.Len() {
		return 0, NewError(CodeTruncated, r.pos)
	}
	old := r.limit
	r.limit = r.pos + n
	return old, nil
}

// PopLimit restores a limit returned by [Reader.PushLimit].
func (r *Reader) PopLimit(old int) {
	r.limit = old
}

// Slice returns the input between two offsets. The result aliases the input.
func (r *Reader) Slice(start, end int) []byte {
	return r.buf[start:end:end]
}

func (r *Reader) rest() []byte {
	return r.buf[r.pos:r.limit]
}

func (r *Reader) fail(n int) error {
	return NewError(codeOf(n), r.pos)
}

// Tag reads a field tag.
func (r *Reader) Tag() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(r.rest())
	if n < 0 {
		return 0, 0, r.fail(n)
	}
	if typ > protowire.Fixed32Type {
		return 0, 0, NewError(CodeReserved, r.pos)
	}
	r.pos += n
	return num, typ, nil
}

// Varint reads a raw varint of up to ten bytes.
func (r *Reader) Varint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.rest())
	if n < 0 {
		return 0, r.fail(n)
	}
	r.pos += n
	return v, nil
}

// Int32 reads an int32 varint; negative values occupy ten bytes on the wire.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Varint()
	return int32(v), err
}

// Int64 reads an int64 varint.
func (r *Reader) Int64() (int64, error) {
	v, err := r.Varint()
	return int64(v), err
}

// Uint32 reads a uint32 varint.
func (r *Reader) Uint32() (uint32, error) {
	v, err := r.Varint()
	return uint32(v), err
}

// Uint64 reads a uint64 varint.
func (r *Reader) Uint64() (uint64, error) {
	return r.Varint()
}

// Sint32 reads a zigzag-encoded sint32.
func (r *Reader) Sint32() (int32, error) {
	v, err := r.Varint()
	return zigzag.Decode[int32](v), err
}

// Sint64 reads a zigzag-encoded sint64.
func (r *Reader) Sint64() (int64, error) {
	v, err := r.Varint()
	return zigzag.Decode[int64](v), err
}

// Bool reads a varint and reports whether it is non-zero.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Varint()
	return v != 0, err
}

// Fixed32 reads four little-endian bytes.
func (r *Reader) Fixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(r.rest())
	if n < 0 {
		return 0, r.fail(n)
	}
	r.pos += n
	return v, nil
}

// Fixed64 reads eight little-endian bytes.
func (r *Reader) Fixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(r.rest())
	if n < 0 {
		return 0, r.fail(n)
	}
	r.pos += n
	return v, nil
}

// Sfixed32 reads a signed fixed32.
func (r *Reader) Sfixed32() (int32, error) {
	v, err := r.Fixed32()
	return int32(v), err
}

// Sfixed64 reads a signed fixed64.
func (r *Reader) Sfixed64() (int64, error) {
	v, err := r.Fixed64()
	return int64(v), err
}

// Float reads an IEEE 754 single.
func (r *Reader) Float() (float32, error) {
	v, err := r.Fixed32()
	return math.Float32frombits(v), err
}

// Double reads an IEEE 754 double.
func (r *Reader) Double() (float64, error) {
	v, err := r.Fixed64()
	return math.Float64frombits(v), err
}

// Length reads the length prefix of a length-delimited value and checks it
// against the remaining input.
func (r *Reader) Length() (int, error) {
	start := r.pos
	v, err := r.Varint()
	if err != nil {
		return 0, err
	}
	if v > uint64(r.Len()) {
		return 0, NewError(CodeTruncated, start)
	}
	return int(v), nil
}

// Bytes reads a length-delimited value. The result aliases the input.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Length()
	if err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip consumes the value of a field whose tag has just been read, and
// returns exactly the bytes that made up that value.
//
// For groups, this includes every nested field and the terminating end-group
// tag, whose field number must match num.
func (r *Reader) Skip(num protowire.Number, typ protowire.Type, depth int) ([]byte, error) {
	start := r.pos
	switch typ {
	case protowire.VarintType:
		if _, err := r.Varint(); err != nil {
			return nil, err
		}
	case protowire.Fixed32Type:
		if _, err := r.Fixed32(); err != nil {
			return nil, err
		}
	case protowire.Fixed64Type:
		if _, err := r.Fixed64(); err != nil {
			return nil, err
		}
	case protowire.BytesType:
		if _, err := r.Bytes(); err != nil {
			return nil, err
		}
	case protowire.StartGroupType:
		if depth <= 0 {
			return nil, NewError(CodeRecursionDepth, start)
		}
		for {
			if r.Done() {
				return nil, NewError(CodeTruncated, r.pos)
			}
			at := r.pos
			n, t, err := r.Tag()
			if err != nil {
				return nil, err
			}
			if t == protowire.EndGroupType {
				if n != num {
					return nil, NewError(CodeEndGroup, at)
				}
				break
			}
			if _, err := r.Skip(n, t, depth-1); err != nil {
				return nil, err
			}
		}
	case protowire.EndGroupType:
		return nil, NewError(CodeEndGroup, start)
	default:
		return nil, NewError(CodeReserved, start)
	}
	return r.buf[start:r.pos:r.pos], nil
}
