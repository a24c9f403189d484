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

// Writer appends Protobuf wire data to a buffer.
//
// Nested length-delimited values are written between [Writer.Fork] and
// [Writer.Join]: Fork starts a fresh scratch buffer, and Join prefixes its
// contents with their length and splices them into the parent.
type Writer struct {
	buf   []byte
	stack [][]byte
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return new(Writer)
}

// Reset empties w, keeping its buffer for reuse.
func (w *Writer) Reset() {
	clear(w.stack)
	w.buf = w.buf[:0]
	w.stack = w.stack[:0]
}

// Finish returns the written bytes. Panics if a fork has not been joined.
func (w *Writer) Finish() []byte {
	if len(w.stack) != 0 {
		panic("pbcodec: Finish called with unjoined fork")
	}
	return w.buf
}

// Len returns the size of the current frame.
func (w *Writer) Len() int { return len(w.buf) }

// Fork begins a new length-delimited frame.
func (w *Writer) Fork() *Writer {
	w.stack = append(w.stack, w.buf)
	w.buf = nil
	return w
}

// Join ends the innermost frame started by [Writer.Fork], writing it to its
// parent as a length-delimited value.
func (w *Writer) Join() *Writer {
	chunk := w.buf
	w.buf = w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.buf = protowire.AppendVarint(w.buf, uint64(len(chunk)))
	w.buf = append(w.buf, chunk...)
	return w
}

// Tag writes a field tag.
func (w *Writer) Tag(num protowire.Number, typ protowire.Type) *Writer {
	w.buf = protowire.AppendTag(w.buf, num, typ)
	return w
}

// Raw appends bytes verbatim.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Varint writes a raw varint.
func (w *Writer) Varint(v uint64) *Writer {
	w.buf = protowire.AppendVarint(w.buf, v)
	return w
}

// Int32 writes an int32 as a varint. Negative values are sign-extended to
// 64 bits and always take ten bytes.
func (w *Writer) Int32(v int32) *Writer {
	return w.Varint(uint64(int64(v)))
}

// Int64 writes an int64 as a varint.
func (w *Writer) Int64(v int64) *Writer {
	return w.Varint(uint64(v))
}

// Uint32 writes a uint32 as a varint.
func (w *Writer) Uint32(v uint32) *Writer {
	return w.Varint(uint64(v))
}

// Uint64 writes a uint64 as a varint.
func (w *Writer) Uint64(v uint64) *Writer {
	return w.Varint(v)
}

// Sint32 writes a zigzag-encoded sint32.
func (w *Writer) Sint32(v int32) *Writer {
	return w.Varint(zigzag.Encode(v))
}

// Sint64 writes a zigzag-encoded sint64.
func (w *Writer) Sint64(v int64) *Writer {
	return w.Varint(zigzag.Encode(v))
}

// Bool writes a bool as a one-byte varint.
func (w *Writer) Bool(v bool) *Writer {
	return w.Varint(protowire.EncodeBool(v))
}

// Fixed32 writes four little-endian bytes.
func (w *Writer) Fixed32(v uint32) *Writer {
	w.buf = protowire.AppendFixed32(w.buf, v)
	return w
}

// Fixed64 writes eight little-endian bytes.
func (w *Writer) Fixed64(v uint64) *Writer {
	w.buf = protowire.AppendFixed64(w.buf, v)
	return w
}

// Sfixed32 writes a signed fixed32.
func (w *Writer) Sfixed32(v int32) *Writer {
	return w.Fixed32(uint32(v))
}

// Sfixed64 writes a signed fixed64.
func (w *Writer) Sfixed64(v int64) *Writer {
	return w.Fixed64(uint64(v))
}

// Float writes an IEEE 754 single.
func (w *Writer) Float(v float32) *Writer {
	return w.Fixed32(math.Float32bits(v))
}

// Double writes an IEEE 754 double.
func (w *Writer) Double(v float64) *Writer {
	return w.Fixed64(math.Float64bits(v))
}

// Bytes writes a length-delimited byte string.
func (w *Writer) Bytes(b []byte) *Writer {
	w.buf = protowire.AppendBytes(w.buf, b)
	return w
}

// String writes a length-delimited string.
func (w *Writer) String(s string) *Writer {
	w.buf = protowire.AppendString(w.buf, s)
	return w
}
