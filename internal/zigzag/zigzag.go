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

package zigzag

import (
	"unsafe"

	"google.golang.org/protobuf/encoding/protowire"
)

// Signed is the set of signed integer widths that sint32 and sint64 fields
// use on the wire.
type Signed interface {
	~int32 | ~int64
}

// Encode zigzag-encodes a signed value of either width, mapping small
// magnitudes onto small unsigned values: (n << 1) ^ (n >> (bits-1)).
//
// The result is truncated to the width of T, so sint32 values never grow to
// ten bytes when written as a varint.
func Encode[T Signed](n T) uint64 {
	bits := unsafe.Sizeof(n) * 8
	raw := protowire.EncodeZigZag(int64(n))
	if bits == 64 {
		return raw
	}
	return raw & (1<<bits - 1)
}

// Decode decodes a zigzag-encoded value of any width.
//
// Calling protowire.DecodeZigZag directly does not work correctly when sign
// extension is involved, so the input is masked to the width of T first.
func Decode[T Signed](raw uint64) T {
	var z T
	bits := unsafe.Sizeof(z) * 8
	if bits < 64 {
		raw &= 1<<bits - 1
	}
	return T(protowire.DecodeZigZag(raw))
}
