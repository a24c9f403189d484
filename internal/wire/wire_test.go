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

package wire_test

import (
	"math"
	"testing"

	"github.com/protocolbuffers/protoscope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nyuiela/sub0cre-sub000/internal/wire"
	"github.com/nyuiela/sub0cre-sub000/internal/xerrors"
)

func scope(t *testing.T, src string) []byte {
	t.Helper()
	b, err := protoscope.NewScanner(src).Exec()
	require.NoError(t, err)
	return b
}

func TestVarintRoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []uint64{0, 1, 127, 128, 300, math.MaxUint32, math.MaxUint64} {
		b := wire.NewWriter().Varint(v).Finish()
		assert.Len(t, b, protowire.SizeVarint(v))

		got, err := wire.NewReader(b).Varint()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestInt32SignExtension(t *testing.T) {
	t.Parallel()

	b := wire.NewWriter().Int32(-1).Finish()
	assert.Len(t, b, 10)

	got, err := wire.NewReader(b).Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), got)

	b = wire.NewWriter().Sint32(-1).Finish()
	assert.Equal(t, []byte{1}, b)
}

func TestFixedLittleEndian(t *testing.T) {
	t.Parallel()

	w := wire.NewWriter().Fixed32(0x01020304).Fixed64(0x0102030405060708).Float(1.5).Double(-2.25)
	b := w.Finish()
	assert.Equal(t, []byte{4, 3, 2, 1}, b[:4])
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b[4:12])

	r := wire.NewReader(b)
	f32, err := r.Fixed32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), f32)
	f64, err := r.Fixed64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), f64)
	fl, err := r.Float()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), fl)
	db, err := r.Double()
	require.NoError(t, err)
	assert.Equal(t, -2.25, db)
	assert.True(t, r.Done())
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		read func(*wire.Reader) error
		want error
	}{
		{
			name: "overlong varint",
			data: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
			read: func(r *wire.Reader) error { _, err := r.Varint(); return err },
			want: xerrors.InvalidVarint,
		},
		{
			name: "truncated varint",
			data: []byte{0x80, 0x80},
			read: func(r *wire.Reader) error { _, err := r.Varint(); return err },
			want: xerrors.PrematureEOF,
		},
		{
			name: "truncated fixed64",
			data: []byte{1, 2, 3},
			read: func(r *wire.Reader) error { _, err := r.Fixed64(); return err },
			want: xerrors.PrematureEOF,
		},
		{
			name: "truncated bytes",
			data: []byte{0x05, 'a', 'b'},
			read: func(r *wire.Reader) error { _, err := r.Bytes(); return err },
			want: xerrors.PrematureEOF,
		},
		{
			name: "field zero",
			data: []byte{0x00},
			read: func(r *wire.Reader) error { _, _, err := r.Tag(); return err },
			want: xerrors.IllegalTag,
		},
		{
			name: "wire type 6",
			data: []byte{0x0e},
			read: func(r *wire.Reader) error { _, _, err := r.Tag(); return err },
			want: xerrors.IllegalTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.read(wire.NewReader(tt.data))
			require.ErrorIs(t, err, tt.want)

			var werr *wire.Error
			require.ErrorAs(t, err, &werr)
			assert.GreaterOrEqual(t, werr.Offset(), 0)
		})
	}
}

func TestSkip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, src string
		size      int // Bytes expected to be returned by Skip.
		err       error
	}{
		{name: "varint", src: `1: 150`, size: 2},
		{name: "fixed32", src: `1: 5i32`, size: 4},
		{name: "fixed64", src: `1: 5i64`, size: 8},
		{name: "bytes", src: `1: {"hello"}`, size: 6},
		{name: "group", src: `1:SGROUP 2: 42 3: {"x"} 1:EGROUP`, size: 6},
		{name: "nested group", src: `1:SGROUP 2:SGROUP 2:EGROUP 1:EGROUP`, size: 3},
		{name: "mismatched end", src: `1:SGROUP 2: 42 3:EGROUP`, err: xerrors.InvalidEndGroup},
		{name: "unterminated group", src: `1:SGROUP 2: 42`, err: xerrors.PrematureEOF},
		{name: "bare end group", src: `1:EGROUP`, err: xerrors.InvalidEndGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := wire.NewReader(scope(t, tt.src))
			num, typ, err := r.Tag()
			require.NoError(t, err)

			raw, err := r.Skip(num, typ, 100)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, raw, tt.size)
			assert.True(t, r.Done())
		})
	}
}

func TestSkipDepth(t *testing.T) {
	t.Parallel()

	r := wire.NewReader(scope(t, `1:SGROUP 1:SGROUP 1:SGROUP 1:EGROUP 1:EGROUP 1:EGROUP`))
	num, typ, err := r.Tag()
	require.NoError(t, err)
	_, err = r.Skip(num, typ, 2)
	require.ErrorIs(t, err, xerrors.RecursionDepth)
}

func TestForkJoin(t *testing.T) {
	t.Parallel()

	w := wire.NewWriter()
	w.Tag(1, protowire.BytesType).Fork()
	w.Tag(2, protowire.VarintType).Varint(42)
	w.Tag(3, protowire.BytesType).Fork()
	w.Tag(4, protowire.BytesType).String("hi")
	w.Join()
	w.Join()
	w.Tag(5, protowire.VarintType).Bool(true)

	assert.Equal(t, scope(t, `1: {2: 42 3: {4: {"hi"}}} 5: 1`), w.Finish())

	// Reset drops unjoined frames too.
	w.Reset()
	w.Tag(1, protowire.BytesType).Fork().Varint(1)
	w.Reset()
	w.Tag(2, protowire.VarintType).Varint(7)
	assert.Equal(t, []byte{0x10, 0x07}, w.Finish())
}

func TestPushLimit(t *testing.T) {
	t.Parallel()

	r := wire.NewReader(scope(t, `1: {2: 42} 3: 7`))
	_, _, err := r.Tag()
	require.NoError(t, err)
	n, err := r.Length()
	require.NoError(t, err)

	old, err := r.PushLimit(n)
	require.NoError(t, err)
	num, _, err := r.Tag()
	require.NoError(t, err)
	assert.Equal(t, protowire.Number(2), num)
	v, err := r.Varint()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
	assert.True(t, r.Done())
	r.PopLimit(old)

	assert.False(t, r.Done())
	num, _, err = r.Tag()
	require.NoError(t, err)
	assert.Equal(t, protowire.Number(3), num)
}
