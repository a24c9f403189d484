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

package pbcodec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbcodec "github.com/nyuiela/sub0cre-sub000"
	"github.com/nyuiela/sub0cre-sub000/internal/testdata"
)

func wkt(t *testing.T, name string) *pbcodec.MessageDescriptor {
	t.Helper()
	md, ok := pbcodec.NewRegistry().Message("google.protobuf." + name)
	require.True(t, ok, "missing %s", name)
	return md
}

func TestTimestampJSON(t *testing.T) {
	t.Parallel()

	md := wkt(t, "Timestamp")
	tests := []struct {
		json  string
		secs  int64
		nanos int32
		// Canonical form, if different.
		canonical string
		bad       bool
	}{
		{json: `"1970-01-01T00:00:00Z"`},
		{json: `"0001-01-01T00:00:00Z"`, secs: -62135596800},
		{json: `"9999-12-31T23:59:59.999999999Z"`, secs: 253402300799, nanos: 999999999},
		{json: `"2023-11-14T22:13:20.123Z"`, secs: 1700000000, nanos: 123000000},
		{json: `"2023-11-14T22:13:20.000001Z"`, secs: 1700000000, nanos: 1000},
		{json: `"2023-11-14T22:13:20.1Z"`, secs: 1700000000, nanos: 100000000, canonical: `"2023-11-14T22:13:20.100Z"`},
		{json: `"1970-01-01T01:00:00+01:00"`, canonical: `"1970-01-01T00:00:00Z"`},
		{json: `"0000-12-31T23:59:59Z"`, bad: true},
		{json: `"10000-01-01T00:00:00Z"`, bad: true},
		{json: `"1970-01-01 00:00:00Z"`, bad: true},
		{json: `"1970-01-01T00:00:00"`, bad: true},
		{json: `0`, bad: true},
	}

	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			t.Parallel()
			m, err := pbcodec.UnmarshalJSON(md, []byte(tt.json))
			if tt.bad {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			r := pbcodec.Reflect(md, m)
			assert.Equal(t, tt.secs, r.Get(field(t, md, "seconds")))
			assert.Equal(t, tt.nanos, r.Get(field(t, md, "nanos")))

			want := tt.canonical
			if want == "" {
				want = tt.json
			}
			assert.Equal(t, want, marshalJSON(t, md, m))
		})
	}

	// Out of range values cannot be written.
	m := mustSet(t, md, "seconds", int64(-62135596801))
	_, err := pbcodec.MarshalJSON(md, m)
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)
	m = mustSet(t, md, "nanos", int32(-1))
	_, err = pbcodec.MarshalJSON(md, m)
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)
}

func TestDurationJSON(t *testing.T) {
	t.Parallel()

	md := wkt(t, "Duration")
	tests := []struct {
		json      string
		secs      int64
		nanos     int32
		canonical string
		bad       bool
	}{
		{json: `"0s"`},
		{json: `"1.5s"`, secs: 1, nanos: 500000000, canonical: `"1.500s"`},
		{json: `"-0.5s"`, nanos: -500000000, canonical: `"-0.500s"`},
		{json: `"-1.000000001s"`, secs: -1, nanos: -1},
		{json: `"315576000000.999999999s"`, secs: 315576000000, nanos: 999999999},
		{json: `"-315576000000s"`, secs: -315576000000},
		{json: `"315576000001s"`, bad: true},
		{json: `"1.0000000001s"`, bad: true},
		{json: `"1"`, bad: true},
		{json: `"s"`, bad: true},
		{json: `"+1s"`, bad: true},
		{json: `"1e3s"`, bad: true},
	}

	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			t.Parallel()
			m, err := pbcodec.UnmarshalJSON(md, []byte(tt.json))
			if tt.bad {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			r := pbcodec.Reflect(md, m)
			assert.Equal(t, tt.secs, r.Get(field(t, md, "seconds")))
			assert.Equal(t, tt.nanos, r.Get(field(t, md, "nanos")))

			want := tt.canonical
			if want == "" {
				want = tt.json
			}
			assert.Equal(t, want, marshalJSON(t, md, m))
		})
	}

	// Mixed signs cannot be written.
	m := mustSet(t, md, "seconds", int64(1), "nanos", int32(-1))
	_, err := pbcodec.MarshalJSON(md, m)
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)
}

func TestTimeConversions(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, 2, 29, 12, 30, 0, 250, time.UTC)
	ts, err := pbcodec.TimestampFromTime(when)
	require.NoError(t, err)
	got, err := pbcodec.TimestampToTime(ts)
	require.NoError(t, err)
	assert.True(t, when.Equal(got))

	_, err = pbcodec.TimestampFromTime(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)

	d, err := pbcodec.DurationFromTime(-1500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, `"-1.500s"`, marshalJSON(t, wkt(t, "Duration"), d))
	back, err := pbcodec.DurationToTime(d)
	require.NoError(t, err)
	assert.Equal(t, -1500*time.Millisecond, back)

	// Durations longer than time.Duration can hold are clamped.
	long, err := pbcodec.UnmarshalJSON(wkt(t, "Duration"), []byte(`"315576000000s"`))
	require.NoError(t, err)
	back, err = pbcodec.DurationToTime(long)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(1<<63-1), back)

	_, err = pbcodec.TimestampToTime(d)
	require.ErrorIs(t, err, pbcodec.ErrForeignField)
}

func TestWrappersJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, json string
	}{
		{"BoolValue", `true`},
		{"Int32Value", `-5`},
		{"Int64Value", `"-5"`},
		{"UInt64Value", `"18446744073709551615"`},
		{"FloatValue", `1.5`},
		{"DoubleValue", `"NaN"`},
		{"StringValue", `"s"`},
		{"BytesValue", `"AQID"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			md := wkt(t, tt.name)
			m, err := pbcodec.UnmarshalJSON(md, []byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.json, marshalJSON(t, md, m))
		})
	}

	// A wrapper holding the zero value is still present in its parent.
	nested := testdata.Message(t, "Nested")
	m, err := pbcodec.UnmarshalJSON(nested, []byte(`{"wrapped": 0}`))
	require.NoError(t, err)
	assert.Equal(t, `{"wrapped":0}`, marshalJSON(t, nested, m))
	data, err := pbcodec.Marshal(nested, m)
	require.NoError(t, err)
	assert.Equal(t, scope(t, `7: {}`), data)
}

func TestStructJSON(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "Nested")
	in := `{"meta":{"list":[1,"two",null,true,{"deep":{}}],"n":-2.5},"value":["x",{}]}`
	m, err := pbcodec.UnmarshalJSON(md, []byte(in))
	require.NoError(t, err)
	assert.JSONEq(t, in, marshalJSON(t, md, m))

	// Values must be JSON numbers.
	value := wkt(t, "Value")
	v, err := pbcodec.UnmarshalJSON(value, []byte(`"NaN"`))
	require.NoError(t, err)
	r := pbcodec.Reflect(value, v)
	require.NoError(t, r.Set(field(t, value, "number_value"), 1.0/zero()))
	_, err = pbcodec.MarshalJSON(value, v)
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)

	// A Value with no kind set has no JSON form.
	_, err = pbcodec.MarshalJSON(value, pbcodec.NewMessage(value))
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)

	_, err = pbcodec.UnmarshalJSON(wkt(t, "Struct"), []byte(`[]`))
	require.Error(t, err)
	_, err = pbcodec.UnmarshalJSON(wkt(t, "ListValue"), []byte(`{}`))
	require.Error(t, err)
}

func zero() float64 { return 0 }

func TestFieldMaskJSON(t *testing.T) {
	t.Parallel()

	md := wkt(t, "FieldMask")
	m, err := pbcodec.UnmarshalJSON(md, []byte(`"fooBar,baz.quxQuux,a"`))
	require.NoError(t, err)

	paths := pbcodec.Reflect(md, m).GetList(field(t, md, "paths"))
	var got []any
	for _, v := range paths.All() {
		got = append(got, v)
	}
	assert.Equal(t, []any{"foo_bar", "baz.qux_quux", "a"}, got)
	assert.Equal(t, `"fooBar,baz.quxQuux,a"`, marshalJSON(t, md, m))

	m, err = pbcodec.UnmarshalJSON(md, []byte(`""`))
	require.NoError(t, err)
	assert.Equal(t, `""`, marshalJSON(t, md, m))

	_, err = pbcodec.UnmarshalJSON(md, []byte(`"foo_bar"`))
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)

	// Paths that do not round trip through lowerCamelCase cannot be written.
	m = mustSet(t, md, "paths", []any{"fooBar"})
	_, err = pbcodec.MarshalJSON(md, m)
	require.ErrorIs(t, err, pbcodec.ErrFieldValueInvalid)
}

func TestEmptyJSON(t *testing.T) {
	t.Parallel()

	md := wkt(t, "Empty")
	m, err := pbcodec.UnmarshalJSON(md, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, `{}`, marshalJSON(t, md, m))

	_, err = pbcodec.UnmarshalJSON(md, []byte(`{"x": 1}`))
	require.ErrorIs(t, err, pbcodec.ErrUnknownJSONKey)
}

func TestAnyJSON(t *testing.T) {
	t.Parallel()

	r := testdata.Registry(t)
	anyMD, ok := r.Message("google.protobuf.Any")
	require.True(t, ok)
	scalars := testdata.Message(t, "Scalars")

	inner := mustSet(t, scalars, "f_int32", int32(5), "f_int64", int64(6))
	packed, err := pbcodec.AnyPack(scalars, inner)
	require.NoError(t, err)
	assert.True(t, pbcodec.AnyIs(packed, scalars))
	assert.False(t, pbcodec.AnyIs(packed, testdata.Message(t, "Nested")))

	opts := []pbcodec.JSONOption{pbcodec.WithRegistry(r)}
	text := marshalJSON(t, anyMD, packed, opts...)
	assert.JSONEq(t, `{
		"@type": "type.googleapis.com/pbcodec.test.v1.Scalars",
		"fInt32": 5,
		"fInt64": "6"
	}`, text)

	back, err := pbcodec.UnmarshalJSON(anyMD, []byte(text), opts...)
	require.NoError(t, err)
	md, unpacked, err := pbcodec.AnyUnpack(r, back)
	require.NoError(t, err)
	assert.Same(t, scalars, md)
	assert.True(t, pbcodec.Equal(scalars, inner, unpacked))
	assert.True(t, pbcodec.Equal(anyMD, packed, back))

	// Types with their own JSON form go under "value".
	ts, err := pbcodec.TimestampFromTime(time.Unix(1, 0))
	require.NoError(t, err)
	packed, err = pbcodec.AnyPack(wkt(t, "Timestamp"), ts)
	require.NoError(t, err)
	text = marshalJSON(t, anyMD, packed)
	assert.JSONEq(t, `{
		"@type": "type.googleapis.com/google.protobuf.Timestamp",
		"value": "1970-01-01T00:00:01Z"
	}`, text)
	back, err = pbcodec.UnmarshalJSON(anyMD, []byte(text))
	require.NoError(t, err)
	assert.True(t, pbcodec.Equal(anyMD, packed, back))

	// So does every other google.protobuf message, even one whose JSON form
	// is an ordinary object.
	oneof := wkt(t, "OneofDescriptorProto")
	inner = mustSet(t, oneof, "name", "x")
	packed, err = pbcodec.AnyPack(oneof, inner)
	require.NoError(t, err)
	text = marshalJSON(t, anyMD, packed)
	assert.JSONEq(t, `{
		"@type": "type.googleapis.com/google.protobuf.OneofDescriptorProto",
		"value": {"name": "x"}
	}`, text)
	back, err = pbcodec.UnmarshalJSON(anyMD, []byte(text))
	require.NoError(t, err)
	assert.True(t, pbcodec.Equal(anyMD, packed, back))
	md, unpacked, err = pbcodec.AnyUnpack(pbcodec.NewRegistry(), back)
	require.NoError(t, err)
	assert.Equal(t, "google.protobuf.OneofDescriptorProto", md.TypeName)
	assert.Equal(t, "x", pbcodec.Reflect(md, unpacked).Get(md.FieldByName("name")))
	_, err = pbcodec.UnmarshalJSON(anyMD, []byte(`{
		"@type": "type.googleapis.com/google.protobuf.OneofDescriptorProto",
		"name": "x"
	}`))
	require.ErrorIs(t, err, pbcodec.ErrUnknownJSONKey)

	// Without the test registry, the packed type cannot be resolved.
	_, err = pbcodec.UnmarshalJSON(anyMD, []byte(`{"@type": "type.googleapis.com/pbcodec.test.v1.Scalars"}`))
	require.ErrorIs(t, err, pbcodec.ErrUnresolvedType)
	_, err = pbcodec.UnmarshalJSON(anyMD, []byte(`{"fInt32": 1}`), opts...)
	require.ErrorIs(t, err, pbcodec.ErrInvalidJSON)

	assert.Equal(t, `{}`, marshalJSON(t, anyMD, pbcodec.NewMessage(anyMD)))
}
