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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	pbcodec "github.com/nyuiela/sub0cre-sub000"
	"github.com/nyuiela/sub0cre-sub000/internal/testdata"
)

var (
	_ pbcodec.Encoder = (*pbcodec.Codec)(nil)
	_ pbcodec.Decoder = (*pbcodec.Codec)(nil)
)

func TestCodec(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	c := pbcodec.NewCodec(testdata.Registry(t),
		pbcodec.WithLogger(zap.New(core)),
		pbcodec.WithUnmarshalOptions(pbcodec.WithDiscardUnknown(true)),
		pbcodec.WithJSONOptions(pbcodec.WithProtoNames(true)),
	)
	assert.Same(t, testdata.Registry(t), c.Registry())

	md, err := c.Lookup(testdata.Package + ".Legacy")
	require.NoError(t, err)
	_, err = c.Lookup(testdata.Package + ".Missing")
	require.ErrorIs(t, err, pbcodec.ErrUnresolvedType)

	m, err := c.Unmarshal(md, scope(t, `1: 5 100: 9 999: 1`))
	require.NoError(t, err)
	assert.Empty(t, m.Unknown(), "unknown fields are discarded, extensions included")

	xd, ok := c.Registry().Extension(md.TypeName, 100)
	require.True(t, ok)
	require.NoError(t, pbcodec.SetExtension(m, xd, 9))
	require.NoError(t, pbcodec.Reflect(md, m).Set(field(t, md, "with_default"), 1))

	// JSON uses the codec's registry to find extensions.
	data, err := c.MarshalJSON(md, m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 5, "with_default": 1, "[pbcodec.test.v1.ext_int]": 9}`, string(data))
	back, err := c.UnmarshalJSON(md, data)
	require.NoError(t, err)
	assert.True(t, pbcodec.Equal(md, m, back))

	tree, err := c.ToJSON(md, m)
	require.NoError(t, err)
	back, err = c.FromJSON(md, tree)
	require.NoError(t, err)
	assert.True(t, pbcodec.Equal(md, m, back))

	data, err = c.Marshal(md, m)
	require.NoError(t, err)
	assert.Equal(t, scope(t, `1: 5 8: 1 100: 9`), data)
	assert.Zero(t, logs.Len(), "successful calls are not logged")

	// Failures are logged with the type, and where decoding stopped.
	_, err = c.Unmarshal(md, []byte{0x08, 0x01, 0x28, 0xff})
	require.ErrorIs(t, err, pbcodec.ErrPrematureEOF)
	_, err = c.UnmarshalJSON(md, []byte(`{"nope": 1}`))
	require.ErrorIs(t, err, pbcodec.ErrUnknownJSONKey)
	_, err = c.Marshal(testdata.Message(t, "Required"), pbcodec.NewMessage(testdata.Message(t, "Required")))
	require.ErrorIs(t, err, pbcodec.ErrRequiredFieldUnset)

	entries := logs.TakeAll()
	require.Len(t, entries, 3)
	assert.Equal(t, "unmarshal failed", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "pbcodec.test.v1.Legacy", fields["type"])
	assert.Equal(t, int64(4), fields["bytes"])
	assert.Contains(t, fields, "offset")
	assert.Contains(t, fields, "error")

	assert.Equal(t, "unmarshal json failed", entries[1].Message)
	assert.NotContains(t, entries[1].ContextMap(), "offset")
	assert.Equal(t, "marshal failed", entries[2].Message)
	assert.Equal(t, "pbcodec.test.v1.Required", entries[2].ContextMap()["type"])
}

func TestCodecDefaults(t *testing.T) {
	t.Parallel()

	c := pbcodec.NewCodec(nil)
	md, err := c.Lookup("google.protobuf.Duration")
	require.NoError(t, err)
	m, err := c.UnmarshalJSON(md, []byte(`"1.5s"`))
	require.NoError(t, err)
	data, err := c.MarshalJSON(md, m)
	require.NoError(t, err)
	assert.Equal(t, `"1.500s"`, string(data))
}
