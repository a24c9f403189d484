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

	"github.com/protocolbuffers/protoscope"
	"github.com/stretchr/testify/require"

	pbcodec "github.com/nyuiela/sub0cre-sub000"
	"github.com/nyuiela/sub0cre-sub000/internal/testdata"
)

// scope assembles Protoscope source.
func scope(t testing.TB, src string) []byte {
	t.Helper()
	b, err := protoscope.NewScanner(src).Exec()
	require.NoError(t, err, "bad protoscope %q", src)
	return b
}

// decode parses Protoscope source as a message of the named test type.
func decode(t testing.TB, name, src string) (*pbcodec.MessageDescriptor, *pbcodec.Message) {
	t.Helper()
	md := testdata.Message(t, name)
	m, err := pbcodec.Unmarshal(md, scope(t, src))
	require.NoError(t, err)
	return md, m
}

// field looks up a field by proto name, failing the test if it is missing.
func field(t testing.TB, md *pbcodec.MessageDescriptor, name string) *pbcodec.FieldDescriptor {
	t.Helper()
	fd := md.FieldByName(name)
	require.NotNil(t, fd, "%s has no field %q", md.TypeName, name)
	return fd
}

// mustSet sets the named fields on a new message.
func mustSet(t testing.TB, md *pbcodec.MessageDescriptor, kv ...any) *pbcodec.Message {
	t.Helper()
	require.Zero(t, len(kv)%2)
	m := pbcodec.NewMessage(md)
	r := pbcodec.Reflect(md, m)
	for i := 0; i < len(kv); i += 2 {
		name, _ := kv[i].(string)
		require.NoError(t, r.Set(field(t, md, name), kv[i+1]), "setting %s", name)
	}
	return m
}
