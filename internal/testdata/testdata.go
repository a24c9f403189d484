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

// Package testdata provides the test schemas and the test corpus, along
// with reference types for them built by the google.golang.org/protobuf
// runtime.
package testdata

import (
	"bytes"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/protocolbuffers/protoscope"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
	"gopkg.in/yaml.v3"

	pbcodec "github.com/nyuiela/sub0cre-sub000"

	_ "google.golang.org/protobuf/types/known/durationpb"
	_ "google.golang.org/protobuf/types/known/fieldmaskpb"
	_ "google.golang.org/protobuf/types/known/structpb"
	_ "google.golang.org/protobuf/types/known/timestamppb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
)

//go:embed *.yaml
var corpus embed.FS

// Harness is a generalization of [testing.TB] that also includes the
// [testing.T.Run] method. It must be generic because the signature of this
// function varies across [testing.T] and [testing.B].
type Harness[T any] interface {
	testing.TB
	Run(string, func(T)) bool
}

// TestCase is a test case from the test corpus.
type TestCase struct {
	Name string `yaml:"-"`

	TypeName string `yaml:"type"`
	Type     struct {
		Reference protoreflect.MessageType
		Codec     *pbcodec.MessageDescriptor
	} `yaml:"-"`

	// If set, every specimen is malformed and must be rejected.
	Invalid bool `yaml:"invalid"`
	// If set, skip the JSON round trips.
	SkipJSON bool `yaml:"skip_json"`

	// Three ways to encode the test: hex, textproto, and protoscope
	Hex        []string `yaml:"hex"`
	TextProto  []string `yaml:"textproto"`
	Protoscope []string `yaml:"protoscope"`

	Specimens [][]byte `yaml:"-"`
}

type schemas struct {
	types *protoregistry.Types
	codec *pbcodec.Registry
}

var loadSchemas = sync.OnceValues(func() (*schemas, error) {
	s := &schemas{
		types: new(protoregistry.Types),
		codec: pbcodec.NewRegistry(),
	}
	for _, fdp := range Files() {
		fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", fdp.GetName(), err)
		}
		if err := registerTypes(s.types, fd.Messages(), fd.Enums()); err != nil {
			return nil, err
		}

		data, err := proto.Marshal(fdp)
		if err != nil {
			return nil, err
		}
		if _, err := s.codec.AddFileBytes(data); err != nil {
			return nil, fmt.Errorf("loading %s: %w", fdp.GetName(), err)
		}
	}
	return s, nil
})

func registerTypes(types *protoregistry.Types, msgs protoreflect.MessageDescriptors, enums protoreflect.EnumDescriptors) error {
	for i := range enums.Len() {
		if err := types.RegisterEnum(dynamicpb.NewEnumType(enums.Get(i))); err != nil {
			return err
		}
	}
	for i := range msgs.Len() {
		md := msgs.Get(i)
		if md.IsMapEntry() {
			continue
		}
		if err := types.RegisterMessage(dynamicpb.NewMessageType(md)); err != nil {
			return err
		}
		if err := registerTypes(types, md.Messages(), md.Enums()); err != nil {
			return err
		}
	}
	return nil
}

// Types returns reference types for the test schemas. Extensions are not
// included.
func Types(t testing.TB) *protoregistry.Types {
	t.Helper()
	s, err := loadSchemas()
	require.NoError(t, err)
	return s.types
}

// Registry returns a registry with the test schemas loaded. It must not be
// modified.
func Registry(t testing.TB) *pbcodec.Registry {
	t.Helper()
	s, err := loadSchemas()
	require.NoError(t, err)
	return s.codec
}

// Message returns the descriptor of the test message with the given short
// name.
func Message(t testing.TB, name string) *pbcodec.MessageDescriptor {
	t.Helper()
	md, ok := Registry(t).Message(Package + "." + name)
	require.True(t, ok, "missing test message %q", name)
	return md
}

// RunAll runs all of the test cases against the given harness.
func RunAll[T Harness[T]](t T, f func(T, *TestCase)) {
	t.Helper()

	err := fs.WalkDir(corpus, ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err, "loading test %q", path)

		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		t.Run(strings.TrimSuffix(path, ".yaml"), func(t T) {
			if t, ok := any(t).(*testing.T); ok {
				t.Parallel()
			}

			data, err := fs.ReadFile(corpus, path)
			require.NoError(t, err, "loading test %q", path)

			f(t, parseTestCase(t, path, data))
		})

		return nil
	})
	require.NoError(t, err)
}

// parseTestCase parses a single test case from the given data.
//
// This will call t.FailNow() if loading fails.
func parseTestCase(t testing.TB, path string, file []byte) *TestCase {
	t.Helper()

	require.True(t, bytes.HasSuffix(file, []byte("\n")), "missing trailing newline in %q", path)

	test := new(TestCase)
	dec := yaml.NewDecoder(bytes.NewReader(file))
	dec.KnownFields(true)
	err := dec.Decode(&test)
	require.NoError(t, err, "loading test %q", path)

	test.Name = strings.TrimSuffix(path, ".yaml")
	test.Type.Reference, err = Types(t).FindMessageByName(protoreflect.FullName(test.TypeName))
	require.NoError(t, err, "loading type %q", test.TypeName)
	test.Type.Codec, _ = Registry(t).Message(test.TypeName)
	require.NotNil(t, test.Type.Codec, "loading type %q", test.TypeName)

	for _, raw := range test.Hex {
		r := strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "")
		b, err := hex.DecodeString(r.Replace(raw))
		require.NoError(t, err, "loading test %q", path)

		test.Specimens = append(test.Specimens, b)
	}

	for _, raw := range test.TextProto {
		m := test.Type.Reference.New().Interface()
		err = prototext.Unmarshal([]byte(raw), m)
		require.NoError(t, err, "loading test %q", path)

		b, err := proto.Marshal(m)
		require.NoError(t, err, "loading test %q", path)

		test.Specimens = append(test.Specimens, b)
	}

	for _, raw := range test.Protoscope {
		s := protoscope.NewScanner(raw)
		b, err := s.Exec()
		require.NoError(t, err, "loading test %q", path)

		test.Specimens = append(test.Specimens, b)
	}

	require.NotEmpty(t, test.Specimens, "test %q has no specimens", path)
	return test
}
