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

// Package pbcodec is a schema-driven Protobuf codec for dynamic messages.
//
// Schemas are loaded into a [Registry] from google.protobuf.FileDescriptorProto
// messages, in binary or base64 form, or as a whole FileDescriptorSet. Every
// registry already knows descriptor.proto and the well-known types. The
// resulting descriptors drive everything else:
//
//   - [Unmarshal] and [Marshal] convert between the binary wire format and
//     [Message] values.
//   - [ToJSON], [FromJSON], [MarshalJSON] and [UnmarshalJSON] do the same for
//     the canonical JSON mapping, including the well-known types.
//   - [Reflect] inspects and mutates a message field by field.
//
// # Presence
//
// Whether a field is set follows the rules of the file's edition: proto2 and
// edition 2023 fields track presence explicitly, proto3 fields only do so
// when declared optional or inside a oneof, and members of a oneof exclude
// one another.
//
// # Unknown fields
//
// Fields that a message's descriptor does not describe, and values of
// closed enums that are not declared, are kept as [UnknownField] records and
// written back out unchanged. Extensions live there too, and are read with
// [GetExtension].
package pbcodec
