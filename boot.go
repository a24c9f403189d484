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

package pbcodec

import (
	"fmt"
	"sync"

	"github.com/nyuiela/sub0cre-sub000/internal/debug"
)

// builtinFiles builds descriptor.proto and the well-known type files once
// per process. The result is immutable and shared by every [Registry].
var builtinFiles = sync.OnceValues(bootstrap)

// bootstrap builds the builtin files in two steps.
//
// Reading a FileDescriptorProto requires a descriptor for it, which is what
// descriptor.proto defines. So first, the subset of descriptor.proto that
// the file builder reads is written out by hand below, and built like any
// other file. Those boot descriptors are then used to decode the real
// descriptor.proto, which in turn decodes itself and the well-known type
// files.
func bootstrap() ([]*FileDescriptor, error) {
	boot := newEmptyRegistry()
	if _, err := boot.AddFile(bootFileProto()); err != nil {
		return nil, fmt.Errorf("boot descriptors: %w", err)
	}
	fdp, err := boot.descriptorType("FileDescriptorProto")
	if err != nil {
		return nil, err
	}

	schemas, err := wellKnownSchemas()
	if err != nil {
		return nil, err
	}

	// descriptor.proto is first built from the boot descriptors, which leaves
	// most of its options as unknown fields. The FileDescriptorProto it
	// defines is then used to decode it again for the registry below.
	stage := newEmptyRegistry()
	proto, err := Unmarshal(fdp, schemas[0])
	if err != nil {
		return nil, fmt.Errorf("decoding builtin file: %w", err)
	}
	if _, err := stage.AddFile(proto); err != nil {
		return nil, err
	}
	if fdp, err = stage.descriptorType("FileDescriptorProto"); err != nil {
		return nil, err
	}

	full := newEmptyRegistry()
	files := make([]*FileDescriptor, 0, len(schemas))
	for _, schema := range schemas {
		proto, err := Unmarshal(fdp, schema)
		if err != nil {
			return nil, fmt.Errorf("decoding builtin file: %w", err)
		}
		file, err := full.AddFile(proto)
		if err != nil {
			return nil, err
		}
		debug.Log(nil, "bootstrap", "%s: %d messages", file.Name, len(file.Messages))
		files = append(files, file)

		// Later files are decoded with the complete descriptor.proto.
		if fdp, err = full.descriptorType("FileDescriptorProto"); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// bootField is a field of the hand-written subset of descriptor.proto.
type bootField struct {
	name     string
	number   int32
	typ      int32
	label    int32
	typeName string
}

type bootMessage struct {
	name   string
	fields []bootField
	enums  []bootEnum
}

type bootEnum struct {
	name   string
	values []bootValue
}

type bootValue struct {
	name   string
	number int32
}

const (
	tString  = int32(String)
	tBool    = int32(Bool)
	tInt32   = int32(Int32)
	tMessage = int32(typeMessage)
	tEnum    = int32(typeEnum)

	optional = labelOptional
	repeated = labelRepeated
)

// bootSchema is the part of descriptor.proto needed to read any file,
// including descriptor.proto itself.
var bootSchema = []bootMessage{
	{name: "FileDescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
		{"package", 2, tString, optional, ""},
		{"dependency", 3, tString, repeated, ""},
		{"message_type", 4, tMessage, repeated, ".google.protobuf.DescriptorProto"},
		{"enum_type", 5, tMessage, repeated, ".google.protobuf.EnumDescriptorProto"},
		{"service", 6, tMessage, repeated, ".google.protobuf.ServiceDescriptorProto"},
		{"extension", 7, tMessage, repeated, ".google.protobuf.FieldDescriptorProto"},
		{"options", 8, tMessage, optional, ".google.protobuf.FileOptions"},
		{"syntax", 12, tString, optional, ""},
		{"edition", 14, tEnum, optional, ".google.protobuf.Edition"},
	}},
	{name: "DescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
		{"field", 2, tMessage, repeated, ".google.protobuf.FieldDescriptorProto"},
		{"nested_type", 3, tMessage, repeated, ".google.protobuf.DescriptorProto"},
		{"enum_type", 4, tMessage, repeated, ".google.protobuf.EnumDescriptorProto"},
		{"extension", 6, tMessage, repeated, ".google.protobuf.FieldDescriptorProto"},
		{"options", 7, tMessage, optional, ".google.protobuf.MessageOptions"},
		{"oneof_decl", 8, tMessage, repeated, ".google.protobuf.OneofDescriptorProto"},
	}},
	{
		name: "FieldDescriptorProto",
		fields: []bootField{
			{"name", 1, tString, optional, ""},
			{"extendee", 2, tString, optional, ""},
			{"number", 3, tInt32, optional, ""},
			{"label", 4, tEnum, optional, ".google.protobuf.FieldDescriptorProto.Label"},
			{"type", 5, tEnum, optional, ".google.protobuf.FieldDescriptorProto.Type"},
			{"type_name", 6, tString, optional, ""},
			{"default_value", 7, tString, optional, ""},
			{"options", 8, tMessage, optional, ".google.protobuf.FieldOptions"},
			{"oneof_index", 9, tInt32, optional, ""},
			{"json_name", 10, tString, optional, ""},
			{"proto3_optional", 17, tBool, optional, ""},
		},
		enums: []bootEnum{
			{"Type", []bootValue{
				{"TYPE_DOUBLE", 1}, {"TYPE_FLOAT", 2}, {"TYPE_INT64", 3},
				{"TYPE_UINT64", 4}, {"TYPE_INT32", 5}, {"TYPE_FIXED64", 6},
				{"TYPE_FIXED32", 7}, {"TYPE_BOOL", 8}, {"TYPE_STRING", 9},
				{"TYPE_GROUP", 10}, {"TYPE_MESSAGE", 11}, {"TYPE_BYTES", 12},
				{"TYPE_UINT32", 13}, {"TYPE_ENUM", 14}, {"TYPE_SFIXED32", 15},
				{"TYPE_SFIXED64", 16}, {"TYPE_SINT32", 17}, {"TYPE_SINT64", 18},
			}},
			{"Label", []bootValue{
				{"LABEL_OPTIONAL", 1}, {"LABEL_REPEATED", 3}, {"LABEL_REQUIRED", 2},
			}},
		},
	},
	{name: "OneofDescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
	}},
	{name: "EnumDescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
		{"value", 2, tMessage, repeated, ".google.protobuf.EnumValueDescriptorProto"},
		{"options", 3, tMessage, optional, ".google.protobuf.EnumOptions"},
	}},
	{name: "EnumValueDescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
		{"number", 2, tInt32, optional, ""},
	}},
	{name: "ServiceDescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
		{"method", 2, tMessage, repeated, ".google.protobuf.MethodDescriptorProto"},
	}},
	{name: "MethodDescriptorProto", fields: []bootField{
		{"name", 1, tString, optional, ""},
		{"input_type", 2, tString, optional, ""},
		{"output_type", 3, tString, optional, ""},
		{"client_streaming", 5, tBool, optional, ""},
		{"server_streaming", 6, tBool, optional, ""},
	}},
	{name: "FileOptions", fields: []bootField{
		{"features", 50, tMessage, optional, ".google.protobuf.FeatureSet"},
	}},
	{name: "MessageOptions", fields: []bootField{
		{"map_entry", 7, tBool, optional, ""},
		{"features", 12, tMessage, optional, ".google.protobuf.FeatureSet"},
	}},
	{
		name: "FieldOptions",
		fields: []bootField{
			{"packed", 2, tBool, optional, ""},
			{"jstype", 6, tEnum, optional, ".google.protobuf.FieldOptions.JSType"},
			{"features", 21, tMessage, optional, ".google.protobuf.FeatureSet"},
		},
		enums: []bootEnum{
			{"JSType", []bootValue{{"JS_NORMAL", 0}, {"JS_STRING", 1}, {"JS_NUMBER", 2}}},
		},
	},
	{name: "EnumOptions", fields: []bootField{
		{"features", 7, tMessage, optional, ".google.protobuf.FeatureSet"},
	}},
	{
		name: "FeatureSet",
		fields: []bootField{
			{"field_presence", 1, tEnum, optional, ".google.protobuf.FeatureSet.FieldPresence"},
			{"enum_type", 2, tEnum, optional, ".google.protobuf.FeatureSet.EnumType"},
			{"repeated_field_encoding", 3, tEnum, optional, ".google.protobuf.FeatureSet.RepeatedFieldEncoding"},
			{"utf8_validation", 4, tEnum, optional, ".google.protobuf.FeatureSet.Utf8Validation"},
			{"message_encoding", 5, tEnum, optional, ".google.protobuf.FeatureSet.MessageEncoding"},
			{"json_format", 6, tEnum, optional, ".google.protobuf.FeatureSet.JsonFormat"},
		},
		enums: []bootEnum{
			{"FieldPresence", []bootValue{
				{"FIELD_PRESENCE_UNKNOWN", 0}, {"EXPLICIT", 1}, {"IMPLICIT", 2}, {"LEGACY_REQUIRED", 3},
			}},
			{"EnumType", []bootValue{{"ENUM_TYPE_UNKNOWN", 0}, {"OPEN", 1}, {"CLOSED", 2}}},
			{"RepeatedFieldEncoding", []bootValue{
				{"REPEATED_FIELD_ENCODING_UNKNOWN", 0}, {"PACKED", 1}, {"EXPANDED", 2},
			}},
			{"Utf8Validation", []bootValue{{"UTF8_VALIDATION_UNKNOWN", 0}, {"VERIFY", 2}, {"NONE", 3}}},
			{"MessageEncoding", []bootValue{
				{"MESSAGE_ENCODING_UNKNOWN", 0}, {"LENGTH_PREFIXED", 1}, {"DELIMITED", 2},
			}},
			{"JsonFormat", []bootValue{{"JSON_FORMAT_UNKNOWN", 0}, {"ALLOW", 1}, {"LEGACY_BEST_EFFORT", 2}}},
		},
	},
}

var bootEditions = bootEnum{"Edition", []bootValue{
	{"EDITION_UNKNOWN", 0},
	{"EDITION_LEGACY", 900},
	{"EDITION_PROTO2", 998},
	{"EDITION_PROTO3", 999},
	{"EDITION_2023", 1000},
	{"EDITION_2024", 1001},
	{"EDITION_1_TEST_ONLY", 1},
	{"EDITION_2_TEST_ONLY", 2},
	{"EDITION_99997_TEST_ONLY", 99997},
	{"EDITION_99998_TEST_ONLY", 99998},
	{"EDITION_99999_TEST_ONLY", 99999},
	{"EDITION_MAX", 0x7fffffff},
}}

// bootFileProto returns bootSchema as a FileDescriptorProto message, in the
// same form the binary decoder would produce.
func bootFileProto() *Message {
	file := bootRaw("FileDescriptorProto",
		"name", "google/protobuf/descriptor.proto",
		"package", "google.protobuf",
		"syntax", "proto2",
	)
	messages := new(rawList)
	for _, bm := range bootSchema {
		fields := new(rawList)
		for _, bf := range bm.fields {
			fp := bootRaw("FieldDescriptorProto",
				"name", bf.name,
				"number", bf.number,
				"label", bf.label,
				"type", bf.typ,
				"jsonName", camelCase(bf.name),
			)
			if bf.typeName != "" {
				fp.put("typeName", bf.typeName)
			}
			fields.items = append(fields.items, fp)
		}
		mp := bootRaw("DescriptorProto", "name", bm.name, "field", fields)
		if len(bm.enums) > 0 {
			enums := new(rawList)
			for _, be := range bm.enums {
				enums.items = append(enums.items, be.proto())
			}
			mp.put("enumType", enums)
		}
		messages.items = append(messages.items, mp)
	}
	file.put("messageType", messages)
	file.put("enumType", &rawList{items: []any{bootEditions.proto()}})
	return file
}

func (be bootEnum) proto() *Message {
	values := new(rawList)
	for _, bv := range be.values {
		values.items = append(values.items, bootRaw("EnumValueDescriptorProto",
			"name", bv.name,
			"number", bv.number,
		))
	}
	return bootRaw("EnumDescriptorProto", "name", be.name, "value", values)
}

// bootRaw builds a google.protobuf message from alternating local names and
// values.
func bootRaw(name string, kv ...any) *Message {
	m := newMessage("google.protobuf." + name)
	for i := 0; i+1 < len(kv); i += 2 {
		m.put(kv[i].(string), kv[i+1])
	}
	return m
}
