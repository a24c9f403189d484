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

package testdata

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Package is the Protobuf package of the test schemas.
const Package = "pbcodec.test.v1"

type (
	fieldType  = descriptorpb.FieldDescriptorProto_Type
	fieldLabel = descriptorpb.FieldDescriptorProto_Label
)

const (
	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	required = descriptorpb.FieldDescriptorProto_LABEL_REQUIRED
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED

	tDouble   = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	tFloat    = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	tInt64    = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tUint64   = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	tInt32    = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tFixed64  = descriptorpb.FieldDescriptorProto_TYPE_FIXED64
	tFixed32  = descriptorpb.FieldDescriptorProto_TYPE_FIXED32
	tBool     = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	tString   = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tGroup    = descriptorpb.FieldDescriptorProto_TYPE_GROUP
	tMessage  = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	tBytes    = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	tUint32   = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	tEnum     = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	tSfixed32 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED32
	tSfixed64 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED64
	tSint32   = descriptorpb.FieldDescriptorProto_TYPE_SINT32
	tSint64   = descriptorpb.FieldDescriptorProto_TYPE_SINT64
)

// Files returns the test schemas, in dependency order. The well-known types
// they import are not included.
func Files() []*descriptorpb.FileDescriptorProto {
	return []*descriptorpb.FileDescriptorProto{
		proto3File(),
		proto2File(),
		editionsFile(),
	}
}

func proto3File() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("pbcodec/test/v1/test.proto"),
		Package: proto.String(Package),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			"google/protobuf/duration.proto",
			"google/protobuf/field_mask.proto",
			"google/protobuf/struct.proto",
			"google/protobuf/timestamp.proto",
			"google/protobuf/wrappers.proto",
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enum("Color", "COLOR_UNSPECIFIED", "COLOR_RED", "COLOR_GREEN"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Scalars"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("f_double", 1, optional, tDouble, ""),
					field("f_float", 2, optional, tFloat, ""),
					field("f_int64", 3, optional, tInt64, ""),
					field("f_uint64", 4, optional, tUint64, ""),
					field("f_int32", 5, optional, tInt32, ""),
					field("f_fixed64", 6, optional, tFixed64, ""),
					field("f_fixed32", 7, optional, tFixed32, ""),
					field("f_bool", 8, optional, tBool, ""),
					field("f_string", 9, optional, tString, ""),
					field("f_bytes", 12, optional, tBytes, ""),
					field("f_uint32", 13, optional, tUint32, ""),
					field("f_sfixed32", 15, optional, tSfixed32, ""),
					field("f_sfixed64", 16, optional, tSfixed64, ""),
					field("f_sint32", 17, optional, tSint32, ""),
					field("f_sint64", 18, optional, tSint64, ""),
					proto3Optional(field("opt_int32", 20, optional, tInt32, ""), 0),
					field("color", 21, optional, tEnum, ".pbcodec.test.v1.Color"),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("_opt_int32")},
				},
			},
			{
				Name: proto.String("Repeated"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("ints", 1, repeated, tInt32, ""),
					field("sints", 2, repeated, tSint64, ""),
					field("doubles", 3, repeated, tDouble, ""),
					field("strings", 4, repeated, tString, ""),
					field("colors", 5, repeated, tEnum, ".pbcodec.test.v1.Color"),
					field("msgs", 6, repeated, tMessage, ".pbcodec.test.v1.Scalars"),
					packed(field("unpacked", 7, repeated, tInt32, ""), false),
					field("fixeds", 8, repeated, tFixed32, ""),
					field("bools", 9, repeated, tBool, ""),
					field("blobs", 10, repeated, tBytes, ""),
				},
			},
			{
				Name: proto.String("Maps"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("str_int", 1, repeated, tMessage, ".pbcodec.test.v1.Maps.StrIntEntry"),
					field("int_str", 2, repeated, tMessage, ".pbcodec.test.v1.Maps.IntStrEntry"),
					field("bool_msg", 3, repeated, tMessage, ".pbcodec.test.v1.Maps.BoolMsgEntry"),
					field("uint_color", 4, repeated, tMessage, ".pbcodec.test.v1.Maps.UintColorEntry"),
					field("sint_bytes", 5, repeated, tMessage, ".pbcodec.test.v1.Maps.SintBytesEntry"),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					mapEntry("StrIntEntry", tString, tInt32, ""),
					mapEntry("IntStrEntry", tInt64, tString, ""),
					mapEntry("BoolMsgEntry", tBool, tMessage, ".pbcodec.test.v1.Scalars"),
					mapEntry("UintColorEntry", tUint32, tEnum, ".pbcodec.test.v1.Color"),
					mapEntry("SintBytesEntry", tSint32, tBytes, ""),
				},
			},
			{
				Name: proto.String("Oneofs"),
				Field: []*descriptorpb.FieldDescriptorProto{
					oneof(field("number", 1, optional, tInt32, ""), 0),
					oneof(field("text", 2, optional, tString, ""), 0),
					oneof(field("nested", 3, optional, tMessage, ".pbcodec.test.v1.Scalars"), 0),
					oneof(field("color", 4, optional, tEnum, ".pbcodec.test.v1.Color"), 0),
					field("after", 5, optional, tString, ""),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("choice")},
				},
			},
			{
				Name: proto.String("Nested"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("child", 1, optional, tMessage, ".pbcodec.test.v1.Nested"),
					field("depth", 2, optional, tInt32, ""),
					field("scalars", 3, optional, tMessage, ".pbcodec.test.v1.Scalars"),
					field("when", 4, optional, tMessage, ".google.protobuf.Timestamp"),
					field("took", 5, optional, tMessage, ".google.protobuf.Duration"),
					field("meta", 6, optional, tMessage, ".google.protobuf.Struct"),
					field("wrapped", 7, optional, tMessage, ".google.protobuf.Int32Value"),
					field("mask", 8, optional, tMessage, ".google.protobuf.FieldMask"),
					field("value", 9, optional, tMessage, ".google.protobuf.Value"),
				},
			},
		},
	}
}

func proto2File() *descriptorpb.FileDescriptorProto {
	legacy := ".pbcodec.test.v1.Legacy"
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("pbcodec/test/v1/legacy.proto"),
		Package: proto.String(Package),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enumFrom(1, "Level", "LEVEL_LOW", "LEVEL_HIGH"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Legacy"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, optional, tInt32, ""),
					field("name", 2, optional, tString, ""),
					field("level", 3, optional, tEnum, ".pbcodec.test.v1.Level"),
					field("levels", 4, repeated, tEnum, ".pbcodec.test.v1.Level"),
					packed(field("packed_levels", 5, repeated, tEnum, ".pbcodec.test.v1.Level"), true),
					field("item", 6, optional, tGroup, legacy+".Item"),
					withDefault(field("with_default", 8, optional, tInt32, ""), "42"),
					withDefault(field("text_default", 9, optional, tString, ""), "hi"),
					field("level_map", 10, repeated, tMessage, legacy+".LevelMapEntry"),
					field("ints", 11, repeated, tInt32, ""),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					{
						Name: proto.String("Item"),
						Field: []*descriptorpb.FieldDescriptorProto{
							field("value", 7, optional, tInt32, ""),
						},
					},
					mapEntry("LevelMapEntry", tString, tEnum, ".pbcodec.test.v1.Level"),
				},
				ExtensionRange: []*descriptorpb.DescriptorProto_ExtensionRange{
					{Start: proto.Int32(100), End: proto.Int32(200)},
				},
			},
			{
				Name: proto.String("Required"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, required, tInt32, ""),
					field("child", 2, optional, tMessage, ".pbcodec.test.v1.Required"),
				},
			},
		},
		Extension: []*descriptorpb.FieldDescriptorProto{
			extend(field("ext_int", 100, optional, tInt32, ""), legacy),
			extend(field("ext_strs", 101, repeated, tString, ""), legacy),
			extend(field("ext_level", 102, optional, tEnum, ".pbcodec.test.v1.Level"), legacy),
		},
	}
}

func editionsFile() *descriptorpb.FileDescriptorProto {
	implicit := &descriptorpb.FieldOptions{Features: &descriptorpb.FeatureSet{
		FieldPresence: descriptorpb.FeatureSet_IMPLICIT.Enum(),
	}}
	expanded := &descriptorpb.FieldOptions{Features: &descriptorpb.FeatureSet{
		RepeatedFieldEncoding: descriptorpb.FeatureSet_EXPANDED.Enum(),
	}}
	delimited := &descriptorpb.FieldOptions{Features: &descriptorpb.FeatureSet{
		MessageEncoding: descriptorpb.FeatureSet_DELIMITED.Enum(),
	}}

	withOptions := func(f *descriptorpb.FieldDescriptorProto, o *descriptorpb.FieldOptions) *descriptorpb.FieldDescriptorProto {
		f.Options = o
		return f
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("pbcodec/test/v1/editions.proto"),
		Package: proto.String(Package),
		Syntax:  proto.String("editions"),
		Edition: descriptorpb.Edition_EDITION_2023.Enum(),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Editions"),
				Field: []*descriptorpb.FieldDescriptorProto{
					withOptions(field("implicit", 1, optional, tInt32, ""), implicit),
					field("explicit", 2, optional, tInt32, ""),
					withOptions(field("expanded", 3, repeated, tInt32, ""), expanded),
					field("packed", 4, repeated, tInt32, ""),
					withOptions(field("child", 5, optional, tMessage, ".pbcodec.test.v1.Editions.Child"), delimited),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					{
						Name: proto.String("Child"),
						Field: []*descriptorpb.FieldDescriptorProto{
							field("x", 1, optional, tInt32, ""),
						},
					},
				},
			},
		},
	}
}

func field(name string, number int32, label fieldLabel, typ fieldType, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func oneof(f *descriptorpb.FieldDescriptorProto, index int32) *descriptorpb.FieldDescriptorProto {
	f.OneofIndex = proto.Int32(index)
	return f
}

func proto3Optional(f *descriptorpb.FieldDescriptorProto, index int32) *descriptorpb.FieldDescriptorProto {
	f.Proto3Optional = proto.Bool(true)
	return oneof(f, index)
}

func packed(f *descriptorpb.FieldDescriptorProto, packed bool) *descriptorpb.FieldDescriptorProto {
	f.Options = &descriptorpb.FieldOptions{Packed: proto.Bool(packed)}
	return f
}

func withDefault(f *descriptorpb.FieldDescriptorProto, value string) *descriptorpb.FieldDescriptorProto {
	f.DefaultValue = proto.String(value)
	return f
}

func extend(f *descriptorpb.FieldDescriptorProto, extendee string) *descriptorpb.FieldDescriptorProto {
	f.Extendee = proto.String(extendee)
	return f
}

func mapEntry(name string, key, value fieldType, valueType string) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: proto.String(name),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("key", 1, optional, key, ""),
			field("value", 2, optional, value, valueType),
		},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

func enum(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	return enumFrom(0, name, values...)
}

func enumFrom(first int32, name string, values ...string) *descriptorpb.EnumDescriptorProto {
	e := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
	for i, v := range values {
		e.Value = append(e.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(first + int32(i)),
		})
	}
	return e
}
