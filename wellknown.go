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
	"math"
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Names of the well-known types with special JSON mappings.
const (
	wktAny         = "google.protobuf.Any"
	wktTimestamp   = "google.protobuf.Timestamp"
	wktDuration    = "google.protobuf.Duration"
	wktStruct      = "google.protobuf.Struct"
	wktValue       = "google.protobuf.Value"
	wktListValue   = "google.protobuf.ListValue"
	wktNullValue   = "google.protobuf.NullValue"
	wktFieldMask   = "google.protobuf.FieldMask"
	wktEmpty       = "google.protobuf.Empty"
	wktDoubleValue = "google.protobuf.DoubleValue"
	wktFloatValue  = "google.protobuf.FloatValue"
	wktInt64Value  = "google.protobuf.Int64Value"
	wktUInt64Value = "google.protobuf.UInt64Value"
	wktInt32Value  = "google.protobuf.Int32Value"
	wktUInt32Value = "google.protobuf.UInt32Value"
	wktBoolValue   = "google.protobuf.BoolValue"
	wktStringValue = "google.protobuf.StringValue"
	wktBytesValue  = "google.protobuf.BytesValue"
)

// isWrapper returns whether name is one of the wrapper types, which are
// written to JSON as their bare value.
func isWrapper(name string) bool {
	switch name {
	case wktDoubleValue, wktFloatValue, wktInt64Value, wktUInt64Value,
		wktInt32Value, wktUInt32Value, wktBoolValue, wktStringValue, wktBytesValue:
		return true
	}
	return false
}

// wellKnownFiles lists the builtin files, descriptor.proto first.
var wellKnownFiles = []protoreflect.FileDescriptor{
	descriptorpb.File_google_protobuf_descriptor_proto,
	anypb.File_google_protobuf_any_proto,
	durationpb.File_google_protobuf_duration_proto,
	emptypb.File_google_protobuf_empty_proto,
	fieldmaskpb.File_google_protobuf_field_mask_proto,
	structpb.File_google_protobuf_struct_proto,
	timestamppb.File_google_protobuf_timestamp_proto,
	wrapperspb.File_google_protobuf_wrappers_proto,
}

// wellKnownSchemas returns the binary FileDescriptorProto of each builtin
// file.
func wellKnownSchemas() ([][]byte, error) {
	out := make([][]byte, 0, len(wellKnownFiles))
	for _, fd := range wellKnownFiles {
		data, err := proto.MarshalOptions{Deterministic: true}.Marshal(protodesc.ToFileDescriptorProto(fd))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", fd.Path(), err)
		}
		out = append(out, data)
	}
	return out, nil
}

// builtinRegistry is used to resolve well-known types when no registry is
// given.
var builtinRegistry = sync.OnceValue(func() *Registry { return NewRegistry() })

// TimestampFromTime returns a google.protobuf.Timestamp for t.
func TimestampFromTime(t time.Time) (*Message, error) {
	md, err := builtinRegistry().descriptorType("Timestamp")
	if err != nil {
		return nil, err
	}
	secs, nanos := t.Unix(), int32(t.Nanosecond())
	if secs < minTimestamp || secs > maxTimestamp {
		return nil, fmt.Errorf("pbcodec: %v out of range for %s: %w", t, wktTimestamp, ErrFieldValueInvalid)
	}
	m := NewMessage(md)
	setSecondsNanos(md, m, secs, nanos)
	return m, nil
}

// TimestampToTime converts a google.protobuf.Timestamp into a time.Time in
// UTC.
func TimestampToTime(m *Message) (time.Time, error) {
	md, err := builtinRegistry().descriptorType("Timestamp")
	if err != nil {
		return time.Time{}, err
	}
	if m.typeName != md.TypeName {
		return time.Time{}, &FieldError{Field: md.TypeName, Err: ErrForeignField}
	}
	secs, nanos := secondsNanos(md, m)
	if _, err := formatTimestamp(secs, nanos); err != nil {
		return time.Time{}, &FieldError{Field: md.TypeName, Err: err}
	}
	return time.Unix(secs, int64(nanos)).UTC(), nil
}

// DurationFromTime returns a google.protobuf.Duration for d.
func DurationFromTime(d time.Duration) (*Message, error) {
	md, err := builtinRegistry().descriptorType("Duration")
	if err != nil {
		return nil, err
	}
	secs := int64(d / time.Second)
	nanos := int32(d % time.Second)
	m := NewMessage(md)
	setSecondsNanos(md, m, secs, nanos)
	return m, nil
}

// DurationToTime converts a google.protobuf.Duration into a time.Duration.
// Durations too long for time.Duration are clamped.
func DurationToTime(m *Message) (time.Duration, error) {
	md, err := builtinRegistry().descriptorType("Duration")
	if err != nil {
		return 0, err
	}
	if m.typeName != md.TypeName {
		return 0, &FieldError{Field: md.TypeName, Err: ErrForeignField}
	}
	secs, nanos := secondsNanos(md, m)
	if _, err := formatDuration(secs, nanos); err != nil {
		return 0, &FieldError{Field: md.TypeName, Err: err}
	}
	const maxSecs = int64(math.MaxInt64 / time.Second)
	switch {
	case secs > maxSecs:
		return math.MaxInt64, nil
	case secs < -maxSecs:
		return math.MinInt64, nil
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}
