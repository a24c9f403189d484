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
	"math"

	"go.uber.org/zap"
)

// DefaultMaxDepth is the default nesting limit for binary and JSON decoding.
const DefaultMaxDepth = 1000

type unmarshalOptions struct {
	discardUnknown   bool
	allowInvalidUTF8 bool
	maxDepth         int
}

func newUnmarshalOptions(opts []UnmarshalOption) unmarshalOptions {
	o := unmarshalOptions{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(&o)
		}
	}
	return o
}

// UnmarshalOption is a configuration setting for [Unmarshal].
type UnmarshalOption struct{ apply func(*unmarshalOptions) }

// WithDiscardUnknown sets whether fields that are not described by the
// message's descriptor are dropped instead of kept in its unknown field list.
func WithDiscardUnknown(discard bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.discardUnknown = discard }}
}

// WithMaxDepth sets the maximum message nesting depth for the decoder.
//
// Setting a large value enables potential DoS vectors.
func WithMaxDepth(depth int) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.maxDepth = min(max(depth, 0), math.MaxInt32) }}
}

// WithAllowInvalidUTF8 disables UTF-8 validation of string fields that would
// otherwise require it.
func WithAllowInvalidUTF8(allow bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.allowInvalidUTF8 = allow }}
}

type marshalOptions struct {
	omitUnknown bool
}

func newMarshalOptions(opts []MarshalOption) marshalOptions {
	var o marshalOptions
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(&o)
		}
	}
	return o
}

// MarshalOption is a configuration setting for [Marshal].
type MarshalOption struct{ apply func(*marshalOptions) }

// WithoutUnknownFields drops unknown fields from the encoded output.
func WithoutUnknownFields() MarshalOption {
	return MarshalOption{func(o *marshalOptions) { o.omitUnknown = true }}
}

type jsonOptions struct {
	registry      *Registry
	ignoreUnknown bool
	protoNames    bool
	enumAsInteger bool
	emitDefaults  bool
	maxDepth      int
}

func newJSONOptions(opts []JSONOption) jsonOptions {
	o := jsonOptions{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(&o)
		}
	}
	return o
}

// JSONOption is a configuration setting for the JSON encoder and decoder.
type JSONOption struct{ apply func(*jsonOptions) }

// WithRegistry sets the registry used to resolve the types named by
// google.protobuf.Any values and extension keys.
func WithRegistry(r *Registry) JSONOption {
	return JSONOption{func(o *jsonOptions) { o.registry = r }}
}

// WithIgnoreUnknown makes the decoder skip object keys that name no field,
// and enum names that name no value.
func WithIgnoreUnknown(ignore bool) JSONOption {
	return JSONOption{func(o *jsonOptions) { o.ignoreUnknown = ignore }}
}

// WithProtoNames makes the encoder use the original field names instead of
// their lowerCamelCase JSON names.
func WithProtoNames(use bool) JSONOption {
	return JSONOption{func(o *jsonOptions) { o.protoNames = use }}
}

// WithEnumAsInteger makes the encoder emit enum values as numbers.
func WithEnumAsInteger(use bool) JSONOption {
	return JSONOption{func(o *jsonOptions) { o.enumAsInteger = use }}
}

// WithEmitDefaults makes the encoder emit fields with implicit presence even
// when they hold their zero value, and empty lists and maps.
func WithEmitDefaults(emit bool) JSONOption {
	return JSONOption{func(o *jsonOptions) { o.emitDefaults = emit }}
}

// WithJSONMaxDepth sets the maximum message nesting depth for the JSON
// decoder.
func WithJSONMaxDepth(depth int) JSONOption {
	return JSONOption{func(o *jsonOptions) { o.maxDepth = min(max(depth, 0), math.MaxInt32) }}
}

type registryOptions struct {
	logger *zap.Logger
}

// RegistryOption is a configuration setting for [NewRegistry].
type RegistryOption struct{ apply func(*registryOptions) }

// WithRegistryLogger sets the logger that file registrations are reported
// to, at debug level.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return RegistryOption{func(o *registryOptions) { o.logger = logger }}
}

type reflectOptions struct {
	noCheck bool
}

// ReflectOption is a configuration setting for [Reflect].
type ReflectOption struct{ apply func(*reflectOptions) }

// WithoutCheck disables validation of values passed to the reflective
// setters. Values must then already be in their storage representation.
func WithoutCheck() ReflectOption {
	return ReflectOption{func(o *reflectOptions) { o.noCheck = true }}
}
