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
	"iter"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

// Registry is a set of files and the types they define, indexed by name.
//
// A registry is populated by adding files, each of which may only refer to
// files already in the registry or passed alongside it. Once populated, a
// registry may be read from any number of goroutines; adding files must not
// race with lookups.
type Registry struct {
	files      map[string]*FileDescriptor
	types      map[string]any
	extensions map[extensionKey]*ExtensionDescriptor
	logger     *zap.Logger
}

type extensionKey struct {
	extendee string
	number   int32
}

// NewRegistry returns a registry that contains google/protobuf/descriptor.proto
// and the files defining the well-known types.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := newEmptyRegistry(opts...)
	files, err := builtinFiles()
	if err != nil {
		panic(fmt.Errorf("pbcodec: building well-known types: %w", err))
	}
	for _, f := range files {
		r.commit(f, nil)
	}
	return r
}

func newEmptyRegistry(opts ...RegistryOption) *Registry {
	var o registryOptions
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(&o)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Registry{
		files:      make(map[string]*FileDescriptor),
		types:      make(map[string]any),
		extensions: make(map[extensionKey]*ExtensionDescriptor),
		logger:     o.logger,
	}
}

// AddFile builds a file from a google.protobuf.FileDescriptorProto message and
// adds it to the registry.
//
// Imports are resolved against deps first, and then against files already
// in the registry. Files in deps that are not yet registered are added too.
// If building fails, the registry is left unchanged.
func (r *Registry) AddFile(proto *Message, deps ...*FileDescriptor) (*FileDescriptor, error) {
	if proto == nil || proto.TypeName() != "google.protobuf.FileDescriptorProto" {
		return nil, fmt.Errorf("pbcodec: AddFile: not a google.protobuf.FileDescriptorProto: %w", ErrFieldValueInvalid)
	}
	b := newFileBuilder(r, proto, deps)
	file, err := b.build()
	if err != nil {
		r.logger.Debug("rejected file",
			zap.String("file", proto.str("name")),
			zap.Error(err))
		return nil, err
	}
	for _, dep := range deps {
		if _, ok := r.files[dep.Name]; !ok {
			r.commit(dep, nil)
		}
	}
	r.commit(file, b.staged)
	return file, nil
}

// AddFileBytes is like [Registry.AddFile], but takes the binary encoding of
// a google.protobuf.FileDescriptorProto.
func (r *Registry) AddFileBytes(data []byte, deps ...*FileDescriptor) (*FileDescriptor, error) {
	md, err := r.descriptorType("FileDescriptorProto")
	if err != nil {
		return nil, err
	}
	proto, err := Unmarshal(md, data)
	if err != nil {
		return nil, fmt.Errorf("pbcodec: decoding file descriptor: %w", err)
	}
	return r.AddFile(proto, deps...)
}

// AddFileBase64 is like [Registry.AddFileBytes], but takes base64 text, as
// embedded in generated code.
func (r *Registry) AddFileBase64(text string, deps ...*FileDescriptor) (*FileDescriptor, error) {
	data, err := scalar.DecodeBase64(text)
	if err != nil {
		return nil, fmt.Errorf("pbcodec: decoding file descriptor: %w", err)
	}
	return r.AddFileBytes(data, deps...)
}

func (r *Registry) descriptorType(name string) (*MessageDescriptor, error) {
	md, ok := r.Message("google.protobuf." + name)
	if !ok {
		return nil, fmt.Errorf("google.protobuf.%s: %w", name, ErrUnresolvedType)
	}
	return md, nil
}

// commit makes a built file visible. staged holds the names the file
// defines; if nil, they are collected from the file.
func (r *Registry) commit(file *FileDescriptor, staged map[string]any) {
	if staged == nil {
		staged = make(map[string]any)
		collectNames(file, staged)
	}
	r.files[file.Name] = file
	maps.Copy(r.types, staged)
	for _, v := range staged {
		if xd, ok := v.(*ExtensionDescriptor); ok {
			r.extensions[extensionKey{xd.Extendee.TypeName, xd.Number}] = xd
		}
	}
	r.logger.Debug("registered file",
		zap.String("file", file.Name),
		zap.Stringer("edition", file.Edition),
		zap.Int("names", len(staged)))
}

// collectNames indexes every named element of a file.
func collectNames(file *FileDescriptor, into map[string]any) {
	var walk func(msgs []*MessageDescriptor)
	addEnums := func(enums []*EnumDescriptor) {
		for _, ed := range enums {
			into[ed.TypeName] = ed
		}
	}
	addExts := func(exts []*ExtensionDescriptor) {
		for _, xd := range exts {
			into[xd.TypeName] = xd
		}
	}
	walk = func(msgs []*MessageDescriptor) {
		for _, md := range msgs {
			into[md.TypeName] = md
			addEnums(md.NestedEnums)
			addExts(md.NestedExtensions)
			walk(md.NestedMessages)
		}
	}
	walk(file.Messages)
	addEnums(file.Enums)
	addExts(file.Extensions)
	for _, sd := range file.Services {
		into[sd.TypeName] = sd
	}
}

// File returns the file with the given path.
func (r *Registry) File(name string) (*FileDescriptor, bool) {
	f, ok := r.files[name]
	return f, ok
}

// Message returns the message type with the given fully-qualified name.
func (r *Registry) Message(name string) (*MessageDescriptor, bool) {
	md, ok := r.types[name].(*MessageDescriptor)
	return md, ok
}

// Enum returns the enum type with the given fully-qualified name.
func (r *Registry) Enum(name string) (*EnumDescriptor, bool) {
	ed, ok := r.types[name].(*EnumDescriptor)
	return ed, ok
}

// Service returns the service with the given fully-qualified name.
func (r *Registry) Service(name string) (*ServiceDescriptor, bool) {
	sd, ok := r.types[name].(*ServiceDescriptor)
	return sd, ok
}

// Extension returns the extension of the named message with the given field
// number.
func (r *Registry) Extension(extendee string, number int32) (*ExtensionDescriptor, bool) {
	xd, ok := r.extensions[extensionKey{extendee, number}]
	return xd, ok
}

// ExtensionByName returns the extension with the given fully-qualified name.
func (r *Registry) ExtensionByName(name string) (*ExtensionDescriptor, bool) {
	xd, ok := r.types[name].(*ExtensionDescriptor)
	return xd, ok
}

// ExtensionsOf returns the extensions of the named message, ordered by
// number.
func (r *Registry) ExtensionsOf(extendee string) []*ExtensionDescriptor {
	var out []*ExtensionDescriptor
	for k, xd := range r.extensions {
		if k.extendee == extendee {
			out = append(out, xd)
		}
	}
	slices.SortFunc(out, func(a, b *ExtensionDescriptor) int {
		return int(a.Number) - int(b.Number)
	})
	return out
}

// FindDescriptor returns the message, enum, service or extension with the
// given fully-qualified name.
func (r *Registry) FindDescriptor(name string) (any, bool) {
	d, ok := r.types[name]
	return d, ok
}

// Files ranges over the registered files in name order.
func (r *Registry) Files() iter.Seq[*FileDescriptor] {
	return func(yield func(*FileDescriptor) bool) {
		for _, name := range slices.Sorted(maps.Keys(r.files)) {
			if !yield(r.files[name]) {
				return
			}
		}
	}
}

// Range ranges over every registered name and its descriptor, in name order.
func (r *Registry) Range() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, name := range slices.Sorted(maps.Keys(r.types)) {
			if !yield(name, r.types[name]) {
				return
			}
		}
	}
}
