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
	"slices"
	"strings"

	"github.com/nyuiela/sub0cre-sub000/internal/debug"
	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
	"github.com/nyuiela/sub0cre-sub000/internal/scc"
)

// Values of google.protobuf.FieldDescriptorProto.Type that are not scalars.
const (
	typeGroup   = 10
	typeMessage = 11
	typeEnum    = 14
)

// Values of google.protobuf.FieldDescriptorProto.Label.
const (
	labelOptional = 1
	labelRequired = 2
	labelRepeated = 3
)

// fileBuilder turns a FileDescriptorProto message into a [FileDescriptor].
//
// Nothing is written to the registry while building; every name the file
// defines is staged, and only committed once the whole file has been built.
type fileBuilder struct {
	r     *Registry
	proto *Message
	deps  []*FileDescriptor
	file  *FileDescriptor

	staged     map[string]any
	mapEntries map[string]*MessageDescriptor
	imported   map[string]any

	// Every message in the file, including map entries, in declaration
	// order.
	messages []*MessageDescriptor
	// Extensions declared inside messages, built after all fields.
	nestedExts []nestedExtension
}

type nestedExtension struct {
	proto *Message
	scope *MessageDescriptor
}

func newFileBuilder(r *Registry, proto *Message, deps []*FileDescriptor) *fileBuilder {
	b := &fileBuilder{
		r:          r,
		proto:      proto,
		deps:       deps,
		staged:     make(map[string]any),
		mapEntries: make(map[string]*MessageDescriptor),
		imported:   make(map[string]any),
	}
	seen := make(map[*FileDescriptor]bool)
	var walk func(f *FileDescriptor)
	walk = func(f *FileDescriptor) {
		if seen[f] {
			return
		}
		seen[f] = true
		collectNames(f, b.imported)
		for _, dep := range f.Dependencies {
			walk(dep)
		}
	}
	for _, dep := range deps {
		walk(dep)
	}
	return b
}

func (b *fileBuilder) build() (*FileDescriptor, error) {
	p := b.proto
	name := p.str("name")
	if _, ok := b.r.files[name]; ok {
		return nil, fmt.Errorf("pbcodec: file %q: %w", name, ErrDuplicateName)
	}

	edition, err := editionOf(p)
	if err != nil {
		return nil, fmt.Errorf("pbcodec: file %q: %w", name, err)
	}
	defaults, err := defaultsFor(edition)
	if err != nil {
		return nil, fmt.Errorf("pbcodec: file %q: %w", name, err)
	}
	f := &FileDescriptor{
		Name:     name,
		Package:  p.str("package"),
		Edition:  edition,
		Proto:    p,
		features: defaults.merge(p.msg("options")),
	}
	b.file = f
	debug.Log(nil, "build file", "%s, edition %v", name, edition)

	for _, imp := range p.strs("dependency") {
		dep := b.findFile(imp)
		if dep == nil {
			return nil, fmt.Errorf("pbcodec: file %q: import %q: %w", name, imp, ErrFileNotFound)
		}
		f.Dependencies = append(f.Dependencies, dep)
	}

	for _, mp := range p.msgs("messageType") {
		md, err := b.declareMessage(mp, nil, f.Package, f.features)
		if err != nil {
			return nil, err
		}
		f.Messages = append(f.Messages, md)
	}
	for _, ep := range p.msgs("enumType") {
		ed, err := b.declareEnum(ep, nil, f.Package, f.features)
		if err != nil {
			return nil, err
		}
		f.Enums = append(f.Enums, ed)
	}

	// Map fields read the fields of their entry type, so entries go first.
	for _, md := range b.messages {
		if md.mapEntry {
			if err := b.buildFields(md); err != nil {
				return nil, err
			}
		}
	}
	for _, md := range b.messages {
		if !md.mapEntry {
			if err := b.buildFields(md); err != nil {
				return nil, err
			}
		}
	}

	for _, xp := range p.msgs("extension") {
		xd, err := b.buildExtension(xp, nil, f.Package, f.features)
		if err != nil {
			return nil, err
		}
		f.Extensions = append(f.Extensions, xd)
	}
	for _, ext := range b.nestedExts {
		xd, err := b.buildExtension(ext.proto, ext.scope, ext.scope.TypeName, ext.scope.features)
		if err != nil {
			return nil, err
		}
		ext.scope.NestedExtensions = append(ext.scope.NestedExtensions, xd)
	}

	for _, sp := range p.msgs("service") {
		sd, err := b.buildService(sp)
		if err != nil {
			return nil, err
		}
		f.Services = append(f.Services, sd)
	}
	return f, nil
}

// editionOf maps a file's syntax marker onto an edition.
func editionOf(p *Message) (Edition, error) {
	switch syntax := p.str("syntax"); syntax {
	case "", "proto2":
		return EditionProto2, nil
	case "proto3":
		return EditionProto3, nil
	case "editions":
		e, _ := p.i32("edition")
		return Edition(e), nil
	default:
		return 0, fmt.Errorf("syntax %q: %w", syntax, ErrUnsupportedEdition)
	}
}

func (b *fileBuilder) findFile(name string) *FileDescriptor {
	var found *FileDescriptor
	seen := make(map[*FileDescriptor]bool)
	var walk func(f *FileDescriptor)
	walk = func(f *FileDescriptor) {
		if found != nil || seen[f] {
			return
		}
		seen[f] = true
		if f.Name == name {
			found = f
			return
		}
		for _, dep := range f.Dependencies {
			walk(dep)
		}
	}
	for _, dep := range b.deps {
		walk(dep)
	}
	if found == nil {
		found = b.r.files[name]
	}
	return found
}

func (b *fileBuilder) lookup(name string) any {
	if d, ok := b.staged[name]; ok {
		return d
	}
	if md, ok := b.mapEntries[name]; ok {
		return md
	}
	if d, ok := b.imported[name]; ok {
		return d
	}
	return b.r.types[name]
}

func (b *fileBuilder) define(name string, d any) error {
	if b.lookup(name) != nil {
		return fmt.Errorf("pbcodec: %s defined twice: %w", name, ErrDuplicateName)
	}
	if md, ok := d.(*MessageDescriptor); ok && md.mapEntry {
		b.mapEntries[name] = md
		return nil
	}
	b.staged[name] = d
	return nil
}

func (b *fileBuilder) resolveMessage(name, context string) (*MessageDescriptor, error) {
	name = strings.TrimPrefix(name, ".")
	md, ok := b.lookup(name).(*MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("pbcodec: %s: message type_name %q not found: %w", context, name, ErrUnresolvedType)
	}
	return md, nil
}

func (b *fileBuilder) resolveEnum(name, context string) (*EnumDescriptor, error) {
	name = strings.TrimPrefix(name, ".")
	ed, ok := b.lookup(name).(*EnumDescriptor)
	if !ok {
		return nil, fmt.Errorf("pbcodec: %s: enum type_name %q not found: %w", context, name, ErrUnresolvedType)
	}
	return ed, nil
}

func (b *fileBuilder) declareMessage(mp *Message, parent *MessageDescriptor, scope string, feat features) (*MessageDescriptor, error) {
	name := mp.str("name")
	opts := mp.msg("options")
	md := &MessageDescriptor{
		TypeName: qualify(scope, name),
		Name:     name,
		File:     b.file,
		Parent:   parent,
		Proto:    mp,
		mapEntry: opts.boolean("mapEntry"),
		features: feat.merge(opts),
	}
	if err := b.define(md.TypeName, md); err != nil {
		return nil, err
	}
	b.messages = append(b.messages, md)

	for _, np := range mp.msgs("nestedType") {
		child, err := b.declareMessage(np, md, md.TypeName, md.features)
		if err != nil {
			return nil, err
		}
		if !child.mapEntry {
			md.NestedMessages = append(md.NestedMessages, child)
		}
	}
	for _, ep := range mp.msgs("enumType") {
		ed, err := b.declareEnum(ep, md, md.TypeName, md.features)
		if err != nil {
			return nil, err
		}
		md.NestedEnums = append(md.NestedEnums, ed)
	}
	for _, xp := range mp.msgs("extension") {
		b.nestedExts = append(b.nestedExts, nestedExtension{proto: xp, scope: md})
	}
	return md, nil
}

func (b *fileBuilder) declareEnum(ep *Message, parent *MessageDescriptor, scope string, feat features) (*EnumDescriptor, error) {
	name := ep.str("name")
	feat = feat.merge(ep.msg("options"))
	ed := &EnumDescriptor{
		TypeName: qualify(scope, name),
		Name:     name,
		File:     b.file,
		Parent:   parent,
		Open:     feat.enumType == featureOpen,
		Proto:    ep,
	}
	for _, vp := range ep.msgs("value") {
		n, _ := vp.i32("number")
		ed.Values = append(ed.Values, &EnumValueDescriptor{
			Name:   vp.str("name"),
			Number: n,
			Parent: ed,
		})
	}
	if len(ed.Values) == 0 {
		return nil, fmt.Errorf("pbcodec: enum %s has no values: %w", ed.TypeName, ErrFieldValueInvalid)
	}
	ed.index()
	if err := b.define(ed.TypeName, ed); err != nil {
		return nil, err
	}
	return ed, nil
}

func (b *fileBuilder) buildFields(md *MessageDescriptor) error {
	mp := md.Proto
	for _, op := range mp.msgs("oneofDecl") {
		name := op.str("name")
		md.Oneofs = append(md.Oneofs, &OneofDescriptor{
			Name:      name,
			LocalName: camelCase(name),
			Parent:    md,
		})
	}
	for _, fp := range mp.msgs("field") {
		fd, err := b.buildField(fp, md.features, md.TypeName)
		if err != nil {
			return err
		}
		fd.Parent = md
		if idx, ok := fp.i32("oneofIndex"); ok && !fp.boolean("proto3Optional") {
			if idx < 0 || int(idx) >= len(md.Oneofs) {
				return fmt.Errorf("pbcodec: %s: oneof index %d out of range: %w", fd.FullName(), idx, ErrFieldValueInvalid)
			}
			od := md.Oneofs[idx]
			fd.Oneof = od
			od.Fields = append(od.Fields, fd)
		}
		md.Fields = append(md.Fields, fd)
	}
	// Synthetic oneofs of proto3 optional fields have no members.
	md.Oneofs = slices.DeleteFunc(md.Oneofs, func(od *OneofDescriptor) bool {
		return len(od.Fields) == 0
	})
	md.index()
	return nil
}

func (b *fileBuilder) buildField(fp *Message, feat features, scope string) (*FieldDescriptor, error) {
	name := fp.str("name")
	number, _ := fp.i32("number")
	label, _ := fp.i32("label")
	typ, _ := fp.i32("type")
	opts := fp.msg("options")
	feat = feat.merge(opts)
	full := qualify(scope, name)

	fd := &FieldDescriptor{
		Number:    number,
		Name:      name,
		LocalName: camelCase(name),
		JSONName:  camelCase(name),
		Proto:     fp,
	}
	if fp.has("jsonName") {
		fd.JSONName = fp.str("jsonName")
	}
	if number <= 0 {
		return nil, fmt.Errorf("pbcodec: %s: invalid field number %d: %w", full, number, ErrFieldValueInvalid)
	}

	elem, err := b.elementOf(fd, typ, fp.str("typeName"), full)
	if err != nil {
		return nil, err
	}

	if label == labelRepeated {
		fd.Presence = PresenceImplicit
		if elem == KindMessage && fd.Message.mapEntry {
			entry := fd.Message
			key, val := entry.FieldByNumber(1), entry.FieldByNumber(2)
			if key == nil || val == nil || key.Kind != KindScalar {
				return nil, fmt.Errorf("pbcodec: %s: malformed map entry %s: %w", full, entry.TypeName, ErrFieldValueInvalid)
			}
			fd.Kind = KindMap
			fd.MapKey = key.Scalar
			fd.ElemKind = val.ElemKind
			fd.Scalar = val.Scalar
			fd.Enum = val.Enum
			fd.Message = val.Message
		} else {
			fd.Kind = KindList
			fd.ElemKind = elem
			fd.Packed = packedOf(opts, elem, fd.Scalar, feat)
		}
	} else {
		fd.Kind = elem
		fd.ElemKind = elem
		fd.Presence = presenceOf(label, elem, fp.has("oneofIndex"), feat)
	}

	fd.Delimited = fd.Kind != KindMap && elem == KindMessage &&
		(typ == typeGroup || feat.messageEncoding == featureDelimited)
	fd.ValidateUTF8 = feat.utf8Validation == featureVerify
	if js, ok := opts.i32("jstype"); ok {
		fd.JSType = JSType(js)
	}

	if fp.has("defaultValue") {
		text := fp.str("defaultValue")
		switch elem {
		case KindEnum:
			v := fd.Enum.ValueByName(text)
			if v == nil {
				return nil, fmt.Errorf("pbcodec: %s: default %q is not a value of %s: %w", full, text, fd.Enum.TypeName, ErrFieldValueInvalid)
			}
			fd.Default = v.Number
		case KindScalar:
			v, err := scalar.ParseDefault(fd.Scalar, text)
			if err != nil {
				return nil, fmt.Errorf("pbcodec: %s: default %q: %w", full, text, err)
			}
			fd.Default = v
		}
	}
	fd.zero = zeroOf(fd)
	return fd, nil
}

// elementOf resolves the type of a single value of a field.
func (b *fileBuilder) elementOf(fd *FieldDescriptor, typ int32, typeName, context string) (Kind, error) {
	if typ == 0 && typeName != "" {
		// Unresolved descriptors leave the type out; infer it.
		switch b.lookup(strings.TrimPrefix(typeName, ".")).(type) {
		case *EnumDescriptor:
			typ = typeEnum
		default:
			typ = typeMessage
		}
	}
	switch typ {
	case typeMessage, typeGroup:
		md, err := b.resolveMessage(typeName, context)
		if err != nil {
			return 0, err
		}
		fd.Message = md
		return KindMessage, nil
	case typeEnum:
		ed, err := b.resolveEnum(typeName, context)
		if err != nil {
			return 0, err
		}
		fd.Enum = ed
		return KindEnum, nil
	}
	st := scalar.Type(typ)
	if !st.Valid() {
		return 0, fmt.Errorf("pbcodec: %s: invalid field type %d: %w", context, typ, ErrFieldValueInvalid)
	}
	fd.Scalar = st
	return KindScalar, nil
}

func presenceOf(label int32, elem Kind, inOneof bool, feat features) Presence {
	switch {
	case label == labelRequired:
		return PresenceLegacyRequired
	case inOneof, elem == KindMessage:
		return PresenceExplicit
	}
	return Presence(feat.fieldPresence)
}

func packedOf(opts *Message, elem Kind, st ScalarType, feat features) bool {
	if elem == KindMessage || (elem == KindScalar && !st.Packable()) {
		return false
	}
	if opts.has("packed") {
		return opts.boolean("packed")
	}
	return feat.repeatedFieldEncoding == featurePacked
}

// zeroOf returns the value a reflective getter reports for an unset field.
func zeroOf(fd *FieldDescriptor) any {
	if fd.Default != nil {
		return fd.Default
	}
	switch fd.ElemKind {
	case KindScalar:
		return fd.Scalar.Zero()
	case KindEnum:
		return fd.Enum.Values[0].Number
	}
	return nil
}

func (b *fileBuilder) buildExtension(xp *Message, scope *MessageDescriptor, scopeName string, feat features) (*ExtensionDescriptor, error) {
	fd, err := b.buildField(xp, feat, scopeName)
	if err != nil {
		return nil, err
	}
	xd := &ExtensionDescriptor{
		FieldDescriptor: fd,
		TypeName:        qualify(scopeName, fd.Name),
		Scope:           scope,
		File:            b.file,
	}
	fd.ext = xd
	xd.Extendee, err = b.resolveMessage(xp.str("extendee"), xd.TypeName)
	if err != nil {
		return nil, err
	}
	if fd.Kind != KindList && fd.Kind != KindMap && fd.Presence == PresenceImplicit {
		fd.Presence = PresenceExplicit
	}

	container := &MessageDescriptor{
		TypeName: xd.Extendee.TypeName,
		Name:     xd.Extendee.Name,
		File:     xd.Extendee.File,
		Fields:   []*FieldDescriptor{fd},
		features: xd.Extendee.features,
	}
	container.index()
	fd.Parent = container

	if err := b.define(xd.TypeName, xd); err != nil {
		return nil, err
	}
	return xd, nil
}

func (b *fileBuilder) buildService(sp *Message) (*ServiceDescriptor, error) {
	name := sp.str("name")
	sd := &ServiceDescriptor{
		TypeName: qualify(b.file.Package, name),
		Name:     name,
		File:     b.file,
		Proto:    sp,
	}
	for _, mp := range sp.msgs("method") {
		m := &MethodDescriptor{
			Name:            mp.str("name"),
			Parent:          sd,
			ClientStreaming: mp.boolean("clientStreaming"),
			ServerStreaming: mp.boolean("serverStreaming"),
		}
		var err error
		if m.Input, err = b.resolveMessage(mp.str("inputType"), m.FullName()); err != nil {
			return nil, err
		}
		if m.Output, err = b.resolveMessage(mp.str("outputType"), m.FullName()); err != nil {
			return nil, err
		}
		sd.Methods = append(sd.Methods, m)
	}
	if err := b.define(sd.TypeName, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// AddFileSet decodes a google.protobuf.FileDescriptorSet and adds each file
// in it. See [Registry.AddFiles].
func (r *Registry) AddFileSet(data []byte) ([]*FileDescriptor, error) {
	md, err := r.descriptorType("FileDescriptorSet")
	if err != nil {
		return nil, err
	}
	set, err := Unmarshal(md, data)
	if err != nil {
		return nil, fmt.Errorf("pbcodec: decoding file descriptor set: %w", err)
	}
	return r.AddFiles(set.msgs("file")...)
}

// AddFiles adds several google.protobuf.FileDescriptorProto messages, which
// may appear in any order; each file is added after the files it imports.
//
// Files whose name is already registered are skipped and the registered file
// is returned in their place. Import cycles are rejected with
// [ErrImportCycle]. Files added before a failure stay registered.
func (r *Registry) AddFiles(protos ...*Message) ([]*FileDescriptor, error) {
	byName := make(map[string]*Message, len(protos))
	names := make([]string, 0, len(protos))
	for _, p := range protos {
		name := p.str("name")
		if _, ok := byName[name]; !ok {
			names = append(names, name)
		}
		byName[name] = p
	}
	graph := scc.Graph[string](func(name string) iter.Seq[string] {
		return func(yield func(string) bool) {
			for _, dep := range byName[name].strs("dependency") {
				if _, ok := byName[dep]; ok && !yield(dep) {
					return
				}
			}
		}
	})

	added := make(map[string]*FileDescriptor, len(names))
	for _, c := range scc.Sort(names, graph) {
		if c.Cyclic {
			members := slices.Sorted(slices.Values(c.Members))
			return nil, fmt.Errorf("pbcodec: files %s: %w", strings.Join(members, ", "), ErrImportCycle)
		}
		for _, name := range c.Members {
			if f, ok := r.files[name]; ok {
				added[name] = f
				continue
			}
			f, err := r.AddFile(byName[name])
			if err != nil {
				return nil, err
			}
			added[name] = f
		}
	}

	out := make([]*FileDescriptor, len(names))
	for i, name := range names {
		out[i] = added[name]
	}
	return out, nil
}
