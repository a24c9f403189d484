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
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Encoder writes messages in the binary and JSON formats.
type Encoder interface {
	Marshal(md *MessageDescriptor, m *Message) ([]byte, error)
	MarshalJSON(md *MessageDescriptor, m *Message) ([]byte, error)
}

// Decoder reads messages in the binary and JSON formats.
type Decoder interface {
	Unmarshal(md *MessageDescriptor, data []byte) (*Message, error)
	UnmarshalJSON(md *MessageDescriptor, data []byte) (*Message, error)
}

var (
	_ Encoder = (*Codec)(nil)
	_ Decoder = (*Codec)(nil)
)

// Codec bundles a [Registry] with encoding options.
//
// A Codec may be used from multiple goroutines once its registry is fully
// populated.
type Codec struct {
	registry  *Registry
	logger    *zap.Logger
	unmarshal []UnmarshalOption
	marshal   []MarshalOption
	json      []JSONOption
}

// CodecOption is a configuration setting for [NewCodec].
type CodecOption struct{ apply func(*Codec) }

// WithLogger sets the logger that encoding and decoding failures are
// reported to, at debug level.
func WithLogger(logger *zap.Logger) CodecOption {
	return CodecOption{func(c *Codec) { c.logger = logger }}
}

// WithUnmarshalOptions sets options for binary decoding.
func WithUnmarshalOptions(opts ...UnmarshalOption) CodecOption {
	return CodecOption{func(c *Codec) { c.unmarshal = append(c.unmarshal, opts...) }}
}

// WithMarshalOptions sets options for binary encoding.
func WithMarshalOptions(opts ...MarshalOption) CodecOption {
	return CodecOption{func(c *Codec) { c.marshal = append(c.marshal, opts...) }}
}

// WithJSONOptions sets options for JSON encoding and decoding. The codec's
// registry is always used to resolve types.
func WithJSONOptions(opts ...JSONOption) CodecOption {
	return CodecOption{func(c *Codec) { c.json = append(c.json, opts...) }}
}

// NewCodec returns a codec over r. If r is nil, a new registry is created.
func NewCodec(r *Registry, opts ...CodecOption) *Codec {
	if r == nil {
		r = NewRegistry()
	}
	c := &Codec{registry: r}
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(c)
		}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.json = append([]JSONOption{WithRegistry(r)}, c.json...)
	return c
}

// Registry returns the codec's registry.
func (c *Codec) Registry() *Registry { return c.registry }

// Lookup returns the message type with the given fully-qualified name.
func (c *Codec) Lookup(name string) (*MessageDescriptor, error) {
	md, ok := c.registry.Message(name)
	if !ok {
		return nil, fmt.Errorf("pbcodec: message %q: %w", name, ErrUnresolvedType)
	}
	return md, nil
}

// Marshal implements [Encoder].
func (c *Codec) Marshal(md *MessageDescriptor, m *Message) ([]byte, error) {
	data, err := Marshal(md, m, c.marshal...)
	return data, c.report("marshal", md, err)
}

// MarshalJSON implements [Encoder].
func (c *Codec) MarshalJSON(md *MessageDescriptor, m *Message) ([]byte, error) {
	data, err := MarshalJSON(md, m, c.json...)
	return data, c.report("marshal json", md, err)
}

// Unmarshal implements [Decoder].
func (c *Codec) Unmarshal(md *MessageDescriptor, data []byte) (*Message, error) {
	m, err := Unmarshal(md, data, c.unmarshal...)
	return m, c.report("unmarshal", md, err, zap.Int("bytes", len(data)))
}

// UnmarshalJSON implements [Decoder].
func (c *Codec) UnmarshalJSON(md *MessageDescriptor, data []byte) (*Message, error) {
	m, err := UnmarshalJSON(md, data, c.json...)
	return m, c.report("unmarshal json", md, err, zap.Int("bytes", len(data)))
}

// ToJSON is like [ToJSON], with the codec's options.
func (c *Codec) ToJSON(md *MessageDescriptor, m *Message) (any, error) {
	tree, err := ToJSON(md, m, c.json...)
	return tree, c.report("to json", md, err)
}

// FromJSON is like [FromJSON], with the codec's options.
func (c *Codec) FromJSON(md *MessageDescriptor, tree any) (*Message, error) {
	m, err := FromJSON(md, tree, c.json...)
	return m, c.report("from json", md, err)
}

func (c *Codec) report(op string, md *MessageDescriptor, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("type", md.TypeName), zap.Error(err))
	var perr *ParseError
	if errors.As(err, &perr) {
		fields = append(fields, zap.Int("offset", perr.Offset()))
	}
	c.logger.Debug(op+" failed", fields...)
	return err
}
