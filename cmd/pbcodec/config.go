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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// config holds the settings shared by all subcommands. Every setting can
// come from the YAML file named by --config; flags given on the command
// line take precedence.
type config struct {
	DescriptorSets []string `yaml:"descriptor_sets"`
	Type           string   `yaml:"type"`
	Format         string   `yaml:"format"`
	Indent         string   `yaml:"indent"`

	ProtoNames     bool `yaml:"proto_names"`
	EmitDefaults   bool `yaml:"emit_defaults"`
	EnumAsInteger  bool `yaml:"enum_as_integer"`
	DiscardUnknown bool `yaml:"discard_unknown"`
	IgnoreUnknown  bool `yaml:"ignore_unknown"`
	Verbose        bool `yaml:"verbose"`
}

// Input and output encodings of binary messages.
const (
	formatBinary = "binary"
	formatHex    = "hex"
	formatBase64 = "base64"
)

func defaultConfig() config {
	return config{Format: formatBinary}
}

// addFlags binds c to flags.
func (c *config) addFlags(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&c.DescriptorSets, "descriptor-set", "d", nil,
		"FileDescriptorSet to load schemas from, as written by protoc -o or buf build; may be repeated")
	flags.StringVarP(&c.Type, "type", "t", "", "fully-qualified name of the message type")
	flags.StringVarP(&c.Format, "format", "f", c.Format, "encoding of binary messages: binary, hex or base64")
	flags.StringVar(&c.Indent, "indent", "", "indent JSON output with this string; defaults to two spaces on a terminal")
	flags.BoolVar(&c.ProtoNames, "proto-names", false, "use proto field names in JSON output instead of lowerCamelCase")
	flags.BoolVar(&c.EmitDefaults, "emit-defaults", false, "emit fields without presence that hold their zero value")
	flags.BoolVar(&c.EnumAsInteger, "enum-as-integer", false, "write enum values as numbers")
	flags.BoolVar(&c.DiscardUnknown, "discard-unknown", false, "drop unknown fields when decoding binary input")
	flags.BoolVar(&c.IgnoreUnknown, "ignore-unknown", false, "skip unknown keys in JSON input")
	flags.BoolVarP(&c.Verbose, "verbose", "v", false, "log debugging information to stderr")
}

// fromFile copies each setting of file into c whose flag was not given on
// the command line.
var fromFile = map[string]func(c, file *config){
	"descriptor-set":  func(c, file *config) { c.DescriptorSets = file.DescriptorSets },
	"type":            func(c, file *config) { c.Type = file.Type },
	"format":          func(c, file *config) { c.Format = file.Format },
	"indent":          func(c, file *config) { c.Indent = file.Indent },
	"proto-names":     func(c, file *config) { c.ProtoNames = file.ProtoNames },
	"emit-defaults":   func(c, file *config) { c.EmitDefaults = file.EmitDefaults },
	"enum-as-integer": func(c, file *config) { c.EnumAsInteger = file.EnumAsInteger },
	"discard-unknown": func(c, file *config) { c.DiscardUnknown = file.DiscardUnknown },
	"ignore-unknown":  func(c, file *config) { c.IgnoreUnknown = file.IgnoreUnknown },
	"verbose":         func(c, file *config) { c.Verbose = file.Verbose },
}

// load merges the YAML file at path into c.
func (c *config) load(path string, flags *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, err)
	}
	for name, apply := range fromFile {
		if !flags.Changed(name) {
			apply(c, &file)
		}
	}
	return nil
}

func (c *config) validate(needType bool) error {
	if len(c.DescriptorSets) == 0 {
		return fmt.Errorf("no descriptor set given; use --descriptor-set")
	}
	if needType && c.Type == "" {
		return fmt.Errorf("no message type given; use --type")
	}
	switch c.Format {
	case formatBinary, formatHex, formatBase64:
		return nil
	}
	return fmt.Errorf("unknown format %q; want binary, hex or base64", c.Format)
}
