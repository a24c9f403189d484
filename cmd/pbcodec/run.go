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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	pbcodec "github.com/nyuiela/sub0cre-sub000"
	"github.com/nyuiela/sub0cre-sub000/internal/scalar"
)

const usage = `Usage: pbcodec <command> [flags] [file]

Commands:
  decode   read a binary message and write it as JSON
  encode   read a JSON message and write it in binary
  types    list the message types in the descriptor sets

Input is read from file, or from stdin if no file or "-" is given. JSON
input may contain comments and trailing commas.
`

// errUsage is returned when the command line cannot be understood. The
// usage text has already been printed.
var errUsage = errors.New("usage")

type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// run executes one pbcodec command line, without the program name.
func run(args []string, std stdio) error {
	if len(args) == 0 {
		fmt.Fprint(std.err, usage)
		return errUsage
	}
	command, args := args[0], args[1:]
	switch command {
	case "decode", "encode", "types":
	case "help", "-h", "--help":
		fmt.Fprint(std.out, usage)
		return nil
	default:
		fmt.Fprintf(std.err, "pbcodec: unknown command %q\n\n%s", command, usage)
		return errUsage
	}

	flags := pflag.NewFlagSet("pbcodec "+command, pflag.ContinueOnError)
	flags.SetOutput(std.err)
	flags.Usage = func() {
		fmt.Fprintf(std.err, "%s\nFlags:\n%s", usage, flags.FlagUsages())
	}
	cfg := defaultConfig()
	cfg.addFlags(flags)
	configPath := flags.StringP("config", "c", "", "YAML file with default settings")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if *configPath != "" {
		if err := cfg.load(*configPath, flags); err != nil {
			return err
		}
	}
	if err := cfg.validate(command != "types"); err != nil {
		return err
	}
	if flags.NArg() > 1 {
		return fmt.Errorf("too many arguments: %q", flags.Args())
	}

	logger := newLogger(cfg.Verbose, std.err)
	defer func() { _ = logger.Sync() }()

	s, err := newSession(cfg, logger, std.out)
	if err != nil {
		return err
	}
	if command == "types" {
		return s.types()
	}

	input, err := readInput(flags.Arg(0), std.in)
	if err != nil {
		return err
	}
	logger.Debug("read input",
		zap.String("command", command),
		zap.String("type", cfg.Type),
		zap.Int("bytes", len(input)))
	if command == "decode" {
		return s.decode(input)
	}
	return s.encode(input)
}

// newLogger returns a console logger writing to w, or a no-op logger.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// session is a loaded set of schemas and the codec over them.
type session struct {
	cfg    config
	codec  *pbcodec.Codec
	loaded map[string]bool
	out    io.Writer
	tty    bool
}

func newSession(cfg config, logger *zap.Logger, out io.Writer) (*session, error) {
	reg := pbcodec.NewRegistry(pbcodec.WithRegistryLogger(logger))
	loaded := make(map[string]bool)
	for _, path := range cfg.DescriptorSets {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files, err := reg.AddFileSet(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		for _, f := range files {
			loaded[f.Name] = true
		}
		logger.Debug("loaded descriptor set",
			zap.String("path", path),
			zap.Int("files", len(files)))
	}

	codec := pbcodec.NewCodec(reg,
		pbcodec.WithLogger(logger),
		pbcodec.WithUnmarshalOptions(pbcodec.WithDiscardUnknown(cfg.DiscardUnknown)),
		pbcodec.WithJSONOptions(
			pbcodec.WithProtoNames(cfg.ProtoNames),
			pbcodec.WithEmitDefaults(cfg.EmitDefaults),
			pbcodec.WithEnumAsInteger(cfg.EnumAsInteger),
			pbcodec.WithIgnoreUnknown(cfg.IgnoreUnknown),
		),
	)
	return &session{
		cfg:    cfg,
		codec:  codec,
		loaded: loaded,
		out:    out,
		tty:    isTerminal(out),
	}, nil
}

func (s *session) decode(input []byte) error {
	md, err := s.codec.Lookup(s.cfg.Type)
	if err != nil {
		return err
	}
	data, err := s.unwrap(input)
	if err != nil {
		return err
	}
	m, err := s.codec.Unmarshal(md, data)
	if err != nil {
		return err
	}
	out, err := s.codec.MarshalJSON(md, m)
	if err != nil {
		return err
	}

	indent := s.cfg.Indent
	if indent == "" && s.tty {
		indent = "  "
	}
	if indent != "" {
		buf := new(bytes.Buffer)
		if err := json.Indent(buf, out, "", indent); err != nil {
			return err
		}
		out = buf.Bytes()
	}
	_, err = s.out.Write(append(out, '\n'))
	return err
}

// unwrap undoes the text encoding of binary input.
func (s *session) unwrap(input []byte) ([]byte, error) {
	switch s.cfg.Format {
	case formatHex:
		data, err := hex.DecodeString(strings.Join(strings.Fields(string(input)), ""))
		if err != nil {
			return nil, fmt.Errorf("invalid hex input: %w", err)
		}
		return data, nil
	case formatBase64:
		data, err := scalar.DecodeBase64(strings.TrimSpace(string(input)))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 input: %w", err)
		}
		return data, nil
	}
	return input, nil
}

func (s *session) encode(input []byte) error {
	md, err := s.codec.Lookup(s.cfg.Type)
	if err != nil {
		return err
	}
	m, err := s.codec.UnmarshalJSON(md, jsonc.ToJSON(input))
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(md, m)
	if err != nil {
		return err
	}

	switch s.cfg.Format {
	case formatHex:
		data = []byte(hex.EncodeToString(data) + "\n")
	case formatBase64:
		data = []byte(scalar.EncodeBase64(data) + "\n")
	default:
		if s.tty {
			return errors.New("refusing to write binary to a terminal; use --format hex or base64")
		}
	}
	_, err = s.out.Write(data)
	return err
}

// types lists the messages defined by the loaded files, in name order.
func (s *session) types() error {
	for name, d := range s.codec.Registry().Range() {
		md, ok := d.(*pbcodec.MessageDescriptor)
		if !ok || md.IsMapEntry() || !s.loaded[md.File.Name] {
			continue
		}
		if _, err := fmt.Fprintln(s.out, name); err != nil {
			return err
		}
	}
	return nil
}
