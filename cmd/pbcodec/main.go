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

// pbcodec converts Protobuf messages between the binary wire format and
// JSON, using the schemas in compiled FileDescriptorSets.
//
// Usage:
//
//	pbcodec decode -d schema.binpb -t pkg.Message [flags] [file]
//	pbcodec encode -d schema.binpb -t pkg.Message [flags] [file]
//	pbcodec types -d schema.binpb
//
// Descriptor sets are produced by protoc -o or buf build. Settings may also
// be read from a YAML file given with --config.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := run(os.Args[1:], stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	if err == nil {
		return
	}
	if !errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "pbcodec: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
