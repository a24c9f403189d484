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

// Package xerrors holds the sentinel errors shared by the codec's internal
// packages. The root package re-exports each of them.
package xerrors

import (
	"errors"
	"fmt"
	"io"
)

// Wire-level failures.
var (
	InvalidVarint   = errors.New("invalid varint")
	PrematureEOF    = fmt.Errorf("premature EOF: %w", io.ErrUnexpectedEOF)
	IllegalTag      = errors.New("illegal tag")
	InvalidEndGroup = errors.New("invalid end group")
	RecursionDepth  = errors.New("exceeded maximum recursion depth")
)

// Value and schema failures.
var (
	FieldValueInvalid  = errors.New("invalid field value")
	InvalidUTF8        = fmt.Errorf("invalid UTF-8: %w", FieldValueInvalid)
	FieldListRange     = errors.New("list index out of range")
	ForeignField       = errors.New("foreign field")
	RequiredFieldUnset = errors.New("required field not set")
	UnknownJSONKey     = errors.New("unknown JSON key")
	InvalidJSON        = errors.New("invalid JSON")

	UnresolvedType     = errors.New("unresolved type reference")
	FileNotFound       = errors.New("file not found")
	UnsupportedEdition = errors.New("unsupported edition")
	DuplicateName      = errors.New("duplicate name")
	ImportCycle        = errors.New("import cycle")
)
