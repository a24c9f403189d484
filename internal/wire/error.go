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

package wire

import (
	"fmt"

	"github.com/nyuiela/sub0cre-sub000/internal/xerrors"
)

// Code identifies why decoding failed.
type Code int

const (
	CodeOK Code = iota
	// These match the negative lengths returned by protowire.
	CodeTruncated
	CodeFieldNumber
	CodeOverflow
	CodeReserved
	CodeEndGroup
	CodeRecursionDepth

	CodeUTF8
)

var codes = [...]error{
	CodeOK:             nil,
	CodeTruncated:      xerrors.PrematureEOF,
	CodeFieldNumber:    xerrors.IllegalTag,
	CodeOverflow:       xerrors.InvalidVarint,
	CodeReserved:       xerrors.IllegalTag,
	CodeEndGroup:       xerrors.InvalidEndGroup,
	CodeRecursionDepth: xerrors.RecursionDepth,
	CodeUTF8:           xerrors.InvalidUTF8,
}

// Error is returned by [Reader] when the input is malformed.
type Error struct {
	Code   Code
	offset int
}

// NewError returns an error with the given code at offset.
func NewError(code Code, offset int) *Error {
	return &Error{Code: code, offset: offset}
}

// Offset returns the offset at which the error occurred.
func (e *Error) Offset() int {
	return e.offset
}

// Unwrap implements error unwrapping viz [errors.Unwrap].
func (e *Error) Unwrap() error {
	return codes[e.Code]
}

// Error implements [error].
func (e *Error) Error() string {
	return fmt.Sprintf("pbcodec: parse error at offset %d/%#x: %v", e.offset, e.offset, e.Unwrap())
}

// codeOf converts a negative protowire length into a [Code].
func codeOf(n int) Code {
	code := Code(-n)
	if code <= CodeOK || code > CodeRecursionDepth {
		return CodeTruncated
	}
	return code
}
