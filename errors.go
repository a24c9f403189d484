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

	"github.com/nyuiela/sub0cre-sub000/internal/wire"
	"github.com/nyuiela/sub0cre-sub000/internal/xerrors"
)

// Errors returned by this package. Use [errors.Is] to classify a failure;
// the concrete error carries the location it occurred at.
var (
	// Binary decoding.
	ErrInvalidVarint   = xerrors.InvalidVarint
	ErrPrematureEOF    = xerrors.PrematureEOF
	ErrIllegalTag      = xerrors.IllegalTag
	ErrInvalidEndGroup = xerrors.InvalidEndGroup
	ErrRecursionDepth  = xerrors.RecursionDepth

	// Field values and reflection.
	ErrFieldValueInvalid  = xerrors.FieldValueInvalid
	ErrInvalidUTF8        = xerrors.InvalidUTF8
	ErrFieldListRange     = xerrors.FieldListRange
	ErrForeignField       = xerrors.ForeignField
	ErrRequiredFieldUnset = xerrors.RequiredFieldUnset

	// JSON.
	ErrUnknownJSONKey = xerrors.UnknownJSONKey
	ErrInvalidJSON    = xerrors.InvalidJSON

	// Descriptors and the registry.
	ErrUnresolvedType     = xerrors.UnresolvedType
	ErrFileNotFound       = xerrors.FileNotFound
	ErrUnsupportedEdition = xerrors.UnsupportedEdition
	ErrDuplicateName      = xerrors.DuplicateName
	ErrImportCycle        = xerrors.ImportCycle
)

// ParseError is returned when binary input is malformed.
//
// It implements
//
//	Offset() int
//
// which returns the offset into the input at which the error occurred.
type ParseError = wire.Error

// FieldError is an error attributed to a particular field, oneof, list item
// or map entry.
type FieldError struct {
	// Field is the fully-qualified name of the field or oneof, optionally
	// followed by positional context such as a list index.
	Field string
	Err   error
}

// Error implements [error].
func (e *FieldError) Error() string {
	return fmt.Sprintf("pbcodec: %s: %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping viz [errors.Unwrap].
func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErrorf(fd *FieldDescriptor, kind error, format string, args ...any) *FieldError {
	return &FieldError{
		Field: fd.FullName(),
		Err:   fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind),
	}
}

func foreignField(fd *FieldDescriptor, md *MessageDescriptor) *FieldError {
	return fieldErrorf(fd, ErrForeignField, "not a field of %s", md.TypeName)
}

// wrapField attributes err to fd, adding a positional prefix if one is given.
func wrapField(fd *FieldDescriptor, where string, err error) error {
	if err == nil {
		return nil
	}
	name := fd.FullName()
	if where != "" {
		name += " (" + where + ")"
	}
	return &FieldError{Field: name, Err: err}
}
