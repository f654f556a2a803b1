// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package iss

import (
	"fmt"
)

// Kind classifies errors returned by this package. Match it with errors.Is:
//
//	if errors.Is(err, iss.ErrNotFound) { ... }
type Kind string

func (k Kind) Error() string { return string(k) }

// Error kinds.
const (
	ErrNotFound             = Kind("not found")
	ErrUnknownParameter     = Kind("unknown parameter")
	ErrInvalidValue         = Kind("invalid value")
	ErrMissingPathParameter = Kind("missing path parameter")
	ErrValidationRegistry   = Kind("no validation registered")
	ErrTransport            = Kind("transport failure")
)

// Error is a classified error with a human-readable description, usually of
// the accepted values.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // the cause, if any
}

var _ error = &Error{}

func (e *Error) Error() string {
	s := string(e.Kind) + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

func newError(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(k Kind, err error, format string, args ...interface{}) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: err}
}
