// error.go
//
// Macro AI chat service backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of macroai.
// macroai is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// macroai is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with macroai.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error and fixes its HTTP status.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
	KindDatabase     Kind = "database"
)

const (
	msgNotFound = "Resource not found"
	msgInternal = "Internal server error"
)

// Error is the typed error carried through repositories and services.
// Op names the originating operation for log correlation and is never
// shown to clients.
type Error struct {
	Kind    Kind   `json:"type"`
	Op      string `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("[%s]: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to its HTTP status code.
func (e *Error) Status() int {
	return StatusFor(e.Kind)
}

// PublicMessage is the client-safe message for the error.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindNotFound:
		return msgNotFound
	case KindValidation, KindUnauthorized, KindForbidden, KindConflict:
		if e.Message != "" {
			return e.Message
		}
		return http.StatusText(e.Status())
	default:
		return msgInternal
	}
}

// StatusFor returns the fixed HTTP status for a kind.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error of the given kind around a cause. A cause that is
// already an *Error is returned as is.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func NewValidationError(op, message string) *Error {
	return New(KindValidation, op, message)
}

func NewUnauthorizedError(op, message string) *Error {
	return New(KindUnauthorized, op, message)
}

func NewForbiddenError(op, message string) *Error {
	return New(KindForbidden, op, message)
}

func NewNotFoundError(op, message string) *Error {
	return New(KindNotFound, op, message)
}

func NewConflictError(op, message string) *Error {
	return New(KindConflict, op, message)
}

func NewInternalError(op, message string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: message, Err: err}
}

func NewDatabaseError(op, message string, err error) *Error {
	return &Error{Kind: KindDatabase, Op: op, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
