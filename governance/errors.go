// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package governance

import (
	"errors"
	"fmt"
)

// Code is a machine-readable governance error code
type Code string

const (
	CodeInsufficientRights     Code = "INSUFFICIENT_RIGHTS"
	CodeUnknownMember          Code = "UNKNOWN_MEMBER"
	CodeUnknownAction          Code = "UNKNOWN_ACTION"
	CodeProposalNotFound       Code = "PROPOSAL_NOT_FOUND"
	CodeProposalClosed         Code = "PROPOSAL_CLOSED"
	CodeAlreadyCompleted       Code = "ALREADY_COMPLETED"
	CodeNotProposer            Code = "NOT_PROPOSER"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeActionFailure          Code = "ACTION_FAILURE"
)

// Error is a typed governance failure. Two errors match with errors.Is when
// their codes are equal, so callers can compare against the Err* sentinels.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInsufficientRights     = &Error{Code: CodeInsufficientRights}
	ErrUnknownMember          = &Error{Code: CodeUnknownMember}
	ErrUnknownAction          = &Error{Code: CodeUnknownAction}
	ErrProposalNotFound       = &Error{Code: CodeProposalNotFound}
	ErrProposalClosed         = &Error{Code: CodeProposalClosed}
	ErrAlreadyCompleted       = &Error{Code: CodeAlreadyCompleted}
	ErrNotProposer            = &Error{Code: CodeNotProposer}
	ErrInvalidStateTransition = &Error{Code: CodeInvalidStateTransition}
	ErrActionFailure          = &Error{Code: CodeActionFailure}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewError builds a governance error with the given code and message. It is
// used by transports to rebuild errors received from a remote service.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the governance code carried by err, if any
func CodeOf(err error) (Code, bool) {
	var govErr *Error
	if errors.As(err, &govErr) {
		return govErr.Code, true
	}
	var actionErr *ActionFailure
	if errors.As(err, &actionErr) {
		return CodeActionFailure, true
	}
	return "", false
}

// ActionFailure reports that the effect of a completed proposal could not be
// applied. It never undoes the completion of the proposal.
type ActionFailure struct {
	Kind  ActionKind
	Cause error
}

func (f *ActionFailure) Error() string {
	return fmt.Sprintf("%s: %s action failed: %s", CodeActionFailure, f.Kind, f.Cause)
}

func (f *ActionFailure) Unwrap() error {
	return f.Cause
}

func (f *ActionFailure) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeActionFailure
}
