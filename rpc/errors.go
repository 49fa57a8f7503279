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

package rpc

import (
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/blinklabs-io/gavel/governance"
)

// ErrorCodeHeader carries the governance error code of a failed call
const ErrorCodeHeader = "Gavel-Error-Code"

var connectCodes = map[governance.Code]connect.Code{
	governance.CodeInsufficientRights:     connect.CodePermissionDenied,
	governance.CodeNotProposer:            connect.CodePermissionDenied,
	governance.CodeUnknownMember:          connect.CodeNotFound,
	governance.CodeProposalNotFound:       connect.CodeNotFound,
	governance.CodeUnknownAction:          connect.CodeInvalidArgument,
	governance.CodeProposalClosed:         connect.CodeFailedPrecondition,
	governance.CodeAlreadyCompleted:       connect.CodeFailedPrecondition,
	governance.CodeInvalidStateTransition: connect.CodeFailedPrecondition,
	governance.CodeActionFailure:          connect.CodeInternal,
}

// toConnectError converts a governance error into a connect error carrying
// the governance code. Other errors become internal errors.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	code, ok := governance.CodeOf(err)
	if !ok {
		return connect.NewError(connect.CodeInternal, err)
	}
	connectCode, ok := connectCodes[code]
	if !ok {
		connectCode = connect.CodeInternal
	}
	connectErr := connect.NewError(connectCode, err)
	connectErr.Meta().Set(ErrorCodeHeader, string(code))
	return connectErr
}

// fromConnectError rebuilds the governance error from a failed call, if it
// carries a governance code
func fromConnectError(err error) error {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}
	code := connectErr.Meta().Get(ErrorCodeHeader)
	if code == "" {
		return err
	}
	message := strings.TrimPrefix(connectErr.Message(), code+": ")
	return governance.NewError(governance.Code(code), message)
}
