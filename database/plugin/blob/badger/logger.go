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

package badger

import (
	"fmt"
	"log/slog"
	"strings"
)

// BadgerLogger adapts an slog.Logger to the badger logging interface
type BadgerLogger struct {
	logger *slog.Logger
}

func NewBadgerLogger(logger *slog.Logger) *BadgerLogger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BadgerLogger{
		logger: logger.With("component", "database"),
	}
}

func (b *BadgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(badgerMessage(msg, args))
}

func (b *BadgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(badgerMessage(msg, args))
}

func (b *BadgerLogger) Infof(msg string, args ...any) {
	b.logger.Info(badgerMessage(msg, args))
}

func (b *BadgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(badgerMessage(msg, args))
}

// badger terminates its messages with a newline
func badgerMessage(msg string, args []any) string {
	return "blob DB: " + strings.TrimSpace(fmt.Sprintf(msg, args...))
}
