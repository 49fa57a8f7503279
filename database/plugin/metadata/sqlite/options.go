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

package sqlite

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type SqliteOptionFunc func(*MetadataStoreSqlite)

func WithLogger(logger *slog.Logger) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.promRegistry = registry
	}
}

// WithDataDir stores the database in <dataDir>/metadata.sqlite. An empty
// dataDir uses a private in-memory database.
func WithDataDir(dataDir string) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.dataDir = dataDir
	}
}

// WithBusyTimeout sets how many milliseconds to wait for a locked database
func WithBusyTimeout(timeout int) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.busyTimeout = timeout
	}
}

// WithJournalMode sets the SQLite journal mode of on-disk databases
func WithJournalMode(mode string) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.journalMode = mode
	}
}

// WithVacuum enables the daily VACUUM of on-disk databases
func WithVacuum(vacuum bool) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.vacuum = vacuum
	}
}
