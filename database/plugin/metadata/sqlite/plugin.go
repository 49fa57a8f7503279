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
	"sync"

	"github.com/blinklabs-io/gavel/database/plugin"
)

const (
	DefaultBusyTimeout = 5000
	DefaultJournalMode = "WAL"
)

// Values populated from flags, env vars and the config file
var (
	pluginOptions = struct {
		journalMode string
		busyTimeout int
		vacuum      bool
	}{
		journalMode: DefaultJournalMode,
		busyTimeout: DefaultBusyTimeout,
		vacuum:      true,
	}
	pluginOptionsMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite store for members, proposals, votes, nodes and users",
			NewFromOptionsFunc: newFromPluginOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeInt,
					Description:  "milliseconds to wait for a locked database",
					DefaultValue: DefaultBusyTimeout,
					Dest:         &pluginOptions.busyTimeout,
				},
				{
					Name:         "journal-mode",
					Type:         plugin.PluginOptionTypeString,
					Description:  "journal mode of the on-disk database",
					DefaultValue: DefaultJournalMode,
					Dest:         &pluginOptions.journalMode,
				},
				{
					Name:         "vacuum",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "run a daily VACUUM on the on-disk database",
					DefaultValue: true,
					Dest:         &pluginOptions.vacuum,
				},
			},
		},
	)
}

func newFromPluginOptions(runtime plugin.RuntimeOptions) plugin.Plugin {
	pluginOptionsMutex.RLock()
	opts := []SqliteOptionFunc{
		WithDataDir(runtime.DataDir),
		WithLogger(runtime.Logger),
		WithPromRegistry(runtime.PromRegistry),
		WithBusyTimeout(pluginOptions.busyTimeout),
		WithJournalMode(pluginOptions.journalMode),
		WithVacuum(pluginOptions.vacuum),
	}
	pluginOptionsMutex.RUnlock()
	store, err := NewWithOptions(opts...)
	if err != nil {
		// Surface the error from Start()
		return plugin.NewErrorPlugin(err)
	}
	return store
}
