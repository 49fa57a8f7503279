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
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/database/plugin"
)

const (
	DefaultBlockCacheSize = 64 << 20
	DefaultIndexCacheSize = 16 << 20
	DefaultGcInterval     = 5 * time.Minute
)

// Values populated from flags, env vars and the config file
var (
	pluginOptions = struct {
		blockCacheSize    uint64
		indexCacheSize    uint64
		gcIntervalSeconds uint64
		syncWrites        bool
	}{}
	pluginOptionsMutex sync.RWMutex
)

func init() {
	pluginOptions.blockCacheSize = DefaultBlockCacheSize
	pluginOptions.indexCacheSize = DefaultIndexCacheSize
	pluginOptions.gcIntervalSeconds = uint64(DefaultGcInterval / time.Second)
	pluginOptions.syncWrites = true
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB store for tables, the transaction log and counters",
			NewFromOptionsFunc: newFromPluginOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "block cache size in bytes",
					DefaultValue: uint64(DefaultBlockCacheSize),
					Dest:         &pluginOptions.blockCacheSize,
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "index cache size in bytes",
					DefaultValue: uint64(DefaultIndexCacheSize),
					Dest:         &pluginOptions.indexCacheSize,
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "seconds between value log GC runs, 0 to disable",
					DefaultValue: pluginOptions.gcIntervalSeconds,
					Dest:         &pluginOptions.gcIntervalSeconds,
				},
				{
					Name:         "sync-writes",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "sync the value log to disk on every commit",
					DefaultValue: true,
					Dest:         &pluginOptions.syncWrites,
				},
			},
		},
	)
}

func newFromPluginOptions(runtime plugin.RuntimeOptions) plugin.Plugin {
	pluginOptionsMutex.RLock()
	opts := []BlobStoreBadgerOptionFunc{
		WithDataDir(runtime.DataDir),
		WithLogger(runtime.Logger),
		WithPromRegistry(runtime.PromRegistry),
		WithCacheSizes(pluginOptions.blockCacheSize, pluginOptions.indexCacheSize),
		WithGc(time.Duration(pluginOptions.gcIntervalSeconds) * time.Second), //nolint:gosec
		WithSyncWrites(pluginOptions.syncWrites),
	}
	pluginOptionsMutex.RUnlock()
	store, err := New(opts...)
	if err != nil {
		// Surface the error from Start()
		return plugin.NewErrorPlugin(err)
	}
	return store
}
