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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type BlobStoreBadgerOptionFunc func(*BlobStoreBadger)

func WithLogger(logger *slog.Logger) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.promRegistry = registry
	}
}

// WithDataDir stores data under <dataDir>/blob. An empty dataDir keeps
// everything in memory.
func WithDataDir(dataDir string) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.dataDir = dataDir
	}
}

// WithCacheSizes sets the badger block and index cache sizes in bytes
func WithCacheSizes(blockCacheSize, indexCacheSize uint64) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.blockCacheSize = blockCacheSize
		b.indexCacheSize = indexCacheSize
	}
}

// WithGc enables value log garbage collection at the given interval. A zero
// interval disables it.
func WithGc(interval time.Duration) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.gcInterval = interval
	}
}

// WithSyncWrites makes every commit wait for the value log to reach disk
func WithSyncWrites(syncWrites bool) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.syncWrites = syncWrites
	}
}
