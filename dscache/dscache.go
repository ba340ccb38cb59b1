// Copyright 2025 The Distcache Authors.
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

// Package dscache implements the distcache contract on top of Cloud
// Datastore.
//
// Each entry is a CacheEntry row ancestor-keyed under a CachePartition
// root entity, so (partition, key) is the row identity and the store
// itself guarantees at most one live row per identity. All entries
// managed by one Cache share one partition.
//
// The datastore client is taken from the context: install it with
// "go.chromium.org/luci/gae/impl/cloud" in production or
// "go.chromium.org/luci/gae/impl/memory" in tests. Datastore failures are
// tagged transient and propagated as is; this layer does not retry.
package dscache

import (
	"context"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/gae/service/datastore"
	"go.chromium.org/luci/grpc/grpcutil"

	"github.com/cachewell/distcache"
)

const (
	entryKind     = "CacheEntry"
	partitionKind = "CachePartition"
)

// entry is one cached value.
type entry struct {
	_kind string `gae:"$kind,CacheEntry"`

	Parent *datastore.Key `gae:"$parent"`
	Key    string         `gae:"$id"`

	Payload []byte `gae:",noindex"`

	// Options is the JSON snapshot of the distcache.Options supplied at
	// write time, reapplied by Refresh.
	Options []byte `gae:",noindex"`

	// AbsoluteExpiration is the recorded policy deadline. The zero time
	// means the entry never expires. Indexed so Cleanup can range-scan.
	AbsoluteExpiration time.Time

	// Revision is an opaque token renewed on every write. It is carried as
	// row metadata only: writes are blind upserts and never check it.
	Revision  int64     `gae:",noindex"`
	UpdatedTS time.Time `gae:",noindex"`
}

// Cache implements distcache.Cache over Cloud Datastore.
//
// It is immutable after construction and safe for unsynchronized
// concurrent use.
type Cache struct {
	partition string
}

var _ distcache.Cache = (*Cache)(nil)

// New returns a cache whose entries all live under the given partition.
func New(partition string) (*Cache, error) {
	if partition == "" {
		return nil, errors.New("dscache: partition is empty", grpcutil.InvalidArgumentTag)
	}
	return &Cache{partition: partition}, nil
}

// Partition returns the partition this cache writes under.
func (c *Cache) Partition() string { return c.partition }

// Expiration implements distcache.Cache.
func (c *Cache) Expiration() distcache.ExpirationSupport { return distcache.ExpirationFull }

func (c *Cache) partitionKey(ctx context.Context) *datastore.Key {
	return datastore.NewKey(ctx, partitionKind, c.partition, 0, nil)
}

// Get implements distcache.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	ent, err := c.load(ctx, key)
	switch {
	case err != nil:
		return nil, err
	case ent == nil:
		return nil, distcache.ErrNotFound
	}
	if distcache.ExpiredAt(ent.AbsoluteExpiration, clock.Now(ctx)) {
		if err := c.evict(ctx, ent); err != nil {
			return nil, err
		}
		return nil, distcache.ErrNotFound
	}
	return ent.Payload, nil
}

// Set implements distcache.Cache.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, opts distcache.Options) error {
	if err := distcache.CheckKey(key); err != nil {
		return err
	}
	if err := distcache.CheckPayload(payload); err != nil {
		return err
	}
	now := clock.Now(ctx).UTC()
	deadline, err := opts.DeadlineAt(now)
	if err != nil {
		return err
	}
	snapshot, err := distcache.MarshalOptions(opts)
	if err != nil {
		return err
	}
	return c.put(ctx, &entry{
		Parent:             c.partitionKey(ctx),
		Key:                key,
		Payload:            payload,
		Options:            snapshot,
		AbsoluteExpiration: deadline,
		Revision:           now.UnixNano(),
		UpdatedTS:          now,
	})
}

// Refresh implements distcache.Cache.
//
// It recomputes the entry's deadline from the current clock using the
// options snapshot recorded at write time, i.e. it re-runs the Set write
// path with the original configuration.
func (c *Cache) Refresh(ctx context.Context, key string) error {
	ent, err := c.load(ctx, key)
	switch {
	case err != nil:
		return err
	case ent == nil:
		return nil
	}
	now := clock.Now(ctx).UTC()
	if distcache.ExpiredAt(ent.AbsoluteExpiration, now) {
		return c.evict(ctx, ent)
	}
	opts, err := distcache.UnmarshalOptions(ent.Options)
	if err != nil {
		// The row exists but its snapshot cannot be decoded. This is data
		// corruption, not something to repair on the fly.
		return grpcutil.InternalTag.Apply(errors.Fmt("dscache: entry %q has a bad options snapshot: %w", key, err))
	}
	deadline, err := opts.DeadlineAt(now)
	if err != nil {
		return err
	}
	ent.AbsoluteExpiration = deadline
	ent.Revision = now.UnixNano()
	ent.UpdatedTS = now
	return c.put(ctx, ent)
}

// Remove implements distcache.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := distcache.CheckKey(key); err != nil {
		return err
	}
	ent := &entry{Parent: c.partitionKey(ctx), Key: key}
	switch err := datastore.Delete(ctx, datastore.KeyForObj(ctx, ent)); {
	case err == nil, errors.Is(err, datastore.ErrNoSuchEntity):
		return nil
	default:
		return transient.Tag.Apply(errors.Fmt("dscache: deleting %q: %w", key, err))
	}
}

// load fetches the row as stored, without evaluating expiration.
//
// Returns (nil, nil) when there is no such row. Because the cache key is
// the datastore key, the "query matched more than one row" corruption of
// query-based table stores cannot happen here.
func (c *Cache) load(ctx context.Context, key string) (*entry, error) {
	if err := distcache.CheckKey(key); err != nil {
		return nil, err
	}
	ent := &entry{Parent: c.partitionKey(ctx), Key: key}
	switch err := datastore.Get(ctx, ent); {
	case err == nil:
		return ent, nil
	case errors.Is(err, datastore.ErrNoSuchEntity):
		return nil, nil
	default:
		return nil, transient.Tag.Apply(errors.Fmt("dscache: fetching %q: %w", key, err))
	}
}

// evict deletes a row that was observed to be expired.
func (c *Cache) evict(ctx context.Context, ent *entry) error {
	logging.Debugf(ctx, "dscache: lazily evicting expired entry %q from partition %q", ent.Key, c.partition)
	if err := datastore.Delete(ctx, datastore.KeyForObj(ctx, ent)); err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
		return transient.Tag.Apply(errors.Fmt("dscache: deleting expired %q: %w", ent.Key, err))
	}
	return nil
}

// put blindly upserts the row: last writer wins, no revision check.
func (c *Cache) put(ctx context.Context, ent *entry) error {
	if err := datastore.Put(ctx, ent); err != nil {
		return transient.Tag.Apply(errors.Fmt("dscache: storing %q: %w", ent.Key, err))
	}
	return nil
}
