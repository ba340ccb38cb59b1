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

// Package gscache implements the distcache contract on top of Google
// Cloud Storage.
//
// This is the minimal blob form of the cache: one object per key, named
// by the key, holding the raw payload bytes and nothing else. There is no
// expiration metadata channel, so entries never expire on read and
// Refresh cannot renew a deadline (Cache.Expiration reports
// ExpirationNone). Whatever layer supplied the expiration options is
// responsible for expiring blob entries; this asymmetry versus dscache is
// part of the contract, not an accident.
package gscache

import (
	"context"

	"cloud.google.com/go/storage"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"

	"github.com/cachewell/distcache"
)

// Cache implements distcache.Cache over Cloud Storage objects.
//
// It is immutable after construction and safe for unsynchronized
// concurrent use.
type Cache struct {
	client Client
}

var _ distcache.Cache = (*Cache)(nil)

// New returns a cache storing entries through the given client.
func New(client Client) *Cache {
	return &Cache{client: client}
}

// Expiration implements distcache.Cache.
func (c *Cache) Expiration() distcache.ExpirationSupport { return distcache.ExpirationNone }

// Get implements distcache.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := distcache.CheckKey(key); err != nil {
		return nil, err
	}
	payload, err := c.client.ReadObject(ctx, key)
	switch {
	case err == nil:
		return payload, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return nil, distcache.ErrNotFound
	default:
		return nil, transient.Tag.Apply(errors.Fmt("gscache: fetching %q: %w", key, err))
	}
}

// Set implements distcache.Cache.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, opts distcache.Options) error {
	if err := distcache.CheckKey(key); err != nil {
		return err
	}
	if err := distcache.CheckPayload(payload); err != nil {
		return err
	}
	// Only the payload is persisted, but the configuration is still
	// validated so both backends reject the same bad inputs.
	if _, err := opts.DeadlineAt(clock.Now(ctx).UTC()); err != nil {
		return err
	}
	return c.client.WriteObject(ctx, key, payload)
}

// Refresh implements distcache.Cache.
//
// It re-uploads the current payload unchanged. This keeps a last-access
// marker fresh only insofar as the storage service's own object metadata
// does so natively; no deadline is recomputed or enforced. A missing
// object is a no-op.
func (c *Cache) Refresh(ctx context.Context, key string) error {
	if err := distcache.CheckKey(key); err != nil {
		return err
	}
	payload, err := c.client.ReadObject(ctx, key)
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return nil
	case err != nil:
		return transient.Tag.Apply(errors.Fmt("gscache: fetching %q: %w", key, err))
	}
	return c.client.WriteObject(ctx, key, payload)
}

// Remove implements distcache.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := distcache.CheckKey(key); err != nil {
		return err
	}
	return c.client.DeleteObject(ctx, key)
}
