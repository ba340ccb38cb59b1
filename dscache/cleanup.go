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

package dscache

import (
	"context"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/gae/service/datastore"
)

// Cleanup deletes all expired rows in the partition and reports how many
// it removed.
//
// Expiration is normally lazy: an expired row is deleted when it is next
// read. Rows for keys that are never read again linger, so operators can
// run Cleanup (e.g. via cachetool) to reclaim them. It is always invoked
// explicitly; there is no background sweeper.
//
// Rows with no absolute expiration are never touched.
func (c *Cache) Cleanup(ctx context.Context) (int, error) {
	now := clock.Now(ctx).UTC()
	q := datastore.NewQuery(entryKind).
		Ancestor(c.partitionKey(ctx)).
		Gt("AbsoluteExpiration", time.Time{}).
		Lte("AbsoluteExpiration", now).
		KeysOnly(true)

	var keys []*datastore.Key
	if err := datastore.GetAll(ctx, q, &keys); err != nil {
		return 0, transient.Tag.Apply(errors.Fmt("dscache: scanning expired entries: %w", err))
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := datastore.Delete(ctx, keys); err != nil {
		return 0, transient.Tag.Apply(errors.Fmt("dscache: deleting %d expired entries: %w", len(keys), err))
	}
	logging.Infof(ctx, "dscache: cleaned up %d expired entries in partition %q", len(keys), c.partition)
	return len(keys), nil
}
