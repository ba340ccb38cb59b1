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

package distcache_test

import (
	"context"
	"sync"
	"testing"

	"cloud.google.com/go/storage"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
	"go.chromium.org/luci/gae/impl/memory"
	"go.chromium.org/luci/gae/service/datastore"

	"github.com/cachewell/distcache"
	"github.com/cachewell/distcache/dscache"
	"github.com/cachewell/distcache/gscache"
)

// memObjects is a minimal in-memory gscache.Client.
type memObjects struct {
	m    sync.Mutex
	objs map[string][]byte
}

func (f *memObjects) ReadObject(_ context.Context, name string) ([]byte, error) {
	f.m.Lock()
	defer f.m.Unlock()
	payload, ok := f.objs[name]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return append([]byte(nil), payload...), nil
}

func (f *memObjects) WriteObject(_ context.Context, name string, payload []byte) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.objs[name] = append([]byte(nil), payload...)
	return nil
}

func (f *memObjects) DeleteObject(_ context.Context, name string) error {
	f.m.Lock()
	defer f.m.Unlock()
	delete(f.objs, name)
	return nil
}

func (f *memObjects) Close() error { return nil }

// TestBackendParity runs the same expiration-free call sequence against
// both backends and expects identical observable results.
func TestBackendParity(t *testing.T) {
	t.Parallel()

	backends := func(t *ftt.Test) (context.Context, map[string]distcache.Cache) {
		ctx := memory.Use(context.Background())
		datastore.GetTestable(ctx).Consistent(true)

		table, err := dscache.New("parity")
		assert.Loosely(t, err, should.BeNil)

		return ctx, map[string]distcache.Cache{
			"datastore": table,
			"gs":        gscache.New(&memObjects{objs: map[string][]byte{}}),
		}
	}

	ftt.Run("Both backends behave the same", t, func(t *ftt.Test) {
		ctx, caches := backends(t)

		for name, cache := range caches {
			t.Run(name, func(t *ftt.Test) {
				// Empty cache.
				_, err := cache.Get(ctx, "k")
				assert.Loosely(t, err, should.Equal(distcache.ErrNotFound))

				// Write, read back.
				assert.Loosely(t, cache.Set(ctx, "k", []byte("v1"), distcache.Options{}), should.BeNil)
				payload, err := cache.Get(ctx, "k")
				assert.Loosely(t, err, should.BeNil)
				assert.Loosely(t, payload, should.Match([]byte("v1")))

				// Overwrite, read back.
				assert.Loosely(t, cache.Set(ctx, "k", []byte("v2"), distcache.Options{}), should.BeNil)
				payload, err = cache.Get(ctx, "k")
				assert.Loosely(t, err, should.BeNil)
				assert.Loosely(t, payload, should.Match([]byte("v2")))

				// Refresh of a live entry succeeds and keeps the value.
				assert.Loosely(t, cache.Refresh(ctx, "k"), should.BeNil)
				payload, err = cache.Get(ctx, "k")
				assert.Loosely(t, err, should.BeNil)
				assert.Loosely(t, payload, should.Match([]byte("v2")))

				// Remove, then the key is gone and removing again is fine.
				assert.Loosely(t, cache.Remove(ctx, "k"), should.BeNil)
				_, err = cache.Get(ctx, "k")
				assert.Loosely(t, err, should.Equal(distcache.ErrNotFound))
				assert.Loosely(t, cache.Remove(ctx, "k"), should.BeNil)

				// Refresh of an absent key is a no-op for both.
				assert.Loosely(t, cache.Refresh(ctx, "k"), should.BeNil)
			})
		}
	})
}
