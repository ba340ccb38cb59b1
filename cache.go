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

package distcache

import (
	"context"
)

// ExpirationSupport describes how much of the expiration protocol a
// backend can record and enforce.
type ExpirationSupport int

const (
	// ExpirationNone means the backend stores payloads only. Entries never
	// expire on read and Refresh does not renew a deadline; whatever layer
	// supplied the options is responsible for expiring such entries.
	ExpirationNone ExpirationSupport = iota

	// ExpirationFull means the backend records the absolute deadline and
	// the options snapshot per entry, enforces the deadline lazily on read
	// and renews it on Refresh.
	ExpirationFull
)

// Cache is a distributed key-value cache backed by remote storage.
//
// See the package documentation for the expiration protocol and the
// concurrency model shared by all implementations.
type Cache interface {
	// Get returns the payload stored under the key.
	//
	// Returns ErrNotFound if there is no live entry: a missing entry and an
	// entry that just expired are indistinguishable to the caller. Reading
	// an expired entry deletes it as a side effect.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the payload under the key, replacing any previous entry.
	//
	// The options describe when the entry expires; they are validated and
	// snapshotted with the entry so Refresh can reapply them. A configured
	// absolute expiration must be strictly in the future, otherwise the
	// write fails and nothing is persisted.
	Set(ctx context.Context, key string, payload []byte, opts Options) error

	// Refresh renews the entry's expiration using the options recorded at
	// write time, evaluated against the current clock.
	//
	// A missing entry is a no-op. An expired entry is deleted and the call
	// still succeeds.
	Refresh(ctx context.Context, key string) error

	// Remove deletes the entry. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Expiration reports the backend's expiration capability.
	Expiration() ExpirationSupport
}
