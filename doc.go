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

// Package distcache defines a distributed key-value cache contract
// implemented by interchangeable remote storage backends.
//
// Two backends ship with this module: dscache stores entries as rows in
// Cloud Datastore under a fixed partition, gscache stores them as objects
// in a Google Cloud Storage bucket. Application code talks to the Cache
// interface and does not care which one is behind it.
//
// # Expiration
//
// Every Set carries an Options value describing when the entry expires.
// The backend computes a single absolute deadline at write time (see
// Options.DeadlineAt) and records it next to the payload together with a
// snapshot of the options themselves. Expiration is lazy: there is no
// background sweeper, an expired entry is detected and deleted when it is
// next read. Refresh reloads the stored options snapshot and recomputes
// the deadline from the current time, which gives sliding-window-like
// renewal for configurations using AbsoluteExpirationRelativeToNow.
//
// SlidingExpiration is accepted and persisted, but no backend enforces it
// on its own: an entry configured with only SlidingExpiration never
// expires. This mirrors the behavior of the system this cache fronts and
// is deliberately left that way; tests pin it down.
//
// The backends also diverge in what they can record: dscache keeps full
// expiration metadata per row, the minimal blob form used by gscache
// stores payload bytes only. Cache.Expiration reports which of the two a
// backend provides.
//
// # Concurrency
//
// Cache implementations hold no mutable state beyond configuration fixed
// at construction and are safe for unsynchronized concurrent use. Every
// operation is a remote call; concurrent Sets on one key race and the
// last write committed by the store wins. Operations take a Context and
// stop early when it is canceled; the blocking form of any call is simply
// invoking it with context.Background().
package distcache
