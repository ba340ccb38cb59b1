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
	"testing"
	"time"

	"google.golang.org/grpc/codes"

	"go.chromium.org/luci/common/clock/testclock"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
	"go.chromium.org/luci/grpc/grpcutil"
)

func TestDeadlineAt(t *testing.T) {
	t.Parallel()

	ftt.Run("DeadlineAt", t, func(t *ftt.Test) {
		now := testclock.TestRecentTimeUTC

		t.Run("No expiration configured", func(t *ftt.Test) {
			deadline, err := Options{}.DeadlineAt(now)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, deadline.IsZero(), should.BeTrue)
		})

		t.Run("Relative to now", func(t *ftt.Test) {
			deadline, err := Options{AbsoluteExpirationRelativeToNow: time.Hour}.DeadlineAt(now)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, deadline, should.Match(now.Add(time.Hour)))
		})

		t.Run("Relative wins over fixed", func(t *ftt.Test) {
			deadline, err := Options{
				AbsoluteExpiration:              now.Add(24 * time.Hour),
				AbsoluteExpirationRelativeToNow: time.Minute,
			}.DeadlineAt(now)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, deadline, should.Match(now.Add(time.Minute)))
		})

		t.Run("Fixed in the future", func(t *ftt.Test) {
			deadline, err := Options{AbsoluteExpiration: now.Add(time.Hour)}.DeadlineAt(now)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, deadline, should.Match(now.Add(time.Hour)))
		})

		t.Run("Fixed in the past is OutOfRange", func(t *ftt.Test) {
			_, err := Options{AbsoluteExpiration: now.Add(-time.Second)}.DeadlineAt(now)
			assert.Loosely(t, err, should.ErrLike("not in the future"))
			assert.Loosely(t, grpcutil.Code(err), should.Equal(codes.OutOfRange))
		})

		t.Run("Fixed exactly at now is OutOfRange", func(t *ftt.Test) {
			_, err := Options{AbsoluteExpiration: now}.DeadlineAt(now)
			assert.Loosely(t, grpcutil.Code(err), should.Equal(codes.OutOfRange))
		})

		t.Run("Sliding alone records no deadline", func(t *ftt.Test) {
			// Sliding expiration is persisted but never independently
			// enforced: without a relative deadline the entry never expires.
			deadline, err := Options{SlidingExpiration: time.Minute}.DeadlineAt(now)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, deadline.IsZero(), should.BeTrue)
		})

		t.Run("Negative durations are OutOfRange", func(t *ftt.Test) {
			_, err := Options{AbsoluteExpirationRelativeToNow: -time.Second}.DeadlineAt(now)
			assert.Loosely(t, grpcutil.Code(err), should.Equal(codes.OutOfRange))

			_, err = Options{SlidingExpiration: -time.Second}.DeadlineAt(now)
			assert.Loosely(t, grpcutil.Code(err), should.Equal(codes.OutOfRange))
		})
	})
}

func TestExpiredAt(t *testing.T) {
	t.Parallel()

	ftt.Run("ExpiredAt", t, func(t *ftt.Test) {
		now := testclock.TestRecentTimeUTC

		t.Run("Zero deadline never expires", func(t *ftt.Test) {
			assert.Loosely(t, ExpiredAt(time.Time{}, now), should.BeFalse)
			assert.Loosely(t, ExpiredAt(time.Time{}, now.Add(100*365*24*time.Hour)), should.BeFalse)
		})

		t.Run("Deadline in the future", func(t *ftt.Test) {
			assert.Loosely(t, ExpiredAt(now.Add(time.Second), now), should.BeFalse)
		})

		t.Run("Deadline exactly at now", func(t *ftt.Test) {
			assert.Loosely(t, ExpiredAt(now, now), should.BeTrue)
		})

		t.Run("Deadline in the past", func(t *ftt.Test) {
			assert.Loosely(t, ExpiredAt(now.Add(-time.Second), now), should.BeTrue)
		})
	})
}

func TestOptionsSnapshot(t *testing.T) {
	t.Parallel()

	ftt.Run("Snapshot round trips", t, func(t *ftt.Test) {
		opts := Options{
			AbsoluteExpiration:              testclock.TestRecentTimeUTC.Add(time.Hour),
			AbsoluteExpirationRelativeToNow: 5 * time.Minute,
			SlidingExpiration:               time.Minute,
		}
		blob, err := MarshalOptions(opts)
		assert.Loosely(t, err, should.BeNil)

		got, err := UnmarshalOptions(blob)
		assert.Loosely(t, err, should.BeNil)
		assert.Loosely(t, got, should.Match(opts))
	})

	ftt.Run("Garbage snapshot", t, func(t *ftt.Test) {
		_, err := UnmarshalOptions([]byte("definitely not json"))
		assert.Loosely(t, err, should.ErrLike("unmarshaling options snapshot"))
	})
}
