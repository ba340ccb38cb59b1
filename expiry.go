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
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/grpc/grpcutil"
)

// DeadlineAt computes the absolute expiration recorded for an entry
// written at `now` under this configuration.
//
// AbsoluteExpirationRelativeToNow takes precedence over a fixed
// AbsoluteExpiration. A fixed time that is not strictly after `now` is a
// configuration error carrying codes.OutOfRange. The zero return time
// means the entry has no absolute expiration and is never expired by the
// policy, which is what a sliding-only configuration degenerates to.
func (o Options) DeadlineAt(now time.Time) (time.Time, error) {
	if err := o.Validate(); err != nil {
		return time.Time{}, err
	}
	switch {
	case o.AbsoluteExpirationRelativeToNow > 0:
		return now.Add(o.AbsoluteExpirationRelativeToNow).UTC(), nil
	case !o.AbsoluteExpiration.IsZero():
		if !o.AbsoluteExpiration.After(now) {
			return time.Time{}, grpcutil.OutOfRangeTag.Apply(errors.Fmt(
				"distcache: absolute expiration %s is not in the future",
				o.AbsoluteExpiration.Format(time.RFC3339)))
		}
		return o.AbsoluteExpiration.UTC(), nil
	default:
		return time.Time{}, nil
	}
}

// ExpiredAt reports whether an entry with the given recorded deadline is
// expired at `now`. A zero deadline never expires.
func ExpiredAt(deadline, now time.Time) bool {
	return !deadline.IsZero() && !deadline.After(now)
}
