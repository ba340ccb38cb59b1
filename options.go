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
	"encoding/json"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/grpc/grpcutil"
)

// Options is the expiration configuration supplied with every Set.
//
// The zero value means the entry never expires.
type Options struct {
	// AbsoluteExpiration is a fixed point in time after which the entry is
	// expired regardless of access patterns. It must be strictly in the
	// future when the entry is written.
	AbsoluteExpiration time.Time `json:"absolute_expiration,omitempty"`

	// AbsoluteExpirationRelativeToNow, when positive, expires the entry
	// that long after the write. Takes precedence over AbsoluteExpiration.
	//
	// Because Refresh recomputes the deadline from the clock at refresh
	// time, this is the knob that produces sliding-window renewal.
	AbsoluteExpirationRelativeToNow time.Duration `json:"absolute_expiration_relative_to_now,omitempty"`

	// SlidingExpiration is accepted and persisted in the entry's options
	// snapshot but is not independently enforced by any backend. See the
	// package documentation.
	SlidingExpiration time.Duration `json:"sliding_expiration,omitempty"`
}

// Validate checks the configuration for values that can never be right.
func (o Options) Validate() error {
	if o.AbsoluteExpirationRelativeToNow < 0 {
		return errors.New("distcache: relative expiration must be positive", grpcutil.OutOfRangeTag)
	}
	if o.SlidingExpiration < 0 {
		return errors.New("distcache: sliding expiration must be positive", grpcutil.OutOfRangeTag)
	}
	return nil
}

// MarshalOptions serializes the options into the snapshot persisted next
// to the payload, so Refresh can reapply them without caller input.
func MarshalOptions(o Options) ([]byte, error) {
	blob, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Fmt("distcache: marshaling options snapshot: %w", err)
	}
	return blob, nil
}

// UnmarshalOptions is the inverse of MarshalOptions.
func UnmarshalOptions(blob []byte) (Options, error) {
	var o Options
	if err := json.Unmarshal(blob, &o); err != nil {
		return Options{}, errors.Fmt("distcache: unmarshaling options snapshot: %w", err)
	}
	return o, nil
}
