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
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/grpc/grpcutil"
)

// ErrNotFound is returned by Get when no live entry exists under the key.
//
// Carries codes.NotFound. Check for it with errors.Is.
var ErrNotFound = errors.New("distcache: no such entry", grpcutil.NotFoundTag)

// CheckKey validates a cache key supplied to any operation.
func CheckKey(key string) error {
	if key == "" {
		return errors.New("distcache: key is empty", grpcutil.InvalidArgumentTag)
	}
	return nil
}

// CheckPayload validates a payload supplied to Set.
//
// A nil payload is a caller error; an empty one is a legitimate value.
func CheckPayload(payload []byte) error {
	if payload == nil {
		return errors.New("distcache: payload is nil", grpcutil.InvalidArgumentTag)
	}
	return nil
}
