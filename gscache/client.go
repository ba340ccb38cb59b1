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

package gscache

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/grpc/grpcutil"
)

// Client is the narrow slice of the Cloud Storage surface the cache
// needs.
//
// Production code gets one from NewClient; tests substitute an in-memory
// fake.
type Client interface {
	// ReadObject returns the full contents of the named object, or
	// storage.ErrObjectNotExist if there is no such object.
	ReadObject(ctx context.Context, name string) ([]byte, error)

	// WriteObject creates or fully overwrites the named object.
	WriteObject(ctx context.Context, name string, payload []byte) error

	// DeleteObject removes the named object. A missing object is not an
	// error.
	DeleteObject(ctx context.Context, name string) error

	// Close releases resources associated with the client.
	Close() error
}

// prodClient talks to one real bucket.
type prodClient struct {
	client *storage.Client
	bucket string
}

// NewClient returns a Client bound to the given bucket.
//
// If project is not empty, the bucket is created in that project when it
// does not exist yet. The provisioning call is idempotent and happens
// once, at construction.
func NewClient(ctx context.Context, bucket, project string, opts ...option.ClientOption) (Client, error) {
	if bucket == "" {
		return nil, errors.New("gscache: bucket is empty", grpcutil.InvalidArgumentTag)
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Fmt("gscache: constructing the storage client: %w", err)
	}
	c := &prodClient{client: client, bucket: bucket}
	if project != "" {
		if err := c.ensureBucket(ctx, project); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *prodClient) ensureBucket(ctx context.Context, project string) error {
	bkt := c.client.Bucket(c.bucket)
	switch _, err := bkt.Attrs(ctx); {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrBucketNotExist):
		logging.Infof(ctx, "gscache: creating bucket %q in project %q", c.bucket, project)
		if err := bkt.Create(ctx, project, nil); err != nil {
			return transient.Tag.Apply(errors.Fmt("gscache: creating bucket %q: %w", c.bucket, err))
		}
		return nil
	default:
		return transient.Tag.Apply(errors.Fmt("gscache: checking bucket %q: %w", c.bucket, err))
	}
}

func (c *prodClient) ReadObject(ctx context.Context, name string) ([]byte, error) {
	r, err := c.client.Bucket(c.bucket).Object(name).NewReader(ctx)
	if err != nil {
		// Keep storage.ErrObjectNotExist recognizable to the caller.
		return nil, err
	}
	defer r.Close()
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, transient.Tag.Apply(errors.Fmt("gscache: reading %q: %w", name, err))
	}
	return payload, nil
}

func (c *prodClient) WriteObject(ctx context.Context, name string, payload []byte) error {
	w := c.client.Bucket(c.bucket).Object(name).NewWriter(ctx)
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return transient.Tag.Apply(errors.Fmt("gscache: writing %q: %w", name, err))
	}
	// The upload is committed by Close; until then nothing is visible.
	if err := w.Close(); err != nil {
		return transient.Tag.Apply(errors.Fmt("gscache: finalizing %q: %w", name, err))
	}
	return nil
}

func (c *prodClient) DeleteObject(ctx context.Context, name string) error {
	switch err := c.client.Bucket(c.bucket).Object(name).Delete(ctx); {
	case err == nil, errors.Is(err, storage.ErrObjectNotExist):
		return nil
	default:
		return transient.Tag.Apply(errors.Fmt("gscache: deleting %q: %w", name, err))
	}
}

func (c *prodClient) Close() error {
	return c.client.Close()
}
