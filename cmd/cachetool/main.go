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

// Command cachetool reads and writes distcache entries from the command
// line, against either the Cloud Datastore or the Cloud Storage backend.
//
// The Datastore backend is selected with -cloud-project and -partition,
// the blob backend with -bucket. Credentials come from Application
// Default Credentials.
//
// Examples:
//
//	cachetool set -cloud-project my-proj -partition sessions -ttl 1h mykey myvalue
//	cachetool get -bucket my-cache-bucket mykey
//	cachetool cleanup -cloud-project my-proj -partition sessions
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	clouddatastore "cloud.google.com/go/datastore"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	log "go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"
	"go.chromium.org/luci/gae/impl/cloud"

	"github.com/cachewell/distcache"
	"github.com/cachewell/distcache/dscache"
	"github.com/cachewell/distcache/gscache"
)

func main() {
	app := &cli.Application{
		Name:  "cachetool",
		Title: "Distributed cache tool",
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			cmdGet,
			cmdSet,
			cmdRefresh,
			cmdRemove,
			cmdCleanup,
		},
	}
	os.Exit(subcommands.Run(app, os.Args[1:]))
}

// backendFlags selects and constructs the cache backend.
type backendFlags struct {
	cloudProject string
	partition    string
	bucket       string
}

func (f *backendFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.cloudProject, "cloud-project", "", "Cloud project hosting the backing store.")
	fs.StringVar(&f.partition, "partition", "", "Datastore partition holding the entries; selects the Datastore backend.")
	fs.StringVar(&f.bucket, "bucket", "", "Cloud Storage bucket holding the entries; selects the blob backend.")
}

// open builds the selected backend.
//
// The returned context carries the datastore client when the Datastore
// backend is selected. The returned closer must be called when done.
func (f *backendFlags) open(ctx context.Context) (distcache.Cache, context.Context, func(), error) {
	switch {
	case f.bucket != "" && f.partition != "":
		return nil, ctx, nil, errors.New("-bucket and -partition are mutually exclusive")
	case f.bucket != "":
		client, err := gscache.NewClient(ctx, f.bucket, f.cloudProject)
		if err != nil {
			return nil, ctx, nil, err
		}
		return gscache.New(client), ctx, func() { _ = client.Close() }, nil
	case f.partition != "":
		if f.cloudProject == "" {
			return nil, ctx, nil, errors.New("-cloud-project is required with -partition")
		}
		client, err := clouddatastore.NewClient(ctx, f.cloudProject)
		if err != nil {
			return nil, ctx, nil, errors.Fmt("constructing the datastore client: %w", err)
		}
		cfg := &cloud.ConfigLite{ProjectID: f.cloudProject, DS: client}
		cache, err := dscache.New(f.partition)
		if err != nil {
			_ = client.Close()
			return nil, ctx, nil, err
		}
		return cache, cfg.Use(ctx), func() { _ = client.Close() }, nil
	default:
		return nil, ctx, nil, errors.New("either -partition or -bucket is required")
	}
}

// run wraps a command body with backend construction and error reporting.
func run(app subcommands.Application, base subcommands.CommandRun, env subcommands.Env, flags *backendFlags, body func(ctx context.Context, cache distcache.Cache) error) int {
	ctx := cli.GetContext(app, base, env)
	cache, ctx, done, err := flags.open(ctx)
	if err != nil {
		log.Errorf(ctx, "%s", err)
		return 1
	}
	defer done()
	if err := body(ctx, cache); err != nil {
		log.Errorf(ctx, "%s", err)
		return 1
	}
	return 0
}

////////////////////////////////////////////////////////////////////////////////
// get

type cmdRunGet struct {
	subcommands.CommandRunBase
	backend backendFlags
}

var cmdGet = &subcommands.Command{
	UsageLine: "get <key>",
	ShortDesc: "prints the payload stored under the key",
	CommandRun: func() subcommands.CommandRun {
		c := &cmdRunGet{}
		c.backend.register(&c.Flags)
		return c
	},
}

func (c *cmdRunGet) Run(app subcommands.Application, args []string, env subcommands.Env) int {
	return run(app, c, env, &c.backend, func(ctx context.Context, cache distcache.Cache) error {
		if len(args) != 1 {
			return errors.New("expecting exactly one argument: the key")
		}
		payload, err := cache.Get(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(payload)
		return err
	})
}

////////////////////////////////////////////////////////////////////////////////
// set

type cmdRunSet struct {
	subcommands.CommandRunBase
	backend backendFlags

	ttl       time.Duration
	expiresAt string
	sliding   time.Duration
}

var cmdSet = &subcommands.Command{
	UsageLine: "set <key> <value|->",
	ShortDesc: "stores a payload under the key",
	LongDesc: "Stores a payload under the key, replacing any previous entry. " +
		"Pass '-' as the value to read the payload from stdin.",
	CommandRun: func() subcommands.CommandRun {
		c := &cmdRunSet{}
		c.backend.register(&c.Flags)
		c.Flags.DurationVar(&c.ttl, "ttl", 0, "Expire the entry this long after the write; renewable with refresh.")
		c.Flags.StringVar(&c.expiresAt, "expires-at", "", "Expire the entry at this fixed RFC3339 time.")
		c.Flags.DurationVar(&c.sliding, "sliding", 0, "Sliding expiration window recorded with the entry.")
		return c
	},
}

func (c *cmdRunSet) Run(app subcommands.Application, args []string, env subcommands.Env) int {
	return run(app, c, env, &c.backend, func(ctx context.Context, cache distcache.Cache) error {
		if len(args) != 2 {
			return errors.New("expecting exactly two arguments: the key and the value")
		}
		payload := []byte(args[1])
		if args[1] == "-" {
			var err error
			if payload, err = io.ReadAll(os.Stdin); err != nil {
				return errors.Fmt("reading the payload from stdin: %w", err)
			}
		}
		opts := distcache.Options{
			AbsoluteExpirationRelativeToNow: c.ttl,
			SlidingExpiration:               c.sliding,
		}
		if c.expiresAt != "" {
			t, err := time.Parse(time.RFC3339, c.expiresAt)
			if err != nil {
				return errors.Fmt("bad -expires-at: %w", err)
			}
			opts.AbsoluteExpiration = t
		}
		return cache.Set(ctx, args[0], payload, opts)
	})
}

////////////////////////////////////////////////////////////////////////////////
// refresh

type cmdRunRefresh struct {
	subcommands.CommandRunBase
	backend backendFlags
}

var cmdRefresh = &subcommands.Command{
	UsageLine: "refresh <key>",
	ShortDesc: "renews the entry's expiration from its stored options",
	CommandRun: func() subcommands.CommandRun {
		c := &cmdRunRefresh{}
		c.backend.register(&c.Flags)
		return c
	},
}

func (c *cmdRunRefresh) Run(app subcommands.Application, args []string, env subcommands.Env) int {
	return run(app, c, env, &c.backend, func(ctx context.Context, cache distcache.Cache) error {
		if len(args) != 1 {
			return errors.New("expecting exactly one argument: the key")
		}
		return cache.Refresh(ctx, args[0])
	})
}

////////////////////////////////////////////////////////////////////////////////
// remove

type cmdRunRemove struct {
	subcommands.CommandRunBase
	backend backendFlags
}

var cmdRemove = &subcommands.Command{
	UsageLine: "remove <key>",
	ShortDesc: "deletes the entry; absent keys are fine",
	CommandRun: func() subcommands.CommandRun {
		c := &cmdRunRemove{}
		c.backend.register(&c.Flags)
		return c
	},
}

func (c *cmdRunRemove) Run(app subcommands.Application, args []string, env subcommands.Env) int {
	return run(app, c, env, &c.backend, func(ctx context.Context, cache distcache.Cache) error {
		if len(args) != 1 {
			return errors.New("expecting exactly one argument: the key")
		}
		return cache.Remove(ctx, args[0])
	})
}

////////////////////////////////////////////////////////////////////////////////
// cleanup

type cmdRunCleanup struct {
	subcommands.CommandRunBase
	backend backendFlags
}

var cmdCleanup = &subcommands.Command{
	UsageLine: "cleanup",
	ShortDesc: "deletes all expired entries in a Datastore partition",
	CommandRun: func() subcommands.CommandRun {
		c := &cmdRunCleanup{}
		c.backend.register(&c.Flags)
		return c
	},
}

func (c *cmdRunCleanup) Run(app subcommands.Application, args []string, env subcommands.Env) int {
	return run(app, c, env, &c.backend, func(ctx context.Context, cache distcache.Cache) error {
		if len(args) != 0 {
			return errors.New("cleanup takes no arguments")
		}
		ds, ok := cache.(*dscache.Cache)
		if !ok {
			return errors.New("cleanup is only supported by the Datastore backend")
		}
		n, err := ds.Cleanup(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d expired entries\n", n)
		return nil
	})
}
