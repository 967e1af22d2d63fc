// Command loadcachectl is a small interactive demo of a kestrel
// LoadingCache backed by a SQLite-persisted Loader. It exercises the
// library end to end: "get <key>" loads or returns a cached value,
// "set <key> <value>" writes through, "stats" prints aggregate
// counters.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	flashflags "github.com/agilira/flash-flags"

	"github.com/kestrel-cache/kestrel"
	"github.com/kestrel-cache/kestrel/loaders/sqlstore"
)

func main() {
	fs := flashflags.New("loadcachectl")
	dsn := fs.String("dsn", "loadcachectl.db", "path to the SQLite database file")
	table := fs.String("table", "kv", "backing table name")
	refresh := fs.Duration("refresh", kestrel.DefaultRefreshTime, "how long a value is served without a background refresh")
	spoil := fs.Duration("spoil", kestrel.DefaultSpoilTime, "how long a value may be served at all")
	timeout := fs.Duration("timeout", kestrel.DefaultTimeout, "per-call timeout")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "loadcachectl:", err)
		os.Exit(2)
	}

	store, err := sqlstore.Open(dsn.Value(), table.Value())
	if err != nil {
		fmt.Fprintln(os.Stderr, "loadcachectl:", err)
		os.Exit(1)
	}
	defer store.Close()

	cache, err := kestrel.New(kestrel.Config[string, []byte]{
		CacheLoader: adaptStore{store},
		RefreshTime: refresh.Value(),
		SpoilTime:   spoil.Value(),
		Timeout:     timeout.Value(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "loadcachectl:", err)
		os.Exit(1)
	}

	fmt.Println("loadcachectl — commands: get <key>, set <key> <value>, stats, quit")
	repl(cache)
}

// adaptStore wraps *sqlstore.Store so a failed Load, a missing row
// included, reads as an empty value instead of a Load error, matching the
// demo's "create on first set" feel. Other database errors are not told
// apart from a missing row.
type adaptStore struct {
	*sqlstore.Store
}

func (a adaptStore) Load(ctx context.Context, key string) (kestrel.LoadResult[[]byte], error) {
	res, err := a.Store.Load(ctx, key)
	if err != nil {
		return kestrel.LoadResult[[]byte]{Timestamp: time.Now().UnixNano(), Value: nil}, nil
	}
	return res, nil
}

func repl(cache kestrel.LoadingCache[string, []byte]) {
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			v, err := cache.Get(ctx, fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%q\n", v)

		case "set":
			if len(fields) < 3 {
				fmt.Println("usage: set <key> <value>")
				continue
			}
			value := strings.Join(fields[2:], " ")
			v, err := cache.Set(ctx, fields[1], []byte(value))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("stored %q\n", v)

		case "stats":
			s := cache.Stats()
			fmt.Printf("%+v (hit ratio %.1f%%)\n", s, s.HitRatio())

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
