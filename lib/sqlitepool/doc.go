// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite connection pools with the pragmas
// the boot journal needs.
//
// It wraps zombiezen.com/go/sqlite with settings chosen for a small
// database on a game volume that is written by one process (the
// supervisor) and read by another (the operator CLI, possibly while
// the game is up): WAL journal mode so the reader never blocks the
// writer, NORMAL synchronous so committed boot rows survive a
// supervisor crash, and a busy timeout so a concurrent CLI query
// waits instead of failing with SQLITE_BUSY.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: the CLI can read boot history while the
//     supervisor is mid-write.
//   - synchronous=NORMAL: a boot row committed before the exec
//     handoff survives the handoff and any later crash. Not durable
//     across power loss, which is acceptable for an advisory journal.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock
//     instead of returning SQLITE_BUSY immediately.
//   - foreign_keys=OFF: the journal keys phases to boots explicitly;
//     there are no declared foreign keys to enforce.
//   - cache_size=-2048: 2 MB page cache. The journal holds a handful
//     of rows per container lifetime; a large cache buys nothing.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/game/.gatehouse/journal.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
//
// The package is deliberately thin: it applies the pragmas and hands
// back zombiezen types. Callers write SQL and manage transactions
// with sqlitex directly rather than through a query layer.
package sqlitepool
