package store

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// KV is a key-value table in a SQLite database. A single connection is
// shared and access to it is serialised.
type KV struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// OpenKV opens (creating if needed) the database at path. ":memory:" opens a
// private in-memory database.
func OpenKV(path string) (*KV, error) {
	var (
		conn *sqlite.Conn
		err  error
	)
	if path == ":memory:" {
		conn, err = sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenMemory)
	} else {
		conn, err = sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, kvSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &KV{conn: conn}, nil
}

// with runs fn holding the connection, interrupting the statement if ctx is
// cancelled.
func (kv *KV) with(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.conn == nil {
		return fmt.Errorf("store is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.conn.SetInterrupt(ctx.Done())
	defer kv.conn.SetInterrupt(nil)
	return fn(kv.conn)
}

// Get returns the value stored under key. found is false when the key is
// absent.
func (kv *KV) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	err = kv.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT value FROM kv WHERE key = ?`, &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, value)
				found = true
				return nil
			},
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, found, nil
}

// Put stores value under key, replacing any previous value.
func (kv *KV) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := kv.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			&sqlitex.ExecOptions{Args: []any{key, value}})
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (kv *KV) Delete(ctx context.Context, key string) (bool, error) {
	var removed bool
	err := kv.with(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `DELETE FROM kv WHERE key = ?`, &sqlitex.ExecOptions{Args: []any{key}}); err != nil {
			return err
		}
		removed = conn.Changes() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return removed, nil
}

// Keys returns the keys starting with prefix in ascending order.
func (kv *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := kv.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, &sqlitex.ExecOptions{
			Args: []any{utf8.RuneCountInString(prefix), prefix},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				keys = append(keys, stmt.ColumnText(0))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys %s: %w", prefix, err)
	}
	return keys, nil
}

// Close closes the database. Further calls fail.
func (kv *KV) Close() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.conn == nil {
		return nil
	}
	err := kv.conn.Close()
	kv.conn = nil
	return err
}
