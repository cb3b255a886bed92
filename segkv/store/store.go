// Package store implements a durable passivation/activation backend over
// modernc.org/sqlite (CGO-free). Grounded on the teacher's pkg/storage SQLite
// wrapper: same Init()/pragma/ensureSchema/Close shape, generalized from the
// teacher's Discord-specific message/guild/member tables down to a single
// generic passivated-entry table keyed by (segment, key).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/segmentedcache/segkv/cachelog"
)

// Record is the durable shape of a passivated entry: the value is stored as
// opaque JSON so the store stays agnostic to the container's value type, and the
// metadata fields are stored alongside so activation can rebuild an equivalent
// entry without re-deriving lifespan/max-idle from elsewhere.
type Record struct {
	Segment        int
	Key            string
	ValueJSON      []byte
	LifespanMillis int64
	MaxIdleMillis  int64
	Version        string
	PassivatedAt   time.Time
}

// Store is a durable PassivationManager/ActivationManager-shaped backend. Unlike
// the in-memory activation.Noop pair, this one actually persists: Save (called by
// the root package's StorePassivator) writes a row, Activate (called by a caller
// rehydrating a key) reads and deletes it.
type Store struct {
	db *sql.DB
}

// Open initializes (creating if necessary) a SQLite-backed passivation store at
// path. Grounded on the teacher's pkg/storage.Store.Init: WAL mode, foreign keys
// on, a busy timeout so concurrent evictions don't collide, and
// synchronous=NORMAL since passivated data is a cache spill, not a source of
// truth the system can't reconstruct.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer, avoid SQLITE_BUSY storms

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	cachelog.Persistence().Info("passivation store opened", "path", path)
	return s, nil
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS passivated_entries (
	segment         INTEGER NOT NULL,
	key             TEXT    NOT NULL,
	value_json      BLOB    NOT NULL,
	lifespan_millis INTEGER NOT NULL,
	max_idle_millis INTEGER NOT NULL,
	version         TEXT    NOT NULL DEFAULT '',
	passivated_at   INTEGER NOT NULL,
	PRIMARY KEY (segment, key)
);
CREATE INDEX IF NOT EXISTS idx_passivated_entries_passivated_at ON passivated_entries(passivated_at);
`
	_, err := s.db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a passivated entry, replacing any prior row for the same
// (segment, key).
func (s *Store) Save(ctx context.Context, segment int, key string, value any, lifespanMillis, maxIdleMillis int64, version string, passivatedAt time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: marshal value for key %q: %w", key, err)
	}
	const stmt = `
INSERT INTO passivated_entries (segment, key, value_json, lifespan_millis, max_idle_millis, version, passivated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(segment, key) DO UPDATE SET
	value_json = excluded.value_json,
	lifespan_millis = excluded.lifespan_millis,
	max_idle_millis = excluded.max_idle_millis,
	version = excluded.version,
	passivated_at = excluded.passivated_at;
`
	_, err = s.db.ExecContext(ctx, stmt, segment, key, payload, lifespanMillis, maxIdleMillis, version, passivatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save key %q: %w", key, err)
	}
	cachelog.Persistence().Debug("entry passivated", "segment", segment, "key", key)
	return nil
}

// Load fetches a passivated record without removing it.
func (s *Store) Load(ctx context.Context, segment int, key string) (*Record, bool, error) {
	const q = `SELECT value_json, lifespan_millis, max_idle_millis, version, passivated_at FROM passivated_entries WHERE segment = ? AND key = ?;`
	row := s.db.QueryRowContext(ctx, q, segment, key)

	var (
		payload    []byte
		lifespan   int64
		maxIdle    int64
		version    string
		passivated int64
	)
	if err := row.Scan(&payload, &lifespan, &maxIdle, &version, &passivated); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: load key %q: %w", key, err)
	}
	return &Record{
		Segment:        segment,
		Key:            key,
		ValueJSON:      payload,
		LifespanMillis: lifespan,
		MaxIdleMillis:  maxIdle,
		Version:        version,
		PassivatedAt:   time.UnixMilli(passivated),
	}, true, nil
}

// Activate loads and deletes a passivated record in one step, matching the
// activation contract of spec §4.6/GLOSSARY: a previously passivated entry is
// removed from the store the moment it is re-materialized in memory.
func (s *Store) Activate(ctx context.Context, segment int, key string) (*Record, bool, error) {
	rec, ok, err := s.Load(ctx, segment, key)
	if err != nil || !ok {
		return rec, ok, err
	}
	const del = `DELETE FROM passivated_entries WHERE segment = ? AND key = ?;`
	if _, err := s.db.ExecContext(ctx, del, segment, key); err != nil {
		return nil, false, fmt.Errorf("store: activate delete key %q: %w", key, err)
	}
	cachelog.Persistence().Debug("entry activated", "segment", segment, "key", key)
	return rec, true, nil
}

// Delete removes a passivated record without returning it, used when an
// explicit remove/clear makes the staged passivation moot.
func (s *Store) Delete(ctx context.Context, segment int, key string) error {
	const del = `DELETE FROM passivated_entries WHERE segment = ? AND key = ?;`
	if _, err := s.db.ExecContext(ctx, del, segment, key); err != nil {
		return fmt.Errorf("store: delete key %q: %w", key, err)
	}
	return nil
}

// Count returns the number of passivated rows, mainly for Stats()/metrics bridges.
func (s *Store) Count(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM passivated_entries;`
	var n int
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
