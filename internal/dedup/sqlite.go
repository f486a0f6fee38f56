package dedup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a local sqlite database, so dedup state
// survives process restarts. Atomicity of CheckAndSet comes from a single
// upsert statement rather than application-level locking.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration

	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the dedup database at path.
// Pass ":memory:" for an ephemeral database in tests. TTL semantics match
// MemoryStore: zero means keys never expire.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create dedup data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dedup database: %w", err)
	}
	// A single connection sidesteps sqlite's writer contention and keeps
	// ":memory:" databases from silently becoming one-per-connection.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS seen_keys (
		key        TEXT PRIMARY KEY,
		first_seen INTEGER NOT NULL,
		expires_at INTEGER
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dedup schema: %w", err)
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// CheckAndSet implements Store. The upsert only replaces a row whose expiry
// has passed, so RowsAffected tells us whether this key was fresh.
func (s *SQLiteStore) CheckAndSet(key string) (bool, error) {
	now := s.now()
	var expiresAt interface{}
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl).Unix()
	}

	res, err := s.db.Exec(`
		INSERT INTO seen_keys (key, first_seen, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			first_seen = excluded.first_seen,
			expires_at = excluded.expires_at
		WHERE seen_keys.expires_at IS NOT NULL AND seen_keys.expires_at <= ?`,
		key, now.Unix(), expiresAt, now.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("dedup check-and-set failed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup check-and-set failed: %w", err)
	}
	return n > 0, nil
}

// Purge deletes expired keys.
func (s *SQLiteStore) Purge() (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM seen_keys WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("dedup purge failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Len returns the number of stored keys, expired or not.
func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM seen_keys`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
