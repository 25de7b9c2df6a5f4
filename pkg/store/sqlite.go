package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

// SQLiteKV implements KV on a local SQLite file for single-node
// deployments. INSERT OR IGNORE gives the same atomic add-if-absent
// semantics the claim protocol gets from Redis SADD.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV opens (and if needed initializes) a SQLite-backed store
func NewSQLiteKV(dbPath string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteKV{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initDB initializes the database schema
func (s *SQLiteKV) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS set_members (
		k TEXT NOT NULL,
		member TEXT NOT NULL,
		PRIMARY KEY (k, member)
	);

	CREATE TABLE IF NOT EXISTS hash_fields (
		k TEXT NOT NULL,
		field TEXT NOT NULL,
		v TEXT NOT NULL,
		PRIMARY KEY (k, field)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SAdd adds member to the set at key, reporting whether it was newly added
func (s *SQLiteKV) SAdd(ctx context.Context, key, member string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO set_members (k, member) VALUES (?, ?)", key, member)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SRem removes member from the set at key
func (s *SQLiteKV) SRem(ctx context.Context, key, member string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM set_members WHERE k = ? AND member = ?", key, member)
	return err
}

// SIsMember reports membership of member in the set at key
func (s *SQLiteKV) SIsMember(ctx context.Context, key, member string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM set_members WHERE k = ? AND member = ?", key, member).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SMembers returns all members of the set at key
func (s *SQLiteKV) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member FROM set_members WHERE k = ?", key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// Set stores value under key
func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
		key, value)
	return err
}

// Get returns the value stored under key
func (s *SQLiteKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT v FROM kv WHERE k = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", apperrors.ErrKeyNotFound, key)
	}
	return value, err
}

// Del removes key
func (s *SQLiteKV) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE k = ?", key)
	return err
}

// Incr atomically increments the counter at key and returns the new value
func (s *SQLiteKV) Incr(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO kv (k, v) VALUES (?, '1')
		 ON CONFLICT(k) DO UPDATE SET v = CAST(v AS INTEGER) + 1
		 RETURNING CAST(v AS INTEGER)`, key).Scan(&value)
	return value, err
}

// HSet stores fields into the hash at key
func (s *SQLiteKV) HSet(ctx context.Context, key string, fields map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for field, value := range fields {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO hash_fields (k, field, v) VALUES (?, ?, ?)
			 ON CONFLICT(k, field) DO UPDATE SET v = excluded.v`,
			key, field, value)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// HGetAll returns the hash at key
func (s *SQLiteKV) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT field, v FROM hash_fields WHERE k = ?", key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		out[field] = value
	}
	return out, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
