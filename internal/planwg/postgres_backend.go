package planwg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	postgresRecordTableName  = "planwg_channels"
	postgresOperationTimeout = 5 * time.Second
	postgresLockKeyNamespace = "planwg"
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresRecordBackend stores one row per channel and serializes
// cross-process mutation through session advisory locks, so several hosts
// can share one working-group state.
type PostgresRecordBackend struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgresRecordBackend(dsn string) (*PostgresRecordBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	return &PostgresRecordBackend{
		dsn:       dsn,
		tableName: postgresRecordTableName,
		openDB:    sql.Open,
	}, nil
}

// Lock acquires pg_advisory_lock on a dedicated connection. The lock is a
// session lock, so the connection is pinned until the release runs.
func (b *PostgresRecordBackend) Lock(channel string) (func(), error) {
	if err := b.ensureReady(); err != nil {
		return nil, err
	}
	conn, err := b.db.Conn(context.Background())
	if err != nil {
		return nil, err
	}
	key := advisoryLockKey(b.tableName, channel)
	if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_lock($1)", key); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()
		_, _ = conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", key)
		_ = conn.Close()
	}, nil
}

func (b *PostgresRecordBackend) Load(channel string) (*ChannelRecord, error) {
	if err := b.ensureReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT record FROM %s WHERE channel = $1", postgresQuoteIdentifier(b.tableName))
	var payload string
	err := b.db.QueryRowContext(ctx, query, channel).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(channel, []byte(payload))
}

func (b *PostgresRecordBackend) Save(channel string, rec *ChannelRecord) error {
	if err := b.ensureReady(); err != nil {
		return err
	}
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (channel, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (channel)
		DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()`, postgresQuoteIdentifier(b.tableName))
	_, err = b.db.ExecContext(ctx, query, channel, string(payload))
	return err
}

func (b *PostgresRecordBackend) Delete(channel string) error {
	if err := b.ensureReady(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE channel = $1", postgresQuoteIdentifier(b.tableName))
	_, err := b.db.ExecContext(ctx, query, channel)
	return err
}

func (b *PostgresRecordBackend) List() ([]string, error) {
	if err := b.ensureReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT channel FROM %s ORDER BY channel ASC", postgresQuoteIdentifier(b.tableName))
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (b *PostgresRecordBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *PostgresRecordBackend) ensureReady() error {
	if b == nil {
		return ErrInvalidInput
	}
	b.initOnce.Do(func() {
		db, err := b.openDB("postgres", b.dsn)
		if err != nil {
			b.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				channel TEXT PRIMARY KEY,
				record TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, postgresQuoteIdentifier(b.tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			b.initErr = err
			return
		}
		b.db = db
	})
	return b.initErr
}

func postgresQuoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "\"\""
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func advisoryLockKey(tableName, channel string) int64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(postgresLockKeyNamespace))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(strings.TrimSpace(tableName)))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(strings.TrimSpace(channel)))
	return int64(hasher.Sum64())
}
