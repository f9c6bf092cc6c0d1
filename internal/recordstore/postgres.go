package recordstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure the backends satisfy Store at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// PostgresStore persists records in a single table keyed by
// (namespace, address). Commit runs one transaction of conditional
// INSERT/UPDATE statements; a statement that touches no row means an
// expectation failed and the whole transaction rolls back.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store. Call Migrate once before
// first use.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the records table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			namespace TEXT NOT NULL,
			address BYTEA NOT NULL,
			version BIGINT NOT NULL CHECK (version > 0),
			value BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (namespace, address)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ns Namespace, addr Address) (Record, error) {
	const query = `SELECT version, value FROM records WHERE namespace = $1 AND address = $2`
	rec := Record{Namespace: ns, Address: addr}
	var version int64
	err := s.pool.QueryRow(ctx, query, string(ns), addr[:]).Scan(&version, &rec.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get record %s/%s: %w", ns, addr, err)
	}
	rec.Version = uint64(version)
	return rec, nil
}

func (s *PostgresStore) Commit(ctx context.Context, writes ...Write) error {
	if err := validateBatch(writes); err != nil {
		return err
	}

	// Lock rows in a fixed order so two batches touching the same pair of
	// records cannot deadlock.
	ordered := slices.Clone(writes)
	slices.SortFunc(ordered, func(a, b Write) int {
		if a.Namespace != b.Namespace {
			if a.Namespace < b.Namespace {
				return -1
			}
			return 1
		}
		return bytes.Compare(a.Address[:], b.Address[:])
	})

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, w := range ordered {
		var tag pgconn.CommandTag
		if w.ExpectVersion == 0 {
			tag, err = tx.Exec(ctx,
				`INSERT INTO records (namespace, address, version, value)
				 VALUES ($1, $2, 1, $3)
				 ON CONFLICT (namespace, address) DO NOTHING`,
				string(w.Namespace), w.Address[:], w.Value)
		} else {
			tag, err = tx.Exec(ctx,
				`UPDATE records
				 SET version = version + 1, value = $4, updated_at = NOW()
				 WHERE namespace = $1 AND address = $2 AND version = $3`,
				string(w.Namespace), w.Address[:], int64(w.ExpectVersion), w.Value)
		}
		if err != nil {
			return translatePgError(err)
		}
		if tag.RowsAffected() != 1 {
			return ErrConcurrentModification
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return translatePgError(err)
	}
	return nil
}

// List returns every record in ns ordered by address.
func (s *PostgresStore) List(ctx context.Context, ns Namespace) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, version, value FROM records WHERE namespace = $1 ORDER BY address`,
		string(ns))
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", ns, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			raw     []byte
			version int64
			value   []byte
		)
		if err := rows.Scan(&raw, &version, &value); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", ns, err)
		}
		if len(raw) != AddressSize {
			return nil, fmt.Errorf("corrupt %s address of %d bytes", ns, len(raw))
		}
		rec := Record{Namespace: ns, Version: uint64(version), Value: value}
		copy(rec.Address[:], raw)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s records: %w", ns, err)
	}
	return out, nil
}

// translatePgError maps serialization failures and deadlocks to a conflict
// so callers retry them like any other lost race.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return ErrConcurrentModification
		}
	}
	return fmt.Errorf("commit records: %w", err)
}
