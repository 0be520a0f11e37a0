package remote

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/contractsig/signature"
)

//go:embed schema.sql
var schemaSQL string

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
}

// NewPool creates a pgxpool connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string, pc PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		config.MaxConnLifetime = pc.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the signature table if needed.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ReadSignatures(ctx context.Context, contractID string) (signature.Records, error) {
	var out signature.Records
	if err := signature.ValidateContractID(contractID); err != nil {
		return out, err
	}

	const q = `SELECT role, payload, signed_at FROM contract_signatures WHERE contract_id = $1`
	rows, err := s.pool.Query(ctx, q, contractID)
	if err != nil {
		return out, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role     string
			payload  []byte
			signedAt time.Time
		)
		if err := rows.Scan(&role, &payload, &signedAt); err != nil {
			return signature.Records{}, fmt.Errorf("scan: %w", err)
		}
		r := signature.Role(role)
		if !r.Valid() {
			continue
		}
		out.Set(r, &signature.Record{Role: r, Payload: json.RawMessage(payload), SignedAt: signedAt.UTC()})
	}
	if err := rows.Err(); err != nil {
		return signature.Records{}, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) WriteSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) error {
	if err := validateKey(contractID, role); err != nil {
		return err
	}
	if err := signature.ValidatePayload(payload); err != nil {
		return err
	}

	const q = `INSERT INTO contract_signatures (contract_id, role, payload, signed_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (contract_id, role) DO UPDATE SET payload = EXCLUDED.payload, signed_at = EXCLUDED.signed_at`

	if _, err := s.pool.Exec(ctx, q, contractID, string(role), []byte(payload)); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSignature(ctx context.Context, contractID string, role signature.Role) error {
	if err := validateKey(contractID, role); err != nil {
		return err
	}

	const q = `DELETE FROM contract_signatures WHERE contract_id = $1 AND role = $2`
	if _, err := s.pool.Exec(ctx, q, contractID, string(role)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
