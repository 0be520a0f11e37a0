package remote

import (
	"context"
	"os"
	"testing"
	"time"
)

// Set CONTRACTSIG_TEST_DATABASE_URL to run these against a real database.
func testPool(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("CONTRACTSIG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CONTRACTSIG_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dsn, PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE contract_signatures`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresStore(pool)
}

func TestPostgresStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return testPool(t) })
}

func TestPostgresStore_Ping(t *testing.T) {
	s := testPool(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewPool_BadDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), "://not a dsn", PoolConfig{}); err == nil {
		t.Error("expected parse error")
	}
}
