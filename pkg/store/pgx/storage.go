package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// TaxonomyDBStorage implements store.TaxonomyStorage on PostgreSQL. Tables
// are created by the migrations in the repository's migrations directory.
type TaxonomyDBStorage struct {
	conn pgxIConn
}

// NewTaxonomyDBStorageWithConnection creates a TaxonomyDBStorage using an
// existing pool, connection or transaction.
func NewTaxonomyDBStorageWithConnection(conn pgxIConn) *TaxonomyDBStorage {
	return &TaxonomyDBStorage{conn: conn}
}
