package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// QueryExecuter is satisfied by both a transaction and the pool, so
// repository methods can run inside or outside ExecuteInTransaction.
type QueryExecuter interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	_ QueryExecuter = (*TxQueryExecuter)(nil)
	_ QueryExecuter = (*pgxpoolExecuter)(nil)
)

type TxQueryExecuter struct {
	Tx pgx.Tx
}

func (t *TxQueryExecuter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := t.Tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.postgres.TxQueryExecuter.Query: %w", err)
	}
	return rows, nil
}

func (t *TxQueryExecuter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.Tx.QueryRow(ctx, sql, args...)
}

func (t *TxQueryExecuter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := t.Tx.Exec(ctx, sql, args...)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("storage.postgres.TxQueryExecuter.Exec: %w", err)
	}
	return tag, nil
}

type pgxpoolExecuter struct {
	p *Postgres
}

func (e pgxpoolExecuter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return e.p.Pool.Query(ctx, sql, args...)
}

func (e pgxpoolExecuter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return e.p.Pool.QueryRow(ctx, sql, args...)
}

func (e pgxpoolExecuter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return e.p.Pool.Exec(ctx, sql, args...)
}

// Executer returns qe, or the pool when qe is nil.
func (p *Postgres) Executer(qe QueryExecuter) QueryExecuter {
	if qe != nil {
		return qe
	}
	return pgxpoolExecuter{p: p}
}
