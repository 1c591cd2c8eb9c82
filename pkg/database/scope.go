package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// ScopeKey is the context key for storing the stage-scoped database connection.
	ScopeKey contextKey = "stageScope"
)

// Querier is the subset of pgx shared by connections and transactions.
// Repositories run against whatever the scope currently exposes.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Scope is one connection held for the duration of a pipeline stage.
// While a transaction is open (see InTx) repositories use it instead of the
// bare connection.
type Scope struct {
	Conn *pgxpool.Conn
	tx   pgx.Tx
}

// Q returns the active transaction if one is open, otherwise the connection.
func (s *Scope) Q() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.Conn
}

// Close releases the connection back to the pool.
// This MUST be called so the next stage can acquire it.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	if s.tx != nil {
		_ = s.tx.Rollback(context.Background())
		s.tx = nil
	}
	s.Conn.Release()
	s.Conn = nil
}

// InTx runs fn inside a transaction on the scoped connection. The transaction
// commits when fn returns nil and rolls back otherwise. Nested calls are not
// supported.
func (s *Scope) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.tx != nil {
		return fmt.Errorf("transaction already open on this scope")
	}

	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	defer func() {
		s.tx = nil
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithScope acquires a connection and returns a context carrying it.
// The cleanup function must be called when the stage is done.
func (db *DB) WithScope(ctx context.Context) (context.Context, func(), error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	scope := &Scope{Conn: conn}
	return SetScope(ctx, scope), scope.Close, nil
}

// GetScope retrieves the stage-scoped database connection from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok
}

// SetScope stores the stage-scoped database connection in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}
