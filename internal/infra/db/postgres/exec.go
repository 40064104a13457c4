package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/metrics"
)

// Postgres error codes the repositories translate.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// mapError converts driver errors into domain errors. Domain errors pass
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			metrics.IncDBError("duplicate")
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			metrics.IncDBError("conflict")
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
		case codeForeignKeyViolation, codeCheckViolation:
			metrics.IncDBError("constraint")
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, pgErr.ConstraintName)
		}
	}
	metrics.IncDBError("failed")
	return fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
}

func execSQL(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, args ...interface{}) (pgconn.CommandTag, error) {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	tag, err := ex.Exec(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return tag, nil
}

// queryRow runs q and scans its single row with scan. No row maps to
// domain.ErrNotFound.
func queryRow(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, scan func(pgx.Row) error, args ...interface{}) error {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return err
	}
	if err := scan(ex.QueryRow(ctx, q, args...)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return mapError(err)
		}
		return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return nil
}

// queryAll runs q and calls scan for each row.
func queryAll(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, scan func(pgx.Rows) error, args ...interface{}) error {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	if err := rows.Err(); err != nil {
		return mapError(err)
	}
	return nil
}
