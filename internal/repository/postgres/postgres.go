package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/signup-iam/internal/repository"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// translateWriteError maps constraint violations onto repository errors.
func translateWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &repository.ConflictError{Column: conflictColumn(pgErr)}
		case pgForeignKeyViolation:
			return repository.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func conflictColumn(pgErr *pgconn.PgError) string {
	hint := pgErr.ConstraintName
	if hint == "" {
		hint = pgErr.ColumnName
	}
	switch {
	case strings.Contains(hint, repository.ColumnEmail):
		return repository.ColumnEmail
	case strings.Contains(hint, repository.ColumnPhone):
		return repository.ColumnPhone
	case strings.Contains(hint, repository.ColumnUsername):
		return repository.ColumnUsername
	default:
		return ""
	}
}

func optionalString(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}
