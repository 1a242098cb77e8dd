package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/repository"
)

const pendingUsersTable = "iam.pending_users"

var pendingUserColumns = []string{
	"id",
	"username",
	"password_hash",
	"email",
	"phone",
	"created_at",
}

// PendingUserRepository implements port.PendingUserRepository using PostgreSQL.
type PendingUserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPendingUserRepository wires a PostgreSQL-backed signup repository.
func NewPendingUserRepository(exec pgExecutor) *PendingUserRepository {
	return &PendingUserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new pending signup row.
func (r *PendingUserRepository) Create(ctx context.Context, user domain.PendingUser) error {
	stmt, args, err := r.builder.Insert(pendingUsersTable).
		Columns(pendingUserColumns...).
		Values(
			user.ID,
			user.Username,
			user.PasswordHash,
			optionalString(user.Email),
			user.Phone,
			user.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert pending user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateWriteError("insert pending user", err)
	}

	return nil
}

// GetByUsername retrieves a pending signup by its normalized username.
func (r *PendingUserRepository) GetByUsername(ctx context.Context, username string) (*domain.PendingUser, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username})
}

// GetByEmail retrieves a pending signup by email.
func (r *PendingUserRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingUser, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByPhone retrieves a pending signup by phone.
func (r *PendingUserRepository) GetByPhone(ctx context.Context, phone string) (*domain.PendingUser, error) {
	return r.getBy(ctx, squirrel.Eq{"phone": phone})
}

func (r *PendingUserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.PendingUser, error) {
	stmt, args, err := r.builder.Select(pendingUserColumns...).
		From(pendingUsersTable).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pending user sql: %w", err)
	}

	user, err := scanPendingUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan pending user: %w", err)
	}

	return user, nil
}

// List returns all pending signups, oldest first.
func (r *PendingUserRepository) List(ctx context.Context) ([]domain.PendingUser, error) {
	stmt, args, err := r.builder.Select(pendingUserColumns...).
		From(pendingUsersTable).
		OrderBy("created_at", "username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pending users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending users: %w", err)
	}
	defer rows.Close()

	var users []domain.PendingUser
	for rows.Next() {
		user, err := scanPendingUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending users: %w", err)
	}

	return users, nil
}

// Delete removes the pending signup identified by username.
func (r *PendingUserRepository) Delete(ctx context.Context, username string) error {
	stmt, args, err := r.builder.Delete(pendingUsersTable).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete pending user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete pending user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanPendingUser(row pgx.Row) (*domain.PendingUser, error) {
	var (
		user  domain.PendingUser
		email sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&email,
		&user.Phone,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}

	if email.Valid {
		value := email.String
		user.Email = &value
	}

	return &user, nil
}

var _ port.PendingUserRepository = (*PendingUserRepository)(nil)
