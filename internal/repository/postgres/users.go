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

const usersTable = "iam.users"

var userColumns = []string{
	"id",
	"username",
	"password_hash",
	"email",
	"phone",
	"is_active",
	"created_at",
	"registered_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new validated user row.
func (r *UserRepository) Create(ctx context.Context, user domain.ValidatedUser) error {
	stmt, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			user.PasswordHash,
			optionalString(user.Email),
			user.Phone,
			user.Active,
			user.CreatedAt,
			user.RegisteredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateWriteError("insert user", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.ValidatedUser, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves a user by normalized username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.ValidatedUser, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username})
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.ValidatedUser, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByPhone retrieves a user by phone.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.ValidatedUser, error) {
	return r.getBy(ctx, squirrel.Eq{"phone": phone})
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.ValidatedUser, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

// List returns all validated users ordered by registration.
func (r *UserRepository) List(ctx context.Context) ([]domain.ValidatedUser, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("registered_at", "username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.ValidatedUser
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// Update applies the non-nil fields of update to the user identified by id.
func (r *UserRepository) Update(ctx context.Context, id string, update domain.UserUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	query := r.builder.Update(usersTable)
	if update.PasswordHash != nil {
		query = query.Set("password_hash", *update.PasswordHash)
	}
	if update.Active != nil {
		query = query.Set("is_active", *update.Active)
	}

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return translateWriteError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the user; permission grants cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(usersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*domain.ValidatedUser, error) {
	var (
		user  domain.ValidatedUser
		email sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&email,
		&user.Phone,
		&user.Active,
		&user.CreatedAt,
		&user.RegisteredAt,
	); err != nil {
		return nil, err
	}

	if email.Valid {
		value := email.String
		user.Email = &value
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
