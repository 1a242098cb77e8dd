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

const (
	permissionsTable = "iam.permissions"
	grantsTable      = "iam.user_permissions"
)

// PermissionRepository implements port.PermissionRepository over PostgreSQL.
type PermissionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionRepository constructs a permission repository instance.
func NewPermissionRepository(exec pgExecutor) *PermissionRepository {
	return &PermissionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByName retrieves a permission by its unique name.
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	return r.getBy(ctx, squirrel.Eq{"name": name})
}

// GetByID retrieves a permission by identifier.
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *PermissionRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Permission, error) {
	stmt, args, err := r.builder.Select("id", "name", "description").
		From(permissionsTable).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission sql: %w", err)
	}

	permission, err := scanPermission(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}

	return permission, nil
}

// List returns the permission catalogue ordered by name.
func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select("id", "name", "description").
		From(permissionsTable).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		permission, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, *permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return permissions, nil
}

// Grant links a permission with a user. Granting an already held permission is a no-op.
func (r *PermissionRepository) Grant(ctx context.Context, permissionID, userID string) error {
	stmt, args, err := r.builder.Insert(grantsTable).
		Columns("permission_id", "user_id").
		Values(permissionID, userID).
		Suffix("ON CONFLICT (user_id, permission_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert grant sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateWriteError("insert grant", err)
	}

	return nil
}

// Revoke removes a grant. It returns repository.ErrNotFound when the grant does not exist.
func (r *PermissionRepository) Revoke(ctx context.Context, permissionID, userID string) error {
	stmt, args, err := r.builder.Delete(grantsTable).
		Where(squirrel.Eq{"permission_id": permissionID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete grant sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetGrant retrieves a single grant row.
func (r *PermissionRepository) GetGrant(ctx context.Context, permissionID, userID string) (*domain.PermissionGrant, error) {
	stmt, args, err := r.builder.Select("permission_id", "user_id", "granted_at").
		From(grantsTable).
		Where(squirrel.Eq{"permission_id": permissionID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select grant sql: %w", err)
	}

	var grant domain.PermissionGrant
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&grant.PermissionID, &grant.UserID, &grant.GrantedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan grant: %w", err)
	}

	return &grant, nil
}

// ListGrantsByUser returns every grant held by the user.
func (r *PermissionRepository) ListGrantsByUser(ctx context.Context, userID string) ([]domain.PermissionGrant, error) {
	stmt, args, err := r.builder.Select("permission_id", "user_id", "granted_at").
		From(grantsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("granted_at", "permission_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list grants sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.PermissionGrant
	for rows.Next() {
		var grant domain.PermissionGrant
		if err := rows.Scan(&grant.PermissionID, &grant.UserID, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	return grants, nil
}

func scanPermission(row pgx.Row) (*domain.Permission, error) {
	var (
		permission  domain.Permission
		description sql.NullString
	)

	if err := row.Scan(&permission.ID, &permission.Name, &description); err != nil {
		return nil, err
	}

	if description.Valid {
		value := description.String
		permission.Description = &value
	}

	return &permission, nil
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
