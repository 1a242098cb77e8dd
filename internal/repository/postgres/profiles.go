package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/repository"
)

const profilesTable = "iam.profiles"

var profileColumns = []string{
	"id",
	"user_id",
	"first_name",
	"last_name",
	"birthday",
	"gender",
	"created_at",
	"updated_at",
}

// ProfileRepository implements port.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewProfileRepository wires a PostgreSQL-backed profile repository.
func NewProfileRepository(exec pgExecutor) *ProfileRepository {
	return &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a profile. A second profile for the same user is a conflict; an unknown user is ErrNotFound.
func (r *ProfileRepository) Create(ctx context.Context, profile domain.Profile) error {
	stmt, args, err := r.builder.Insert(profilesTable).
		Columns(profileColumns...).
		Values(
			profile.ID,
			profile.UserID,
			profile.FirstName,
			profile.LastName,
			profile.Birthday,
			string(profile.Gender),
			profile.CreatedAt,
			profile.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert profile sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateWriteError("insert profile", err)
	}

	return nil
}

// GetByID retrieves a profile by identifier.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUserID retrieves the profile owned by a validated user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.getBy(ctx, squirrel.Eq{"user_id": userID})
}

func (r *ProfileRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Profile, error) {
	stmt, args, err := r.builder.Select(profileColumns...).
		From(profilesTable).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	var (
		profile domain.Profile
		gender  string
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Birthday,
		&gender,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.Gender = domain.Gender(gender)

	return &profile, nil
}

// Update applies the non-nil fields of update to the profile identified by id.
func (r *ProfileRepository) Update(ctx context.Context, id string, update domain.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	query := r.builder.Update(profilesTable).Set("updated_at", update.UpdatedAt)
	if update.FirstName != nil {
		query = query.Set("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		query = query.Set("last_name", *update.LastName)
	}
	if update.Birthday != nil {
		query = query.Set("birthday", *update.Birthday)
	}
	if update.Gender != nil {
		query = query.Set("gender", string(*update.Gender))
	}

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return translateWriteError("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a profile by identifier.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(profilesTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
