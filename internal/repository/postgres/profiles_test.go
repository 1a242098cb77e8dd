package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/repository"
)

func TestProfileRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	birthday := time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC)
	profile := domain.Profile{
		ID:        "profile-1",
		UserID:    "user-1",
		FirstName: "Alice",
		LastName:  "Liddell",
		Birthday:  birthday,
		Gender:    domain.GenderFemale,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO iam\.profiles`).
		WithArgs(profile.ID, profile.UserID, "Alice", "Liddell", birthday, "female", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), profile); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
}

func TestProfileRepository_CreateErrors(t *testing.T) {
	cases := []struct {
		name  string
		pgErr *pgconn.PgError
		want  error
	}{
		{"second profile", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "profiles_user_id_key"}, repository.ErrConflict},
		{"unknown user", &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "profiles_user_id_fkey"}, repository.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewProfileRepository(mock)

			mock.ExpectExec(`INSERT INTO iam\.profiles`).
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnError(tc.pgErr)

			err := repo.Create(context.Background(), domain.Profile{ID: "profile-1", UserID: "user-1"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestProfileRepository_GetByUserID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	birthday := time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(profileColumns).
		AddRow("profile-1", "user-1", "Alice", "Liddell", birthday, "female", now, now)

	mock.ExpectQuery(`SELECT .+ FROM iam\.profiles WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(rows)

	profile, err := repo.GetByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByUserID returned error: %v", err)
	}
	if profile.ID != "profile-1" || profile.Gender != domain.GenderFemale || !profile.Birthday.Equal(birthday) {
		t.Fatalf("unexpected profile: %#v", profile)
	}
}

func TestProfileRepository_GetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProfileRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM iam\.profiles WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileRepository_Update(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	last := "Hargreaves"
	gender := domain.GenderFemale

	mock.ExpectExec(`UPDATE iam\.profiles SET updated_at = \$1, last_name = \$2, gender = \$3 WHERE id = \$4`).
		WithArgs(now, last, "female", "profile-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	update := domain.ProfileUpdate{LastName: &last, Gender: &gender, UpdatedAt: now}
	if err := repo.Update(context.Background(), "profile-1", update); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
}

func TestProfileRepository_UpdateEmptyIsNoop(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProfileRepository(mock)

	if err := repo.Update(context.Background(), "profile-1", domain.ProfileUpdate{UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
}

func TestProfileRepository_DeleteNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProfileRepository(mock)

	mock.ExpectExec(`DELETE FROM iam\.profiles WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
