package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	applog "github.com/arklim/signup-iam/internal/infra/logger"
	"github.com/arklim/signup-iam/internal/repository"
)

const (
	profileNameMinLength = 3
	profileNameMaxLength = 100
)

var earliestBirthday = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ProfileService manages the personal profile attached to a validated user.
type ProfileService struct {
	profiles port.ProfileRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles port.ProfileRepository) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithLogger attaches a structured logger.
func (s *ProfileService) WithLogger(logger *zap.Logger) *ProfileService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateProfile attaches a profile to userID. A user holds at most one profile.
func (s *ProfileService) CreateProfile(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Gender = domain.Gender(strings.ToLower(strings.TrimSpace(string(input.Gender))))
	input.Birthday = dateOnly(input.Birthday)

	now := s.now()
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.FirstName, validation.Required, validation.RuneLength(profileNameMinLength, profileNameMaxLength)),
		validation.Field(&input.LastName, validation.Required, validation.RuneLength(profileNameMinLength, profileNameMaxLength)),
		validation.Field(&input.Birthday, validation.Required, birthdayRule(now)),
		validation.Field(&input.Gender, validation.Required, genderRule),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	_, err := s.profiles.GetByUserID(ctx, userID)
	if taken, err := found(err); err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	} else if taken {
		return nil, domain.ErrProfileAlreadyExists
	}

	profile := domain.Profile{
		ID:        uuid.NewString(),
		UserID:    userID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Birthday:  input.Birthday,
		Gender:    input.Gender,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, domain.ErrProfileAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.ErrUserNotFound
		default:
			return nil, fmt.Errorf("create profile: %w", err)
		}
	}

	s.logger.Info("profile created", append(applog.ContextFields(ctx),
		zap.String("user_id", userID),
		zap.String("profile_id", profile.ID),
	)...)
	return &profile, nil
}

// GetProfile returns the profile owned by userID.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile changes the provided fields of the profile owned by userID.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no profile fields to update", domain.ErrValidationFailed)
	}
	if update.FirstName != nil {
		trimmed := strings.TrimSpace(*update.FirstName)
		update.FirstName = &trimmed
	}
	if update.LastName != nil {
		trimmed := strings.TrimSpace(*update.LastName)
		update.LastName = &trimmed
	}
	if update.Gender != nil {
		gender := domain.Gender(strings.ToLower(strings.TrimSpace(string(*update.Gender))))
		update.Gender = &gender
	}
	if update.Birthday != nil {
		birthday := dateOnly(*update.Birthday)
		update.Birthday = &birthday
	}

	now := s.now()
	if err := validation.ValidateStruct(&update,
		validation.Field(&update.FirstName, validation.NilOrNotEmpty, validation.RuneLength(profileNameMinLength, profileNameMaxLength)),
		validation.Field(&update.LastName, validation.NilOrNotEmpty, validation.RuneLength(profileNameMinLength, profileNameMaxLength)),
		validation.Field(&update.Birthday, validation.NilOrNotEmpty, birthdayRule(now)),
		validation.Field(&update.Gender, validation.NilOrNotEmpty, genderRule),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	update.UpdatedAt = now
	if err := s.profiles.Update(ctx, profile.ID, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return s.GetProfile(ctx, userID)
}

// DeleteProfile removes a profile by identifier on behalf of an administrator.
func (s *ProfileService) DeleteProfile(ctx context.Context, profileID, deletedBy string) error {
	if err := s.profiles.Delete(ctx, profileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrProfileNotFound
		}
		return fmt.Errorf("delete profile: %w", err)
	}

	s.logger.Info("profile deleted", append(applog.ContextFields(ctx),
		zap.String("profile_id", profileID),
		zap.String("deleted_by", deletedBy),
	)...)
	return nil
}

var genderRule = validation.In(domain.GenderMale, domain.GenderFemale).Error("must be male or female")

func birthdayRule(now time.Time) validation.Rule {
	return validation.By(func(value interface{}) error {
		value, isNil := validation.Indirect(value)
		if isNil {
			return nil
		}
		birthday, ok := value.(time.Time)
		if !ok || birthday.IsZero() {
			return nil
		}
		if birthday.After(now) {
			return errors.New("must not be in the future")
		}
		if birthday.Before(earliestBirthday) {
			return errors.New("must not be before 1900-01-01")
		}
		return nil
	})
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
