package domain

import "time"

// Gender enumerates the values accepted for Profile.Gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Profile holds personal details attached to a validated user. A user has at most one profile.
type Profile struct {
	ID        string
	UserID    string
	FirstName string
	LastName  string
	Birthday  time.Time
	Gender    Gender
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileInput is the raw input of a profile creation.
type ProfileInput struct {
	FirstName string
	LastName  string
	Birthday  time.Time
	Gender    Gender
}

// ProfileUpdate carries the mutable fields of a profile. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Birthday  *time.Time
	Gender    *Gender
	UpdatedAt time.Time
}

// IsEmpty reports whether the update changes no profile field.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Birthday == nil && u.Gender == nil
}
