package domain

import (
	"strings"
	"time"
)

const (
	DefaultCurrentXP = 0
	DefaultMaxXP     = 1000
	DefaultLevel     = 1

	// DefaultRole is the only role issued in access token display claims.
	DefaultRole = "user"
)

// Identity mirrors a registered account together with its gamification progress.
type Identity struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Mobile       string
	City         string
	DOB          string
	PasswordHash string
	CreatedAt    time.Time
	Disabled     bool
	CurrentXP    int
	MaxXP        int
	Level        int
}

// NewIdentity returns an identity with default progress fields.
func NewIdentity(firstName, lastName, email, mobile, city, dob, passwordHash string, createdAt time.Time) Identity {
	return Identity{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Mobile:       mobile,
		City:         city,
		DOB:          dob,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
		CurrentXP:    DefaultCurrentXP,
		MaxXP:        DefaultMaxXP,
		Level:        DefaultLevel,
	}
}

// DisplayName joins first and last names.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Progress returns the identity's progress with defaults applied to unset fields.
func (i Identity) Progress() Progress {
	return Progress{CurrentXP: i.CurrentXP, MaxXP: i.MaxXP, Level: i.Level}.Normalize()
}
