package entity

import (
	"strings"
	"time"
)

// IdentityStatus toggles whether an account may sign in. Accounts are never hard-deleted.
type IdentityStatus string

const (
	IdentityActive    IdentityStatus = "ACTIVE"
	IdentitySuspended IdentityStatus = "SUSPENDED"
)

func (s IdentityStatus) Valid() bool {
	return s == IdentityActive || s == IdentitySuspended
}

// Identity is the aggregate root for user accounts.
// PasswordHash holds a bcrypt hash and must not leave the credential store.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Status       IdentityStatus
	AvatarURL    string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i *Identity) Active() bool { return i.Status == IdentityActive }

// NormalizeEmail lower-cases and trims an address for uniqueness comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
