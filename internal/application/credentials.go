package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

const MinPasswordLength = 8

// NewIdentity carries the profile fields for provisioning an account.
type NewIdentity struct {
	Email     string
	FirstName string
	LastName  string
	Role      entity.Role
}

// CredentialStore is the only component that reads or writes password hashes.
type CredentialStore struct {
	repo   repository.IdentityRepository
	cost   int
	logger *logrus.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialStore(repo repository.IdentityRepository, bcryptCost int, logger *logrus.Logger) *CredentialStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &CredentialStore{repo: repo, cost: bcryptCost, logger: logger}
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return s.repo.GetByEmail(ctx, entity.NormalizeEmail(email))
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*entity.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// VerifyPassword compares in constant time via bcrypt.
func (s *CredentialStore) VerifyPassword(u *entity.Identity, plaintext string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return helpers.CompareHashAndPassword(u.PasswordHash, plaintext)
}

// BurnCompare spends the same time as a real password check. Used when the email is unknown.
func (s *CredentialStore) BurnCompare(plaintext string) {
	s.dummyOnce.Do(func() {
		h, err := helpers.HashPassword("not-a-real-password", s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_ = helpers.CompareHashAndPassword(s.dummyHash, plaintext)
	}
}

func (s *CredentialStore) Create(ctx context.Context, in NewIdentity, plaintext string) (*entity.Identity, error) {
	email := entity.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", domain.ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role is invalid", domain.ErrValidation)
	}
	if err := checkPassword(plaintext); err != nil {
		return nil, err
	}
	hash, err := helpers.HashPassword(plaintext, s.cost)
	if err != nil {
		return nil, err
	}
	u := &entity.Identity{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		Status:       entity.IdentityActive,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	helpers.LogInfo(s.logger, "identity created", logrus.Fields{"user_id": u.ID, "role": u.Role.String()})
	return u, nil
}

// ChangePassword requires the current password; a mismatch is ErrInvalidCredentials.
func (s *CredentialStore) ChangePassword(ctx context.Context, id, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(u, current) {
		return domain.ErrInvalidCredentials
	}
	return s.SetPassword(ctx, u, next)
}

// SetPassword overwrites the hash without checking the old password. Reserved for bootstrap.
func (s *CredentialStore) SetPassword(ctx context.Context, u *entity.Identity, next string) error {
	hash, err := helpers.HashPassword(next, s.cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.repo.Update(ctx, u)
}

func (s *CredentialStore) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.Identity, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role is invalid", domain.ErrValidation)
	}
	return s.mutate(ctx, id, func(u *entity.Identity) { u.Role = role })
}

func (s *CredentialStore) UpdateStatus(ctx context.Context, id string, status entity.IdentityStatus) (*entity.Identity, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status is invalid", domain.ErrValidation)
	}
	return s.mutate(ctx, id, func(u *entity.Identity) { u.Status = status })
}

func (s *CredentialStore) UpdateAvatar(ctx context.Context, id, url string) (*entity.Identity, error) {
	return s.mutate(ctx, id, func(u *entity.Identity) { u.AvatarURL = url })
}

func (s *CredentialStore) mutate(ctx context.Context, id string, apply func(*entity.Identity)) (*entity.Identity, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(u)
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkPassword(p string) error {
	if len(p) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	if len(p) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
	}
	return nil
}
