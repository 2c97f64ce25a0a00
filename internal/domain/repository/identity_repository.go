package repository

import (
	"context"

	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

// IdentityRepository persists identities.
// Update succeeds only when the stored version equals u.Version and bumps it on success;
// a mismatch returns domain.ErrConflict.
type IdentityRepository interface {
	Create(ctx context.Context, u *entity.Identity) error
	GetByID(ctx context.Context, id string) (*entity.Identity, error)
	GetByEmail(ctx context.Context, email string) (*entity.Identity, error)
	Update(ctx context.Context, u *entity.Identity) error
}
