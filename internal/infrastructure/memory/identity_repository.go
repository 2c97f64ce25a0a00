package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
)

// IdentityRepository keeps identities in process memory. Used by tests and local runs without Postgres.
type IdentityRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.Identity
	byEmail map[string]string
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[string]*entity.Identity),
		byEmail: make(map[string]string),
	}
}

func (r *IdentityRepository) Create(_ context.Context, u *entity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := entity.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return domain.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.Email = email
	u.Version = 1
	u.CreatedAt = now
	u.UpdatedAt = now

	stored := *u
	r.byID[u.ID] = &stored
	r.byEmail[email] = u.ID
	return nil
}

func (r *IdentityRepository) GetByID(_ context.Context, id string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *IdentityRepository) GetByEmail(_ context.Context, email string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *IdentityRepository) Update(_ context.Context, u *entity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != u.Version {
		return domain.ErrConflict
	}
	email := entity.NormalizeEmail(u.Email)
	if owner, ok := r.byEmail[email]; ok && owner != u.ID {
		return domain.ErrDuplicateEmail
	}
	delete(r.byEmail, cur.Email)
	u.Email = email
	u.Version++
	u.UpdatedAt = time.Now().UTC()

	stored := *u
	r.byID[u.ID] = &stored
	r.byEmail[email] = u.ID
	return nil
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
