package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
)

const identityColumns = `id, email, password_hash, first_name, last_name, role, status, avatar_url, version, created_at, updated_at`

type IdentityRepository struct {
	pool DB
}

func NewIdentityRepository(pool DB) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Create(ctx context.Context, u *entity.Identity) error {
	u.Email = entity.NormalizeEmail(u.Email)
	row := r.pool.QueryRow(ctx, `
		INSERT INTO identities (email, password_hash, first_name, last_name, role, status, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at
	`, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role.String(), string(u.Status), u.AvatarURL)

	if err := row.Scan(&u.ID, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if uniqueConstraint(err) != "" {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*entity.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, entity.NormalizeEmail(email))
	return scanIdentity(row)
}

func (r *IdentityRepository) Update(ctx context.Context, u *entity.Identity) error {
	u.Email = entity.NormalizeEmail(u.Email)
	row := r.pool.QueryRow(ctx, `
		UPDATE identities
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4, role = $5,
		    status = $6, avatar_url = $7, version = version + 1, updated_at = now()
		WHERE id = $8 AND version = $9
		RETURNING version, updated_at
	`, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role.String(), string(u.Status), u.AvatarURL, u.ID, u.Version)

	if err := row.Scan(&u.Version, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrStale(ctx, u.ID)
		}
		if uniqueConstraint(err) != "" {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *IdentityRepository) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func scanIdentity(row pgx.Row) (*entity.Identity, error) {
	var (
		u      entity.Identity
		role   string
		status string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &status,
		&u.AvatarURL, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	parsed, err := entity.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = parsed
	u.Status = entity.IdentityStatus(status)
	return &u, nil
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
