package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
)

const pageColumns = `id, author_id, title, slug, description, body, status, visibility, password_hash,
	scheduled_for, published_at, version, created_at, updated_at`

type PageRepository struct {
	pool DB
}

func NewPageRepository(pool DB) *PageRepository {
	return &PageRepository{pool: pool}
}

func (r *PageRepository) Create(ctx context.Context, p *entity.Page) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pages (author_id, title, slug, description, body, status, visibility, password_hash, scheduled_for, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version, created_at, updated_at
	`, p.AuthorID, p.Title, p.Slug, p.Description, p.Body, string(p.Status), string(p.Visibility),
		p.PasswordHash, p.ScheduledFor, p.PublishedAt)

	if err := row.Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if uniqueConstraint(err) != "" {
			return domain.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*entity.Page, error) {
	return scanPage(r.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id))
}

func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*entity.Page, error) {
	return scanPage(r.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = $1`, slug))
}

// Update writes the page only if nobody committed since p.Version was read.
func (r *PageRepository) Update(ctx context.Context, p *entity.Page) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE pages
		SET title = $1, slug = $2, description = $3, body = $4, status = $5, visibility = $6,
		    password_hash = $7, scheduled_for = $8, published_at = $9,
		    version = version + 1, updated_at = now()
		WHERE id = $10 AND version = $11
		RETURNING version, updated_at
	`, p.Title, p.Slug, p.Description, p.Body, string(p.Status), string(p.Visibility), p.PasswordHash,
		p.ScheduledFor, p.PublishedAt, p.ID, p.Version)

	if err := row.Scan(&p.Version, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if qErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pages WHERE id = $1)`, p.ID).Scan(&exists); qErr != nil {
				return qErr
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		if uniqueConstraint(err) != "" {
			return domain.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *PageRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*entity.Page, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+pageColumns+` FROM pages
		WHERE status = 'SCHEDULED' AND scheduled_for <= $1
		ORDER BY scheduled_for
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*entity.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func scanPage(row pgx.Row) (*entity.Page, error) {
	var (
		p          entity.Page
		status     string
		visibility string
	)
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Description, &p.Body, &status, &visibility,
		&p.PasswordHash, &p.ScheduledFor, &p.PublishedAt, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = entity.PageStatus(status)
	p.Visibility = entity.Visibility(visibility)
	return &p, nil
}

var _ repository.PageRepository = (*PageRepository)(nil)
