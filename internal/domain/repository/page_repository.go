package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

// PageRepository persists pages with the same optimistic versioning rules as IdentityRepository.
type PageRepository interface {
	Create(ctx context.Context, p *entity.Page) error
	GetByID(ctx context.Context, id string) (*entity.Page, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Page, error)
	Update(ctx context.Context, p *entity.Page) error
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*entity.Page, error)
}
