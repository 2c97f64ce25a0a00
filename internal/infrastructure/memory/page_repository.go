package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
)

// PageRepository keeps pages in process memory with version checks on update.
type PageRepository struct {
	mu     sync.RWMutex
	byID   map[string]*entity.Page
	bySlug map[string]string
	now    func() time.Time
}

func NewPageRepository() *PageRepository {
	return &PageRepository{
		byID:   make(map[string]*entity.Page),
		bySlug: make(map[string]string),
		now:    time.Now,
	}
}

func (r *PageRepository) Create(_ context.Context, p *entity.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySlug[p.Slug]; ok {
		return domain.ErrDuplicateSlug
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.now().UTC()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	r.byID[p.ID] = p.Clone()
	r.bySlug[p.Slug] = p.ID
	return nil
}

func (r *PageRepository) GetByID(_ context.Context, id string) (*entity.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PageRepository) GetBySlug(_ context.Context, slug string) (*entity.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *PageRepository) Update(_ context.Context, p *entity.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != p.Version {
		return domain.ErrConflict
	}
	if owner, ok := r.bySlug[p.Slug]; ok && owner != p.ID {
		return domain.ErrDuplicateSlug
	}
	delete(r.bySlug, cur.Slug)
	p.Version++
	p.UpdatedAt = r.now().UTC()
	r.byID[p.ID] = p.Clone()
	r.bySlug[p.Slug] = p.ID
	return nil
}

func (r *PageRepository) ListDueScheduled(_ context.Context, now time.Time, limit int) ([]*entity.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*entity.Page
	for _, p := range r.byID {
		if p.Status == entity.PageScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now) {
			due = append(due, p.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(*due[j].ScheduledFor) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

var _ repository.PageRepository = (*PageRepository)(nil)
