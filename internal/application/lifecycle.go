package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

type PageInput struct {
	Title       string
	Slug        string
	Description string
	Body        string
}

// PageUpdate holds the content fields to change; nil fields are left alone.
// A non-zero ExpectedVersion must match the stored version.
type PageUpdate struct {
	Title           *string
	Slug            *string
	Description     *string
	Body            *string
	ExpectedVersion int64
}

type TransitionRequest struct {
	Status          entity.PageStatus
	ScheduledFor    *time.Time
	ExpectedVersion int64
}

type VisibilityRequest struct {
	Visibility      entity.Visibility
	Password        string
	ExpectedVersion int64
}

type pageEvent string

const (
	eventPublish    pageEvent = "publish"
	eventSchedule   pageEvent = "schedule"
	eventPromote    pageEvent = "promote"
	eventUnschedule pageEvent = "unschedule"
	eventArchive    pageEvent = "archive"
)

type transitionKey struct {
	from  entity.PageStatus
	event pageEvent
}

type transitionRule struct {
	to     entity.PageStatus
	action Action
	effect func(p *entity.Page, req TransitionRequest, now time.Time) error
}

// pageTransitions is the whole state machine. Pairs not listed are illegal.
var pageTransitions = map[transitionKey]transitionRule{
	{entity.PageDraft, eventPublish}: {
		to: entity.PagePublished, action: ActionPublish,
		effect: func(p *entity.Page, _ TransitionRequest, now time.Time) error {
			if p.PublishedAt == nil {
				t := now
				p.PublishedAt = &t
			}
			return nil
		},
	},
	{entity.PageDraft, eventSchedule}: {
		to: entity.PageScheduled, action: ActionSchedule,
		effect: func(p *entity.Page, req TransitionRequest, now time.Time) error {
			if req.ScheduledFor == nil || !req.ScheduledFor.After(now) {
				return fmt.Errorf("%w: scheduledFor must be in the future", domain.ErrValidation)
			}
			t := req.ScheduledFor.UTC()
			p.ScheduledFor = &t
			return nil
		},
	},
	{entity.PageScheduled, eventPromote}: {
		to: entity.PagePublished, action: ActionPublish,
		effect: func(p *entity.Page, _ TransitionRequest, now time.Time) error {
			if p.PublishedAt == nil {
				t := now
				if p.ScheduledFor != nil {
					t = *p.ScheduledFor
				}
				p.PublishedAt = &t
			}
			p.ScheduledFor = nil
			return nil
		},
	},
	{entity.PageScheduled, eventUnschedule}: {
		to: entity.PageDraft, action: ActionUnschedule,
		effect: func(p *entity.Page, _ TransitionRequest, _ time.Time) error {
			p.ScheduledFor = nil
			return nil
		},
	},
	{entity.PagePublished, eventArchive}: {
		to: entity.PageArchived, action: ActionArchive,
		effect: func(*entity.Page, TransitionRequest, time.Time) error { return nil },
	},
}

// eventFor names the event that moves a page from one status to another.
func eventFor(from, to entity.PageStatus) pageEvent {
	switch to {
	case entity.PagePublished:
		if from == entity.PageScheduled {
			return eventPromote
		}
		return eventPublish
	case entity.PageScheduled:
		return eventSchedule
	case entity.PageArchived:
		return eventArchive
	case entity.PageDraft:
		return eventUnschedule
	}
	return ""
}

type LifecycleOption func(*LifecycleManager)

func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(m *LifecycleManager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithPageIndexer(ix PageIndexer) LifecycleOption {
	return func(m *LifecycleManager) {
		if ix != nil {
			m.indexer = ix
		}
	}
}

func WithPageEvents(p EventPublisher) LifecycleOption {
	return func(m *LifecycleManager) {
		if p != nil {
			m.events = p
		}
	}
}

func WithPageMetrics(mt Metrics) LifecycleOption {
	return func(m *LifecycleManager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

func WithLifecycleLogger(l *logrus.Logger) LifecycleOption {
	return func(m *LifecycleManager) { m.logger = l }
}

// WithSecretCost sets the bcrypt cost for page access secrets.
func WithSecretCost(cost int) LifecycleOption {
	return func(m *LifecycleManager) { m.secretCost = cost }
}

// LifecycleManager owns pages and their status/visibility state machine.
type LifecycleManager struct {
	repo       repository.PageRepository
	guard      *Guard
	indexer    PageIndexer
	events     EventPublisher
	metrics    Metrics
	logger     *logrus.Logger
	now        func() time.Time
	secretCost int
}

func NewLifecycleManager(repo repository.PageRepository, guard *Guard, opts ...LifecycleOption) *LifecycleManager {
	m := &LifecycleManager{
		repo:    repo,
		guard:   guard,
		indexer: nopIndexer{},
		events:  nopPublisher{},
		metrics: nopMetrics{},
		now:     time.Now,
	}
	if m.guard == nil {
		m.guard = NewGuard()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *LifecycleManager) Create(ctx context.Context, actor *entity.Identity, in PageInput) (*entity.Page, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if err := m.guard.Can(actor.Role, ActionCreatePage); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	raw := in.Slug
	if strings.TrimSpace(raw) == "" {
		raw = slugify(title)
	}
	slug, err := normalizeSlug(raw)
	if err != nil {
		return nil, err
	}
	p := &entity.Page{
		AuthorID:    actor.ID,
		Title:       title,
		Slug:        slug,
		Description: in.Description,
		Body:        in.Body,
		Status:      entity.PageDraft,
		Visibility:  entity.VisibilityPublic,
	}
	if err := m.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the page if actor (nil for anonymous) may read it.
func (m *LifecycleManager) Get(ctx context.Context, actor *entity.Identity, id, secret string) (*entity.Page, error) {
	p, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.guard.CanReadPage(actor, p, secret); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *LifecycleManager) GetBySlug(ctx context.Context, actor *entity.Identity, slug, secret string) (*entity.Page, error) {
	p, err := m.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	if err := m.guard.CanReadPage(actor, p, secret); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *LifecycleManager) UpdateContent(ctx context.Context, actor *entity.Identity, id string, in PageUpdate) (*entity.Page, error) {
	p, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.guard.CanEditPage(actor, p); err != nil {
		return nil, err
	}
	if err := checkVersion(p, in.ExpectedVersion); err != nil {
		return nil, err
	}
	if p.Status == entity.PageArchived {
		return nil, fmt.Errorf("%w: archived pages are read only", domain.ErrValidation)
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
		}
		p.Title = title
	}
	if in.Slug != nil {
		slug, err := normalizeSlug(*in.Slug)
		if err != nil {
			return nil, err
		}
		if slug != p.Slug {
			if p.SlugLocked() {
				return nil, domain.ErrSlugLocked
			}
			p.Slug = slug
		}
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Body != nil {
		p.Body = *in.Body
	}
	if err := m.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if p.Status == entity.PagePublished {
		m.syncIndex(ctx, p)
	}
	return p, nil
}

// Transition moves the page through the state machine. Checks run in order: legality, role
// gate, expected version, then the rule's preconditions. A denied call leaves the page untouched.
func (m *LifecycleManager) Transition(ctx context.Context, actor *entity.Identity, id string, req TransitionRequest) (*entity.Page, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, req.Status)
	}
	p, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := p.Status
	rule, ok := pageTransitions[transitionKey{from, eventFor(from, req.Status)}]
	if !ok || rule.to != req.Status {
		return nil, fmt.Errorf("%w: transition %s -> %s not allowed", domain.ErrValidation, from, req.Status)
	}
	if err := m.guard.Can(actor.Role, rule.action); err != nil {
		return nil, err
	}
	if err := checkVersion(p, req.ExpectedVersion); err != nil {
		return nil, err
	}
	if err := m.apply(ctx, p, rule, req); err != nil {
		return nil, err
	}
	helpers.LogInfo(m.logger, "page transitioned", logrus.Fields{
		"page_id": p.ID, "user_id": actor.ID, "from": string(from), "to": string(p.Status),
	})
	return p, nil
}

// SetVisibility checks the edit permission before the expected version and the secret.
func (m *LifecycleManager) SetVisibility(ctx context.Context, actor *entity.Identity, id string, req VisibilityRequest) (*entity.Page, error) {
	p, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.guard.CanEditPage(actor, p); err != nil {
		return nil, err
	}
	if err := checkVersion(p, req.ExpectedVersion); err != nil {
		return nil, err
	}
	if !req.Visibility.Valid() {
		return nil, fmt.Errorf("%w: unknown visibility %q", domain.ErrValidation, req.Visibility)
	}
	if req.Visibility == entity.VisibilityPasswordProtected && req.Password == "" {
		return nil, fmt.Errorf("%w: password is required for PASSWORD_PROTECTED pages", domain.ErrValidation)
	}
	if req.Visibility == entity.VisibilityPasswordProtected {
		hash, err := helpers.HashPassword(req.Password, m.secretCost)
		if err != nil {
			return nil, err
		}
		p.PasswordHash = hash
	} else {
		p.PasswordHash = ""
	}
	p.Visibility = req.Visibility
	if err := m.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if p.Status == entity.PagePublished {
		m.syncIndex(ctx, p)
	}
	return p, nil
}

// PromoteDue publishes every SCHEDULED page whose time has come. Pages changed concurrently
// by someone else are skipped.
func (m *LifecycleManager) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := m.repo.ListDueScheduled(ctx, now, 100)
	if err != nil {
		return 0, err
	}
	rule := pageTransitions[transitionKey{entity.PageScheduled, eventPromote}]
	promoted := 0
	for _, p := range due {
		if err := m.apply(ctx, p, rule, TransitionRequest{Status: entity.PagePublished}); err != nil {
			if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return promoted, err
		}
		promoted++
	}
	if promoted > 0 {
		helpers.LogInfo(m.logger, "scheduled pages promoted", logrus.Fields{"count": promoted})
	}
	return promoted, nil
}

func (m *LifecycleManager) Search(ctx context.Context, q string, size int) ([]SearchHit, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	return m.indexer.Search(ctx, strings.TrimSpace(q), size)
}

// checkVersion compares the caller's expected version; zero skips the check.
func checkVersion(p *entity.Page, expected int64) error {
	if expected != 0 && expected != p.Version {
		return domain.ErrConflict
	}
	return nil
}

// apply runs the rule's effect, commits with a version check and fires side effects.
// Side-effect failures are logged and never undo the committed transition.
func (m *LifecycleManager) apply(ctx context.Context, p *entity.Page, rule transitionRule, req TransitionRequest) error {
	from := p.Status
	if err := rule.effect(p, req, m.now().UTC()); err != nil {
		return err
	}
	p.Status = rule.to
	if err := m.repo.Update(ctx, p); err != nil {
		return err
	}

	m.metrics.PageTransition(from, p.Status)
	switch p.Status {
	case entity.PagePublished:
		m.publish(ctx, EventPagePublished, p)
		m.syncIndex(ctx, p)
	case entity.PageArchived:
		m.publish(ctx, EventPageArchived, p)
		m.syncIndex(ctx, p)
	}
	return nil
}

func (m *LifecycleManager) publish(ctx context.Context, typ string, p *entity.Page) {
	e := Event{Type: typ, OccurredAt: m.now().UTC(), PageID: p.ID, Slug: p.Slug, Title: p.Title, IdentityID: p.AuthorID}
	if err := m.events.Publish(ctx, e); err != nil {
		helpers.LogWarn(m.logger, "publish page event failed", err, logrus.Fields{"page_id": p.ID, "type": typ})
	}
}

// syncIndex keeps only published public pages in the search index.
func (m *LifecycleManager) syncIndex(ctx context.Context, p *entity.Page) {
	var err error
	if p.Status == entity.PagePublished && p.Visibility == entity.VisibilityPublic {
		err = m.indexer.Index(ctx, p)
	} else {
		err = m.indexer.Remove(ctx, p.ID)
	}
	if err != nil {
		helpers.LogWarn(m.logger, "search index sync failed", err, logrus.Fields{"page_id": p.ID})
	}
}

func normalizeSlug(s string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(s))
	if !entity.ValidSlug(slug) {
		return "", fmt.Errorf("%w: slug must be lower-case letters, digits and single hyphens", domain.ErrValidation)
	}
	return slug, nil
}

// slugify derives a slug from a title: ASCII letters and digits kept, everything else
// collapsed into single hyphens.
func slugify(title string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case b.Len() > 0 && !hyphen:
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
