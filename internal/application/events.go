package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

// Event types published after a state change has been committed.
const (
	EventPagePublished     = "page.published"
	EventPageArchived      = "page.archived"
	EventRefreshReuse      = "security.refresh_reuse"
	EventIdentitySuspended = "identity.suspended"
)

// Event is the JSON payload put on the events queue.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	IdentityID string    `json:"identityId,omitempty"`
	Email      string    `json:"email,omitempty"`
	PageID     string    `json:"pageId,omitempty"`
	Slug       string    `json:"slug,omitempty"`
	Title      string    `json:"title,omitempty"`
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a plain function, e.g. a RabbitMQ JSON publisher, to EventPublisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// SearchHit is one published page returned by the search index.
type SearchHit struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// PageIndexer mirrors published public pages into a full-text index.
type PageIndexer interface {
	Index(ctx context.Context, p *entity.Page) error
	Remove(ctx context.Context, pageID string) error
	Search(ctx context.Context, q string, size int) ([]SearchHit, error)
}

// Metrics receives counters for auth and lifecycle outcomes.
type Metrics interface {
	LoginAttempt(outcome string)
	RefreshAttempt(outcome string)
	PageTransition(from, to entity.PageStatus)
}

// ObjectStore stores uploaded blobs and returns a URL for them.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

type nopIndexer struct{}

func (nopIndexer) Index(context.Context, *entity.Page) error { return nil }
func (nopIndexer) Remove(context.Context, string) error      { return nil }
func (nopIndexer) Search(context.Context, string, int) ([]SearchHit, error) {
	return []SearchHit{}, nil
}

type nopMetrics struct{}

func (nopMetrics) LoginAttempt(string)                                 {}
func (nopMetrics) RefreshAttempt(string)                               {}
func (nopMetrics) PageTransition(entity.PageStatus, entity.PageStatus) {}
