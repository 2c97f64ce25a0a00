package entity

import (
	"regexp"
	"time"
)

type PageStatus string

const (
	PageDraft     PageStatus = "DRAFT"
	PagePublished PageStatus = "PUBLISHED"
	PageScheduled PageStatus = "SCHEDULED"
	PageArchived  PageStatus = "ARCHIVED"
)

func (s PageStatus) Valid() bool {
	switch s {
	case PageDraft, PagePublished, PageScheduled, PageArchived:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPublic            Visibility = "PUBLIC"
	VisibilityPrivate           Visibility = "PRIVATE"
	VisibilityPasswordProtected Visibility = "PASSWORD_PROTECTED"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityPasswordProtected:
		return true
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lower-case, hyphen separated URL segment.
func ValidSlug(s string) bool {
	return len(s) <= 200 && slugPattern.MatchString(s)
}

// Page is a unit of publishable content.
type Page struct {
	ID           string
	AuthorID     string
	Title        string
	Slug         string
	Description  string
	Body         string
	Status       PageStatus
	Visibility   Visibility
	PasswordHash string
	ScheduledFor *time.Time
	PublishedAt  *time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SlugLocked is true once the page has been published at least once.
// PublishedAt is never cleared, so it doubles as the "ever published" marker.
func (p *Page) SlugLocked() bool { return p.PublishedAt != nil }

// Clone returns a deep copy so callers can mutate without touching shared state.
func (p *Page) Clone() *Page {
	c := *p
	if p.ScheduledFor != nil {
		t := *p.ScheduledFor
		c.ScheduledFor = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
