package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

func TestCreatePage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	editor := e.identity(t, "editor@x.com", entity.RoleEditor)
	viewer := e.identity(t, "viewer@x.com", entity.RoleViewer)

	p := e.draft(t, editor, "hello-world")
	require.Equal(t, entity.PageDraft, p.Status)
	require.Equal(t, entity.VisibilityPublic, p.Visibility)
	require.Nil(t, p.PublishedAt)
	require.Equal(t, editor.ID, p.AuthorID)

	_, err := e.lifecycle.Create(ctx, viewer, application.PageInput{Title: "x", Slug: "x"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.lifecycle.Create(ctx, editor, application.PageInput{Title: "dup", Slug: "hello-world"})
	require.ErrorIs(t, err, domain.ErrDuplicateSlug)

	_, err = e.lifecycle.Create(ctx, editor, application.PageInput{Title: "bad", Slug: "Not a slug!"})
	require.ErrorIs(t, err, domain.ErrValidation)

	derived, err := e.lifecycle.Create(ctx, editor, application.PageInput{Title: "  Release Notes: v2.0!  "})
	require.NoError(t, err)
	require.Equal(t, "release-notes-v2-0", derived.Slug)

	_, err = e.lifecycle.Create(ctx, editor, application.PageInput{Title: "!!!"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestEditorCannotPublishAdminCan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	editor := e.identity(t, "editor@x.com", entity.RoleEditor)
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, editor, "p1")

	_, err := e.lifecycle.Transition(ctx, editor, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.ErrorIs(t, err, domain.ErrForbidden)

	unchanged, err := e.pages.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, entity.PageDraft, unchanged.Status)
	require.Equal(t, p.Version, unchanged.Version)

	published, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.NoError(t, err)
	require.Equal(t, entity.PagePublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	require.True(t, published.PublishedAt.Equal(e.clock.Now()))
	require.Contains(t, e.events.Types(), application.EventPagePublished)
	require.True(t, e.indexer.Has(p.ID))
}

func TestArchiveKeepsPublishedAt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "keep-date")

	published, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.NoError(t, err)
	firstPublish := *published.PublishedAt

	e.clock.Advance(48 * time.Hour)
	archived, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageArchived})
	require.NoError(t, err)
	require.Equal(t, entity.PageArchived, archived.Status)
	require.True(t, archived.PublishedAt.Equal(firstPublish))
	require.False(t, e.indexer.Has(p.ID))

	// archived is terminal
	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageDraft})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestIllegalTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "illegal")

	_, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageArchived})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageDraft})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: "LIVE"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.lifecycle.Transition(ctx, admin, "missing", application.TransitionRequest{Status: entity.PagePublished})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduleRequiresFutureTime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "later")

	_, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageScheduled})
	require.ErrorIs(t, err, domain.ErrValidation)

	past := e.clock.Now().Add(-time.Minute)
	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageScheduled, ScheduledFor: &past})
	require.ErrorIs(t, err, domain.ErrValidation)

	when := e.clock.Now().Add(time.Hour)
	scheduled, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageScheduled, ScheduledFor: &when})
	require.NoError(t, err)
	require.Equal(t, entity.PageScheduled, scheduled.Status)
	require.Nil(t, scheduled.PublishedAt)
	require.True(t, scheduled.ScheduledFor.Equal(when))

	unscheduled, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageDraft})
	require.NoError(t, err)
	require.Equal(t, entity.PageDraft, unscheduled.Status)
	require.Nil(t, unscheduled.ScheduledFor)
}

func TestForcedPromotionUsesScheduledTime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "forced")

	when := e.clock.Now().Add(time.Hour)
	_, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageScheduled, ScheduledFor: &when})
	require.NoError(t, err)

	published, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.NoError(t, err)
	require.True(t, published.PublishedAt.Equal(when))
}

func TestPromoteDue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	soon := e.draft(t, admin, "soon")
	later := e.draft(t, admin, "later")

	t1 := e.clock.Now().Add(10 * time.Minute)
	t2 := e.clock.Now().Add(2 * time.Hour)
	_, err := e.lifecycle.Transition(ctx, admin, soon.ID, application.TransitionRequest{Status: entity.PageScheduled, ScheduledFor: &t1})
	require.NoError(t, err)
	_, err = e.lifecycle.Transition(ctx, admin, later.ID, application.TransitionRequest{Status: entity.PageScheduled, ScheduledFor: &t2})
	require.NoError(t, err)

	n, err := e.lifecycle.PromoteDue(ctx, e.clock.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	e.clock.Advance(30 * time.Minute)
	n, err = e.lifecycle.PromoteDue(ctx, e.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := e.pages.GetByID(ctx, soon.ID)
	require.NoError(t, err)
	require.Equal(t, entity.PagePublished, got.Status)
	require.True(t, got.PublishedAt.Equal(t1), "publishedAt is the scheduled time, not the sweep time")

	got, err = e.pages.GetByID(ctx, later.ID)
	require.NoError(t, err)
	require.Equal(t, entity.PageScheduled, got.Status)
}

func TestSlugLockedAfterPublish(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "original")

	renamed := "renamed"
	p, err := e.lifecycle.UpdateContent(ctx, admin, p.ID, application.PageUpdate{Slug: &renamed})
	require.NoError(t, err)
	require.Equal(t, "renamed", p.Slug)

	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.NoError(t, err)

	again := "renamed-again"
	_, err = e.lifecycle.UpdateContent(ctx, admin, p.ID, application.PageUpdate{Slug: &again})
	require.ErrorIs(t, err, domain.ErrSlugLocked)

	title := "New title"
	updated, err := e.lifecycle.UpdateContent(ctx, admin, p.ID, application.PageUpdate{Title: &title, Slug: &renamed})
	require.NoError(t, err)
	require.Equal(t, "New title", updated.Title)
}

func TestEditorEditsOnlyOwnDraft(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.identity(t, "author@x.com", entity.RoleEditor)
	other := e.identity(t, "other@x.com", entity.RoleEditor)
	p := e.draft(t, author, "mine")

	body := "updated"
	_, err := e.lifecycle.UpdateContent(ctx, author, p.ID, application.PageUpdate{Body: &body})
	require.NoError(t, err)

	_, err = e.lifecycle.UpdateContent(ctx, other, p.ID, application.PageUpdate{Body: &body})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestVisibilityPasswordRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "secret")
	_, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.NoError(t, err)

	_, err = e.lifecycle.SetVisibility(ctx, admin, p.ID, application.VisibilityRequest{Visibility: entity.VisibilityPasswordProtected})
	require.ErrorIs(t, err, domain.ErrValidation)

	protected, err := e.lifecycle.SetVisibility(ctx, admin, p.ID, application.VisibilityRequest{
		Visibility: entity.VisibilityPasswordProtected, Password: "open-sesame",
	})
	require.NoError(t, err)
	require.NotEmpty(t, protected.PasswordHash)
	require.NotEqual(t, "open-sesame", protected.PasswordHash)
	require.False(t, e.indexer.Has(p.ID))

	_, err = e.lifecycle.Get(ctx, nil, p.ID, "")
	require.ErrorIs(t, err, domain.ErrForbidden)
	got, err := e.lifecycle.GetBySlug(ctx, nil, "secret", "open-sesame")
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	public, err := e.lifecycle.SetVisibility(ctx, admin, p.ID, application.VisibilityRequest{Visibility: entity.VisibilityPublic})
	require.NoError(t, err)
	require.Empty(t, public.PasswordHash)
	require.True(t, e.indexer.Has(p.ID))
}

func TestPrivatePageHiddenFromAnonymous(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	viewer := e.identity(t, "viewer@x.com", entity.RoleViewer)
	p := e.draft(t, admin, "members")

	_, err := e.lifecycle.Get(ctx, viewer, p.ID, "")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PagePublished})
	require.NoError(t, err)
	_, err = e.lifecycle.SetVisibility(ctx, admin, p.ID, application.VisibilityRequest{Visibility: entity.VisibilityPrivate})
	require.NoError(t, err)

	_, err = e.lifecycle.Get(ctx, nil, p.ID, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.lifecycle.Get(ctx, viewer, p.ID, "")
	require.NoError(t, err)
}

func TestStaleVersionConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "race")

	title := "first"
	_, err := e.lifecycle.UpdateContent(ctx, admin, p.ID, application.PageUpdate{Title: &title, ExpectedVersion: p.Version})
	require.NoError(t, err)

	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{
		Status: entity.PagePublished, ExpectedVersion: p.Version,
	})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestRoleGateComesBeforeVersionAndPreconditions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	viewer := e.identity(t, "viewer@x.com", entity.RoleViewer)
	p := e.draft(t, admin, "gated")
	stale := p.Version + 7

	_, err := e.lifecycle.Transition(ctx, viewer, p.ID, application.TransitionRequest{
		Status: entity.PagePublished, ExpectedVersion: stale,
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.lifecycle.Transition(ctx, viewer, p.ID, application.TransitionRequest{Status: entity.PageScheduled})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.lifecycle.SetVisibility(ctx, viewer, p.ID, application.VisibilityRequest{
		Visibility: entity.VisibilityPasswordProtected, ExpectedVersion: stale,
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	title := "hijack"
	_, err = e.lifecycle.UpdateContent(ctx, viewer, p.ID, application.PageUpdate{Title: &title, ExpectedVersion: stale})
	require.ErrorIs(t, err, domain.ErrForbidden)

	// an allowed caller still gets the version and precondition errors
	_, err = e.lifecycle.SetVisibility(ctx, admin, p.ID, application.VisibilityRequest{
		Visibility: entity.VisibilityPasswordProtected, ExpectedVersion: stale,
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{Status: entity.PageScheduled})
	require.ErrorIs(t, err, domain.ErrValidation)

	got, err := e.lifecycle.Get(ctx, admin, p.ID, "")
	require.NoError(t, err)
	require.Equal(t, p.Version, got.Version)
	require.Equal(t, entity.PageDraft, got.Status)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	p := e.draft(t, admin, "contended")

	const callers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.lifecycle.Transition(ctx, admin, p.ID, application.TransitionRequest{
				Status: entity.PagePublished, ExpectedVersion: p.Version,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrValidation):
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, conflicts)
}
