package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/infrastructure/memory"
)

const testSecret = "test-secret-0123456789"

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []application.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e application.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed map[string]*entity.Page
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{indexed: map[string]*entity.Page{}}
}

func (ix *recordingIndexer) Index(_ context.Context, p *entity.Page) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.indexed[p.ID] = p.Clone()
	return nil
}

func (ix *recordingIndexer) Remove(_ context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.indexed, id)
	return nil
}

func (ix *recordingIndexer) Search(context.Context, string, int) ([]application.SearchHit, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	hits := make([]application.SearchHit, 0, len(ix.indexed))
	for _, p := range ix.indexed {
		hits = append(hits, application.SearchHit{ID: p.ID, Slug: p.Slug, Title: p.Title})
	}
	return hits, nil
}

func (ix *recordingIndexer) Has(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.indexed[id]
	return ok
}

type env struct {
	clock      *fakeClock
	identities *memory.IdentityRepository
	pages      *memory.PageRepository
	store      *application.MemoryRevocationStore
	creds      *application.CredentialStore
	tokens     *application.TokenService
	auth       *application.Authenticator
	guard      *application.Guard
	lifecycle  *application.LifecycleManager
	ids        *application.IdentityService
	events     *recordingPublisher
	indexer    *recordingIndexer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		clock:      newFakeClock(),
		identities: memory.NewIdentityRepository(),
		pages:      memory.NewPageRepository(),
		store:      application.NewMemoryRevocationStore(),
		guard:      application.NewGuard(),
		events:     &recordingPublisher{},
		indexer:    newRecordingIndexer(),
	}
	e.creds = application.NewCredentialStore(e.identities, bcrypt.MinCost, nil)

	tokens, err := application.NewTokenService(testSecret, e.store,
		application.WithClock(e.clock.Now),
		application.WithAccessTTL(15*time.Minute),
		application.WithRefreshTTL(24*time.Hour),
		application.WithIssuer("content-auth-test"),
	)
	require.NoError(t, err)
	e.tokens = tokens

	e.auth = application.NewAuthenticator(e.creds, e.tokens, e.events, nil, nil)
	e.lifecycle = application.NewLifecycleManager(e.pages, e.guard,
		application.WithLifecycleClock(e.clock.Now),
		application.WithPageEvents(e.events),
		application.WithPageIndexer(e.indexer),
		application.WithSecretCost(bcrypt.MinCost),
	)
	e.ids = application.NewIdentityService(e.creds, e.tokens, e.guard, nil, e.events, nil)
	return e
}

func (e *env) identity(t *testing.T, email string, role entity.Role) *entity.Identity {
	t.Helper()
	u, err := e.creds.Create(context.Background(), application.NewIdentity{
		Email: email, FirstName: "Test", LastName: role.String(), Role: role,
	}, "password-123")
	require.NoError(t, err)
	return u
}

func (e *env) draft(t *testing.T, author *entity.Identity, slug string) *entity.Page {
	t.Helper()
	p, err := e.lifecycle.Create(context.Background(), author, application.PageInput{
		Title: "Title " + slug, Slug: slug, Description: "desc", Body: "body",
	})
	require.NoError(t, err)
	return p
}
