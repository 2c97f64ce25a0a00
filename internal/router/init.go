package router

import (
	"context"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/container"
	"github.com/oksasatya/go-content-auth/internal/domain/repository"
	"github.com/oksasatya/go-content-auth/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-content-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-content-auth/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-content-auth/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-content-auth/internal/interface/http"
	"github.com/oksasatya/go-content-auth/internal/router/modules"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

// Services are the application components shared by the HTTP modules and the background loops.
type Services struct {
	Credentials *application.CredentialStore
	Tokens      *application.TokenService
	Auth        *application.Authenticator
	Guard       *application.Guard
	Pages       *application.LifecycleManager
	Identities  *application.IdentityService
}

// BuildServices wires the application layer from the container. Missing infrastructure
// falls back to in-process implementations so the API also runs without Postgres or Redis.
func BuildServices() (*Services, error) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var (
		identities repository.IdentityRepository
		pages      repository.PageRepository
	)
	if pool := container.GetPGPool(); pool != nil {
		identities = pginfra.NewIdentityRepository(pool)
		pages = pginfra.NewPageRepository(pool)
	} else {
		logger.Warn("postgres not configured; using in-memory repositories")
		identities = memory.NewIdentityRepository()
		pages = memory.NewPageRepository()
	}

	var revocations application.RevocationStore
	if rdb := container.GetRedis(); rdb != nil {
		revocations = redisstore.NewRevocationStore(rdb, cfg.AppName)
	} else {
		logger.Warn("redis not configured; revocations are kept in process")
		revocations = application.NewMemoryRevocationStore()
	}

	var events application.EventPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		events = application.PublisherFunc(func(ctx context.Context, e application.Event) error {
			return pub.PublishJSON(ctx, e)
		})
	}

	var mt application.Metrics
	if col := container.GetMetrics(); col != nil {
		mt = col
	}

	var storage application.ObjectStore
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		storage = &helpers.GCSUploader{Client: gcs, Bucket: cfg.GCSBucket}
	}

	tokens, err := application.NewTokenService(cfg.Secret(), revocations,
		application.WithAccessTTL(cfg.AccessTTL),
		application.WithRefreshTTL(cfg.RefreshTTL),
		application.WithIssuer(cfg.JWTIssuer),
	)
	if err != nil {
		return nil, err
	}

	guard := application.NewGuard()
	creds := application.NewCredentialStore(identities, cfg.BcryptCost, logger)

	opts := []application.LifecycleOption{
		application.WithPageEvents(events),
		application.WithPageMetrics(mt),
		application.WithLifecycleLogger(logger),
		application.WithSecretCost(cfg.BcryptCost),
	}
	if es := container.GetES(); es != nil {
		opts = append(opts, application.WithPageIndexer(search.NewPageIndex(es, cfg.ESPagesIndex)))
	}

	return &Services{
		Credentials: creds,
		Tokens:      tokens,
		Auth:        application.NewAuthenticator(creds, tokens, events, mt, logger),
		Guard:       guard,
		Pages:       application.NewLifecycleManager(pages, guard, opts...),
		Identities:  application.NewIdentityService(creds, tokens, guard, storage, events, logger),
	}, nil
}

// InitModules registers every HTTP module on the registry.
// This function should be called once during application startup.
func InitModules(r *Registry, svc *Services) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var cookies *helpers.CookieManager
	if cfg.CookieEnabled {
		cookies = helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)
	}

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc.Auth, svc.Tokens, cookies, logger), svc.Auth))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc.Identities, logger), svc.Auth))
	r.Add(modules.NewPageModule(handlers.NewPageHandler(svc.Pages, logger), svc.Auth))
	r.Add(modules.NewOpsModule(r.Engine))
}
