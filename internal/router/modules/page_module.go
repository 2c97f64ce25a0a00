package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-content-auth/internal/interface/http"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
)

// PageModule routes content. Reads accept anonymous callers; writes require a session.
type PageModule struct {
	Handler  *handlers.PageHandler
	Resolver middleware.IdentityResolver
}

func NewPageModule(h *handlers.PageHandler, resolver middleware.IdentityResolver) *PageModule {
	return &PageModule{Handler: h, Resolver: resolver}
}

func (m *PageModule) Register(rg *gin.RouterGroup) {
	pages := rg.Group("/pages")

	read := pages.Group("")
	read.Use(middleware.OptionalAuth(m.Resolver), limit(300, time.Minute, middleware.KeyByUserID()))
	{
		read.GET("/search", m.Handler.Search)
		// password guesses on protected pages are limited per client and route
		read.GET("/slug/:slug", limit(30, time.Minute, middleware.KeyByIPAndRoute()), m.Handler.GetBySlug)
		read.GET("/:id", limit(30, time.Minute, middleware.KeyByIPAndRoute()), m.Handler.Get)
	}

	write := pages.Group("")
	write.Use(middleware.Auth(m.Resolver), limit(120, time.Minute, middleware.KeyByUserID()))
	{
		write.POST("", m.Handler.Create)
		write.PATCH("/:id", m.Handler.Update)
		write.PATCH("/:id/status", m.Handler.Transition)
		write.PATCH("/:id/visibility", m.Handler.SetVisibility)
	}
}
