package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-content-auth/internal/interface/http"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
)

// AuthModule routes the session endpoints.
// Public: POST /auth/login, /auth/refresh, /auth/logout
// Protected: GET /auth/me
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Resolver middleware.IdentityResolver
}

func NewAuthModule(h *handlers.AuthHandler, resolver middleware.IdentityResolver) *AuthModule {
	return &AuthModule{Handler: h, Resolver: resolver}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/login", limit(10, time.Minute, middleware.KeyByIPAndRoute()), m.Handler.Login)
	rg.POST("/auth/refresh", limit(60, time.Minute, middleware.KeyByIPAndRoute()), m.Handler.Refresh)
	rg.POST("/auth/logout", limit(60, time.Minute, middleware.KeyByIPAndRoute()), m.Handler.Logout)

	rg.GET("/auth/me", middleware.Auth(m.Resolver), limit(120, time.Minute, middleware.KeyByUserID()), m.Handler.Me)
}
