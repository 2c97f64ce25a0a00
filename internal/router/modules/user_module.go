package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-content-auth/internal/interface/http"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
)

// UserModule routes account administration and self-service. Every route requires a session.
type UserModule struct {
	Handler  *handlers.UserHandler
	Resolver middleware.IdentityResolver
}

func NewUserModule(h *handlers.UserHandler, resolver middleware.IdentityResolver) *UserModule {
	return &UserModule{Handler: h, Resolver: resolver}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.Resolver), limit(120, time.Minute, middleware.KeyByUserID()))
	{
		users.POST("", m.Handler.Create)
		users.PUT("/me/password", limit(5, time.Minute, middleware.KeyByUserID()), m.Handler.ChangePassword)
		users.PUT("/me/avatar", limit(10, time.Minute, middleware.KeyByUserID()), m.Handler.UploadAvatar)
		users.PATCH("/:id/role", m.Handler.ChangeRole)
		users.PATCH("/:id/status", m.Handler.SetStatus)
	}
}
