package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/pkg/response"
)

const (
	CtxIdentityKey = "identity"
	CtxUserIDKey   = "userID"
)

// IdentityResolver turns a bearer access token into an active identity.
type IdentityResolver interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.Identity, error)
}

// Auth requires a valid "Authorization: Bearer <access token>" header and stores the
// identity in the Gin context.
func Auth(auth IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		u, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "invalid session", nil)
			return
		}
		setIdentity(c, u)
		c.Next()
	}
}

// OptionalAuth resolves the bearer token when present. Requests without one, or with an
// unusable one, continue anonymously.
func OptionalAuth(auth IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if u, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setIdentity(c, u)
			}
		}
		c.Next()
	}
}

// CurrentIdentity returns the authenticated identity, or nil for anonymous requests.
func CurrentIdentity(c *gin.Context) *entity.Identity {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.Identity)
	return u
}

func setIdentity(c *gin.Context, u *entity.Identity) {
	c.Set(CtxIdentityKey, u)
	c.Set(CtxUserIDKey, u.ID)
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
