package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

type stubResolver map[string]*entity.Identity

func (s stubResolver) Authenticate(_ context.Context, token string) (*entity.Identity, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("nope")
}

func init() { gin.SetMode(gin.TestMode) }

func TestAuthRequiresBearer(t *testing.T) {
	resolver := stubResolver{"good": {ID: "u1", Role: entity.RoleEditor}}
	r := gin.New()
	r.GET("/me", Auth(resolver), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentIdentity(c).ID)
	})

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"Bearer bad":  http.StatusUnauthorized,
		"Basic good":  http.StatusUnauthorized,
		"Bearer good": http.StatusOK,
		"bearer good": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, want, w.Code, header)
		if want == http.StatusOK {
			require.Equal(t, "u1", w.Body.String())
		}
	}
}

func TestOptionalAuthContinuesAnonymously(t *testing.T) {
	r := gin.New()
	r.GET("/p", OptionalAuth(stubResolver{}), func(c *gin.Context) {
		if CurrentIdentity(c) == nil {
			c.String(http.StatusOK, "anon")
			return
		}
		c.String(http.StatusOK, "user")
	})
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "anon", w.Body.String())
}

func TestLocalRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RealIP(false))
	r.POST("/login", RateLimit(NewLocalLimiter(2, time.Minute), KeyByIPAndRoute(), nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			require.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRequestIDEchoesValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	id := "3f1c2d4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, id, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.NotEqual(t, "not-a-uuid", w.Body.String())
	require.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))
}

func TestRealIPTrustsProxyOnlyWhenAsked(t *testing.T) {
	for trust, want := range map[bool]string{true: "203.0.113.9", false: "192.0.2.1"} {
		r := gin.New()
		require.NoError(t, r.SetTrustedProxies(nil))
		r.Use(RealIP(trust))
		r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, want, w.Body.String())
	}
}
