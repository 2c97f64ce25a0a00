package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
	"github.com/oksasatya/go-content-auth/pkg/response"
)

type AuthHandler struct {
	Auth    *application.Authenticator
	Tokens  *application.TokenService
	Cookies *helpers.CookieManager // nil when the refresh cookie is disabled
	Logger  *logrus.Logger
}

func NewAuthHandler(auth *application.Authenticator, tokens *application.TokenService, cookies *helpers.CookieManager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Tokens: tokens, Cookies: cookies, Logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	if h.Cookies != nil {
		h.Cookies.SetRefresh(c, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt)
	}
	response.JSON(c, http.StatusOK, LoginResponse{
		User:   toUserDto(res.Identity),
		Tokens: toTokenResponse(res.Tokens, h.Tokens.AccessTTL(), h.Tokens.RefreshTTL()),
	})
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := h.refreshToken(c)
	if token == "" {
		writeDomainError(c, h.Logger, domain.ErrInvalidSession)
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		if h.Cookies != nil {
			h.Cookies.Clear(c)
		}
		writeDomainError(c, h.Logger, err)
		return
	}
	if h.Cookies != nil {
		h.Cookies.SetRefresh(c, pair.RefreshToken, pair.RefreshExpiresAt)
	}
	response.JSON(c, http.StatusOK, toTokenResponse(pair, h.Tokens.AccessTTL(), h.Tokens.RefreshTTL()))
}

// Logout POST /api/auth/logout. Always 204 unless the revocation store fails.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := h.refreshToken(c); token != "" {
		if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
			writeDomainError(c, h.Logger, err)
			return
		}
	}
	if h.Cookies != nil {
		h.Cookies.Clear(c)
	}
	c.Status(http.StatusNoContent)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CurrentIdentity(c)
	if u == nil {
		writeDomainError(c, h.Logger, domain.ErrInvalidSession)
		return
	}
	response.JSON(c, http.StatusOK, toUserDto(u))
}

// refreshToken reads the body first and falls back to the cookie.
func (h *AuthHandler) refreshToken(c *gin.Context) string {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken == "" && h.Cookies != nil {
		return h.Cookies.Refresh(c)
	}
	return req.RefreshToken
}
