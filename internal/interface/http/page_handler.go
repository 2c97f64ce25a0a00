package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
	"github.com/oksasatya/go-content-auth/pkg/response"
)

// HeaderPagePassword carries the secret for PASSWORD_PROTECTED pages.
const HeaderPagePassword = "X-Page-Password"

type PageHandler struct {
	Pages  *application.LifecycleManager
	Logger *logrus.Logger
}

func NewPageHandler(pages *application.LifecycleManager, logger *logrus.Logger) *PageHandler {
	return &PageHandler{Pages: pages, Logger: logger}
}

type createPageRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Slug        string `json:"slug" binding:"omitempty,slug"`
	Description string `json:"description" binding:"max=500"`
	Body        string `json:"body"`
}

type updatePageRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=200"`
	Slug            *string `json:"slug" binding:"omitempty,slug"`
	Description     *string `json:"description" binding:"omitempty,max=500"`
	Body            *string `json:"body"`
	ExpectedVersion int64   `json:"expectedVersion" binding:"min=0"`
}

type transitionRequest struct {
	Status          string     `json:"status" binding:"required,pagestatus"`
	ScheduledFor    *time.Time `json:"scheduledFor"`
	ExpectedVersion int64      `json:"expectedVersion" binding:"min=0"`
}

type visibilityRequest struct {
	Visibility      string `json:"visibility" binding:"required,visibility"`
	Password        string `json:"password" binding:"omitempty,max=72"`
	ExpectedVersion int64  `json:"expectedVersion" binding:"min=0"`
}

// Create POST /api/pages
func (h *PageHandler) Create(c *gin.Context) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.Pages.Create(c.Request.Context(), middleware.CurrentIdentity(c), application.PageInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Body:        req.Body,
	})
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, toPageDto(p))
}

// Get GET /api/pages/:id
func (h *PageHandler) Get(c *gin.Context) {
	p, err := h.Pages.Get(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), c.GetHeader(HeaderPagePassword))
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toPageDto(p))
}

// GetBySlug GET /api/pages/slug/:slug
func (h *PageHandler) GetBySlug(c *gin.Context) {
	p, err := h.Pages.GetBySlug(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("slug"), c.GetHeader(HeaderPagePassword))
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toPageDto(p))
}

// Update PATCH /api/pages/:id
func (h *PageHandler) Update(c *gin.Context) {
	var req updatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.Pages.UpdateContent(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), application.PageUpdate{
		Title:           req.Title,
		Slug:            req.Slug,
		Description:     req.Description,
		Body:            req.Body,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toPageDto(p))
}

// Transition PATCH /api/pages/:id/status
func (h *PageHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.Pages.Transition(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), application.TransitionRequest{
		Status:          entity.PageStatus(req.Status),
		ScheduledFor:    req.ScheduledFor,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toPageDto(p))
}

// SetVisibility PATCH /api/pages/:id/visibility
func (h *PageHandler) SetVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.Pages.SetVisibility(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), application.VisibilityRequest{
		Visibility:      entity.Visibility(req.Visibility),
		Password:        req.Password,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toPageDto(p))
}

// Search GET /api/pages/search?q=&size=
func (h *PageHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Pages.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, response.NewList(hits))
}
