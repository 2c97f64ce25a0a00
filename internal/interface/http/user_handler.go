package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
	"github.com/oksasatya/go-content-auth/pkg/response"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Identities *application.IdentityService
	Logger     *logrus.Logger
}

func NewUserHandler(identities *application.IdentityService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Identities: identities, Logger: logger}
}

type createUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,pwd"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
	Role      string `json:"role" binding:"required,role"`
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required,identitystatus"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required,max=72"`
	NewPassword     string `json:"newPassword" binding:"required,pwd"`
}

// Create POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	role, _ := entity.ParseRole(req.Role)
	u, err := h.Identities.Provision(c.Request.Context(), middleware.CurrentIdentity(c), application.NewIdentity{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	}, req.Password)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, toUserDto(u))
}

// ChangeRole PATCH /api/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	role, _ := entity.ParseRole(req.Role)
	u, err := h.Identities.ChangeRole(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), role)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toUserDto(u))
}

// SetStatus PATCH /api/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	u, err := h.Identities.SetStatus(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), entity.IdentityStatus(req.Status))
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toUserDto(u))
}

// ChangePassword PUT /api/users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.Identities.ChangeOwnPassword(c.Request.Context(), middleware.CurrentIdentity(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadAvatar PUT /api/users/me/avatar (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1<<10)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, "avatar exceeds 5MB", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	defer f.Close()

	u, err := h.Identities.UploadAvatar(c.Request.Context(), middleware.CurrentIdentity(c), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, toUserDto(u))
}
