package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/pkg/response"
	"github.com/oksasatya/go-content-auth/pkg/validation"
)

// writeDomainError maps application errors onto the API error contract.
// Unknown errors are logged and reported as a bare 500.
func writeDomainError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, domain.ErrAccountSuspended):
		response.Fail(c, http.StatusUnauthorized, "account suspended", nil)
	case errors.Is(err, domain.ErrInvalidSession):
		response.Fail(c, http.StatusUnauthorized, "invalid session", nil)
	case errors.Is(err, domain.ErrForbidden):
		response.Fail(c, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, domain.ErrNotFound):
		response.Fail(c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, domain.ErrConflict):
		response.Fail(c, http.StatusConflict, "resource was modified concurrently", nil)
	case errors.Is(err, domain.ErrSlugLocked):
		response.Fail(c, http.StatusConflict, domain.ErrSlugLocked.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateEmail):
		response.Fail(c, http.StatusConflict, domain.ErrDuplicateEmail.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateSlug):
		response.Fail(c, http.StatusConflict, domain.ErrDuplicateSlug.Error(), nil)
	case errors.Is(err, domain.ErrValidation):
		response.Fail(c, http.StatusBadRequest, validationMessage(err), nil)
	case errors.Is(err, application.ErrStorageUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, "avatar storage unavailable", nil)
	default:
		if logger != nil {
			logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		}
		response.Fail(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// validationMessage strips the sentinel prefix so clients read "title is required".
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	if msg == "" || msg == domain.ErrValidation.Error() {
		return "invalid request"
	}
	return msg
}

func writeBindError(c *gin.Context, err error) {
	response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}
