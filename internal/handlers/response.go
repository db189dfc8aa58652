package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAppError maps domain error kinds onto HTTP statuses. Anything that
// is not a classified domain error is a 500.
func RespondAppError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		RespondError(c, http.StatusNotFound, "not_found", err)
	case apperr.KindAccessDenied:
		RespondError(c, http.StatusForbidden, "access_denied", err)
	case apperr.KindConflict:
		RespondError(c, http.StatusConflict, "conflict", err)
	case apperr.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
			Error: APIError{
				Message: err.Error(),
				Code:    "validation_failed",
				Fields:  apperr.FieldsOf(err),
			},
		})
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
