// Package respond writes JSON error bodies for the HTTP handlers.
package respond

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tajwid-academy/internal/apperr"
	"tajwid-academy/internal/lib/sl"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Status maps an error kind to its HTTP status.
func Status(k apperr.Kind) int {
	switch k {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Validation, apperr.SignatureInvalid:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts with the status for err's kind. Internal and upstream causes
// are logged and replaced by a generic message.
func Error(c *gin.Context, log *slog.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.Internal, "internal error", err)
	}

	status := Status(e.Kind)
	msg := e.Message
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("kind", e.Kind.String()),
			sl.Err(err),
		)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// Validation reports the first failing field of a bind error, or a generic
// message for malformed bodies.
func Validation(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ValidationMessage(err)})
}

func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %s is required", fe.Field())
	case "email":
		return fmt.Sprintf("field %s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("field %s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field %s must be at most %s", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("field %s must be a valid url", fe.Field())
	default:
		return fmt.Sprintf("field %s is not valid", fe.Field())
	}
}
