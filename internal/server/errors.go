package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
)

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ErrorHandlingMiddleware maps the sentinel errors attached via c.Error into
// the HTTP responses spec.md §7 describes, following the teacher's
// ErrorHandlingMiddleware/mapError split.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError keys the gateway's error taxonomy (spec.md §7) to HTTP status
// codes. EmptyTransactions is not here: it is a normal 200 decline, never
// an HTTP error. WebhookFailed never reaches the handler: it is logged only
// by the dispatcher. ConfigInvalid is fatal at process start-up, not an
// HTTP concern.
func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, decisiondomain.ErrBankUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Error:   "bank_api_error",
			Message: "bank transaction history is temporarily unavailable",
		}
	case errors.Is(err, decisiondomain.ErrPlanNotFound):
		return http.StatusNotFound, errorPayload{
			Error:   "plan_not_found",
			Message: "plan not found",
		}
	case errors.Is(err, decisiondomain.ErrPersistenceError):
		return http.StatusInternalServerError, errorPayload{
			Error:   "persistence_error",
			Message: "internal server error",
		}
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Error:   "invalid_request",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Error:   "internal_error",
			Message: "internal server error",
		}
	}
}

var errInvalidRequest = errors.New("invalid_request")
