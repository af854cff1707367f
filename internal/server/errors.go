package server

import (
	"errors"
	"net/http"

	invoicedomain "github.com/fitretto/gymbill/internal/invoice/domain"
	ledgerdomain "github.com/fitretto/gymbill/internal/ledger/domain"
	sessiondomain "github.com/fitretto/gymbill/internal/session/domain"
	"github.com/fitretto/gymbill/internal/stripeapi"
	subscriptiondomain "github.com/fitretto/gymbill/internal/subscription/domain"
	userdomain "github.com/fitretto/gymbill/internal/user/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandlingMiddleware maps errors attached to the gin context onto HTTP
// statuses once the handler chain has finished. Handlers never write error
// bodies themselves.
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

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	var apiErr *stripeapi.APIError
	if errors.As(err, &apiErr) {
		// Processor failures on synchronous endpoints surface the
		// processor's own message.
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, apiErr.Message
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, sessiondomain.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrWeakPassword),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrMissingSession),
		errors.Is(err, invoicedomain.ErrMissingID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, ledgerdomain.ErrEntryNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
