package server

import (
	"errors"
	"net/http"

	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	overviewdomain "github.com/civicgrid/civicbill/internal/overview/domain"
	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

// apiError is the uniform error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate_limited")
	ErrNotFound     = errors.New("not_found")
)

// statusFor maps domain sentinels onto HTTP statuses. Unknown errors are
// treated as internal so nothing leaks.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, customerdomain.ErrCustomerNotFound):
		return http.StatusNotFound
	case errors.Is(err, invoicedomain.ErrDuplicateInvoice),
		errors.Is(err, customerdomain.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, invoicedomain.ErrPeriodNotClosed),
		errors.Is(err, invoicedomain.ErrPeriodClosed),
		errors.Is(err, invoicedomain.ErrProvisionalDisabled),
		errors.Is(err, invoicedomain.ErrInvoiceNotDraft),
		errors.Is(err, invoicedomain.ErrInvalidStatusTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usagedomain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, overviewdomain.ErrPartialAggregation):
		return http.StatusBadGateway
	case errors.Is(err, usagedomain.ErrInvalidPeriod),
		errors.Is(err, usagedomain.ErrInvalidCustomer),
		errors.Is(err, usagedomain.ErrInvalidServiceType),
		errors.Is(err, usagedomain.ErrInvalidQuantity),
		errors.Is(err, usagedomain.ErrInvalidUrgency),
		errors.Is(err, usagedomain.ErrInvalidBookingID),
		errors.Is(err, usagedomain.ErrInvalidRecordedAt),
		errors.Is(err, invoicedomain.ErrInvalidPeriod),
		errors.Is(err, invoicedomain.ErrInvalidCustomer),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, overviewdomain.ErrInvalidPeriod),
		errors.Is(err, pricingdomain.ErrInvalidServiceType),
		errors.Is(err, pricingdomain.ErrInvalidUnitPrice),
		errors.Is(err, pricingdomain.ErrInvalidEffectiveFrom),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidCustomerID),
		errors.Is(err, pagination.ErrInvalidCursor):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the uniform error body and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	status := statusFor(err)

	code := "internal_error"
	if status != http.StatusInternalServerError {
		code = rootMessage(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, apiError{Code: code})
}

// rootMessage unwraps to the innermost sentinel text.
func rootMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
