package server

import (
	"net/http"
	"strings"

	"github.com/civicgrid/civicbill/internal/billingctx"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

// GetUsage returns the authenticated customer's usage summary for a period.
func (s *Server) GetUsage(c *gin.Context) {
	customerID, ok := billingctx.CustomerIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	period, err := s.resolvePeriod(c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.usageSvc.ComputeUsage(c.Request.Context(), customerID, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// IngestUsageEvent accepts one booking event. Non-admin keys may only record
// usage against their own customer.
func (s *Server) IngestUsageEvent(c *gin.Context) {
	customerID, ok := billingctx.CustomerIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req usagedomain.CreateIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, usagedomain.ErrInvalidCustomer)
		return
	}

	if strings.TrimSpace(req.CustomerID) == "" {
		req.CustomerID = customerID.String()
	} else if req.CustomerID != customerID.String() && !billingctx.IsAdmin(c.Request.Context()) {
		AbortWithError(c, ErrForbidden)
		return
	}

	event, err := s.usageSvc.Ingest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// resolvePeriod parses the period query value, defaulting to the current
// billing month.
func (s *Server) resolvePeriod(raw string) (usagedomain.Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return usagedomain.PeriodOf(s.clock.Now(), s.cfg.Location()), nil
	}
	return usagedomain.ParsePeriod(raw)
}
