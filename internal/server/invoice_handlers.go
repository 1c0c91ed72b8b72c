package server

import (
	"net/http"

	"github.com/civicgrid/civicbill/internal/billingctx"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type generateInvoiceRequest struct {
	Period      string `json:"period"`
	Provisional bool   `json:"provisional"`
}

// GenerateInvoice creates (or returns) the invoice for a period.
func (s *Server) GenerateInvoice(c *gin.Context) {
	customerID, ok := billingctx.CustomerIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req generateInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invoicedomain.ErrInvalidPeriod)
			return
		}
	}

	invoice, err := s.invoiceSvc.Generate(c.Request.Context(), invoicedomain.GenerateRequest{
		CustomerID:  customerID,
		Period:      req.Period,
		Provisional: req.Provisional,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// ListInvoices pages through the authenticated customer's invoices.
func (s *Server) ListInvoices(c *gin.Context) {
	customerID, ok := billingctx.CustomerIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, pagination.ErrInvalidCursor)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		Pagination: page,
		CustomerID: customerID,
		Status:     c.Query("status"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetInvoice returns one invoice, scoped to the authenticated customer unless
// the key is an admin key.
func (s *Server) GetInvoice(c *gin.Context) {
	invoice, err := s.loadInvoice(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// GetInvoiceHTML renders the invoice as a standalone HTML document.
func (s *Server) GetInvoiceHTML(c *gin.Context) {
	invoice, err := s.loadInvoice(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, contentType, err := s.renderer.Render(c.Request.Context(), invoice)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) loadInvoice(c *gin.Context) (*invoicedomain.Invoice, error) {
	customerID, ok := billingctx.CustomerIDFromContext(c.Request.Context())
	if !ok {
		return nil, ErrUnauthorized
	}
	if billingctx.IsAdmin(c.Request.Context()) {
		customerID = 0
	}
	return s.invoiceSvc.GetByID(c.Request.Context(), customerID, c.Param("id"))
}

// FinalizeInvoice promotes a draft invoice to pending.
func (s *Server) FinalizeInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// PayInvoice settles a pending or overdue invoice.
func (s *Server) PayInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// CancelInvoice voids a pending invoice.
func (s *Server) CancelInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
