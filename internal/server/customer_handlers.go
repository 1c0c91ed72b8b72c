package server

import (
	"net/http"

	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

// CreateCustomer registers a new billed customer.
func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, customerdomain.ErrInvalidName)
		return
	}

	customer, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// ListCustomers pages through registered customers.
func (s *Server) ListCustomers(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, pagination.ErrInvalidCursor)
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListRequest{Pagination: page})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCustomer returns one customer by id.
func (s *Server) GetCustomer(c *gin.Context) {
	customer, err := s.customerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}
