package server

import (
	"net/http"

	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	"github.com/gin-gonic/gin"
)

// ListPrices returns every catalog price point.
func (s *Server) ListPrices(c *gin.Context) {
	points, err := s.catalog.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"base_price":   s.catalog.BasePrice(),
		"price_points": points,
	})
}

// PutPrice appends a new effective-dated price point.
func (s *Server) PutPrice(c *gin.Context) {
	var req pricingdomain.PutPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, pricingdomain.ErrInvalidServiceType)
		return
	}

	point, err := s.catalog.Put(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, point)
}
