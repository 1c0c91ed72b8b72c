package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/civicgrid/civicbill/internal/billingctx"
	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const bearerPrefix = "Bearer "

// APIKeyAuth authenticates the bearer key against the stored hash and binds
// the owning customer to the request context.
func (s *Server) APIKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearerToken(c.GetHeader("Authorization"))
		if key == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := hashKey(key)
		var stored customerdomain.APIKey
		err := s.db.WithContext(c.Request.Context()).
			Where("key_hash = ?", hash).
			First(&stored).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}
		// The unique index lookup already pins the hash; the explicit
		// compare keeps the check constant-time.
		if subtle.ConstantTimeCompare([]byte(stored.KeyHash), []byte(hash)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := billingctx.WithCustomerID(c.Request.Context(), stored.CustomerID)
		if stored.Admin {
			ctx = billingctx.WithAdmin(ctx)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminOnly rejects requests whose key is not flagged as admin.
func (s *Server) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !billingctx.IsAdmin(c.Request.Context()) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
