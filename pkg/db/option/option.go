// Package option provides composable gorm query options.
package option

import (
	"strings"
	"time"

	"github.com/civicgrid/civicbill/pkg/db/pagination"
	"gorm.io/gorm"
)

// Option mutates a gorm query before execution.
type Option func(*gorm.DB) *gorm.DB

// QuerySortBy restricts sortable columns to an allow list.
type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

// ApplyPagination adds cursor-based pagination to a query. One extra row is
// fetched so callers can detect whether more pages exist.
func ApplyPagination(p pagination.Pagination) Option {
	return func(tx *gorm.DB) *gorm.DB {
		pageSize := p.PageSize
		if pageSize <= 0 {
			pageSize = 50
		}
		if token := strings.TrimSpace(p.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil {
				// Bind the timestamp as time.Time so the driver
				// formats it the same way it stored the column.
				if at, parseErr := time.Parse(time.RFC3339Nano, cursor.CreatedAt); parseErr == nil {
					tx = tx.Where(
						"(created_at < ?) OR (created_at = ? AND id < ?)",
						at, at, cursor.ID,
					)
				}
			}
		}
		return tx.Limit(pageSize + 1)
	}
}

// WithSortBy orders the query by an allowed column, newest first by default.
func WithSortBy(sort QuerySortBy) Option {
	return func(tx *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || (sort.Allow != nil && !sort.Allow[field]) {
			field = "created_at"
		}
		direction := "DESC"
		if sort.Field != "" && !sort.Desc {
			direction = "ASC"
		}
		return tx.Order(field + " " + direction).Order("id DESC")
	}
}
