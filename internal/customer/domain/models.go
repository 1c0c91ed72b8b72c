// Package domain contains the billed customer registry entities.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
)

// Customer is a billed organization, typically a city department or agency.
type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"customer_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"-"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// APIKey authenticates requests on behalf of a customer. Only a hash of the
// key material is stored.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	CustomerID snowflake.ID `gorm:"not null;index"`
	KeyHash    string       `gorm:"type:text;not null;uniqueIndex"`
	Admin      bool         `gorm:"not null;default:false"`
	CreatedAt  time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// CreateRequest registers a new customer.
type CreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListRequest pages through registered customers.
type ListRequest struct {
	pagination.Pagination
}

// ListResponse is a page of customers, newest first.
type ListResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// Service manages the customer registry.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Customer, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, customerID string) (*Customer, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidCustomerID = errors.New("invalid_customer_id")
	ErrDuplicateEmail    = errors.New("duplicate_email")
	ErrCustomerNotFound  = errors.New("customer_not_found")
)
