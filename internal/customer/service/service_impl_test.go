package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCustomerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE customers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create customers: %v", err)
	}
	return db
}

func newCustomerService(t *testing.T, db *gorm.DB) customerdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node})
}

func TestCreateCustomerValidation(t *testing.T) {
	svc := newCustomerService(t, setupCustomerTestDB(t))
	ctx := context.Background()

	if _, err := svc.Create(ctx, customerdomain.CreateRequest{Name: "", Email: "ops@city.example"}); !errors.Is(err, customerdomain.ErrInvalidName) {
		t.Fatalf("expected invalid_name, got %v", err)
	}
	if _, err := svc.Create(ctx, customerdomain.CreateRequest{Name: "Transit Dept", Email: "not-an-email"}); !errors.Is(err, customerdomain.ErrInvalidEmail) {
		t.Fatalf("expected invalid_email, got %v", err)
	}

	created, err := svc.Create(ctx, customerdomain.CreateRequest{Name: "Transit Dept", Email: "Transit@City.Example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "transit@city.example" {
		t.Fatalf("email not normalized: %q", created.Email)
	}

	if _, err := svc.Create(ctx, customerdomain.CreateRequest{Name: "Other", Email: "transit@city.example"}); !errors.Is(err, customerdomain.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate_email, got %v", err)
	}
}

func TestGetCustomerByID(t *testing.T) {
	svc := newCustomerService(t, setupCustomerTestDB(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, customerdomain.CreateRequest{Name: "Fire Dept", Email: "fire@city.example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByID(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || got.Name != "Fire Dept" {
		t.Fatalf("wrong customer: %+v", got)
	}

	if _, err := svc.GetByID(ctx, "999999999"); !errors.Is(err, customerdomain.ErrCustomerNotFound) {
		t.Fatalf("expected customer_not_found, got %v", err)
	}
	if _, err := svc.GetByID(ctx, "abc"); !errors.Is(err, customerdomain.ErrInvalidCustomerID) {
		t.Fatalf("expected invalid_customer_id, got %v", err)
	}
}

func TestListCustomersPaginates(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(t, db)
	ctx := context.Background()

	node, _ := snowflake.NewNode(9)
	base := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		customer := customerdomain.Customer{
			ID:        node.Generate(),
			Name:      fmt.Sprintf("Dept %d", i),
			Email:     fmt.Sprintf("dept%d@city.example", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base,
		}
		if err := db.Create(&customer).Error; err != nil {
			t.Fatalf("seed customer: %v", err)
		}
	}

	var req customerdomain.ListRequest
	req.PageSize = 2
	first, err := svc.List(ctx, req)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Customers) != 2 || !first.HasMore {
		t.Fatalf("unexpected first page: %d rows, has_more=%v", len(first.Customers), first.HasMore)
	}
	if first.Customers[0].Name != "Dept 4" {
		t.Fatalf("expected newest first, got %s", first.Customers[0].Name)
	}

	req.PageToken = first.NextPageToken
	second, err := svc.List(ctx, req)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Customers) != 2 || second.Customers[0].Name != "Dept 2" {
		t.Fatalf("unexpected second page: %+v", second.Customers)
	}

	seen := map[snowflake.ID]bool{}
	for _, customer := range append(first.Customers, second.Customers...) {
		if seen[customer.ID] {
			t.Fatalf("customer %s appeared on two pages", customer.ID)
		}
		seen[customer.ID] = true
	}
}
