package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	"github.com/civicgrid/civicbill/pkg/db/option"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
	"github.com/civicgrid/civicbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[customerdomain.Customer]
}

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req customerdomain.CreateRequest) (*customerdomain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, customerdomain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, customerdomain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, customerdomain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	customer := &customerdomain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if isUniqueViolation(err) {
			return nil, customerdomain.ErrDuplicateEmail
		}
		return nil, err
	}

	s.log.Info("customer registered",
		zap.String("customer_id", customer.ID.String()),
		zap.String("name", customer.Name),
	)
	return customer, nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListRequest) (customerdomain.ListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		if _, err := pagination.DecodeCursor(token); err != nil {
			return customerdomain.ListResponse{}, pagination.ErrInvalidCursor
		}
	}

	records, err := s.repo.Find(ctx, nil,
		option.WithSortBy(option.QuerySortBy{}),
		option.ApplyPagination(req.Pagination),
	)
	if err != nil {
		return customerdomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(records, int32(pageSize), func(record *customerdomain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(records) > pageSize {
		records = records[:pageSize]
	}

	resp := customerdomain.ListResponse{Customers: make([]customerdomain.Customer, 0, len(records))}
	for _, record := range records {
		resp.Customers = append(resp.Customers, *record)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, customerID string) (*customerdomain.Customer, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(customerID))
	if err != nil || id == 0 {
		return nil, customerdomain.ErrInvalidCustomerID
	}

	customer, err := s.repo.FindOne(ctx, &customerdomain.Customer{ID: id})
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrCustomerNotFound
	}
	return customer, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "duplicate key") || strings.Contains(message, "UNIQUE constraint")
}
