package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/civicgrid/civicbill/internal/ledger/domain"
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
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) CreateEntry(ctx context.Context, sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []ledgerdomain.EntryLine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.CreateEntryTx(ctx, tx, sourceType, sourceID, currency, occurredAt, lines)
	})
}

func (s *Service) CreateEntryTx(ctx context.Context, tx *gorm.DB, sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []ledgerdomain.EntryLine) error {
	if err := ledgerdomain.ValidateEntry(sourceType, sourceID, currency, occurredAt, lines); err != nil {
		return err
	}

	entry := ledgerdomain.Entry{
		ID:         s.genID.Generate(),
		SourceType: sourceType,
		SourceID:   sourceID,
		Currency:   currency,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	for _, line := range lines {
		record := ledgerdomain.EntryLine{
			ID:            s.genID.Generate(),
			LedgerEntryID: entry.ID,
			AccountID:     line.AccountID,
			Direction:     line.Direction,
			Amount:        line.Amount,
			CreatedAt:     entry.CreatedAt,
		}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			return err
		}
	}

	s.log.Debug("ledger entry posted",
		zap.String("source_type", sourceType),
		zap.String("source_id", sourceID.String()),
		zap.Int("lines", len(lines)),
	)
	return nil
}

// EnsureAccount returns the account with the given code, creating it on first use.
func EnsureAccount(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, code, name string) (snowflake.ID, error) {
	var account ledgerdomain.Account
	err := tx.WithContext(ctx).Where("code = ?", code).First(&account).Error
	if err == nil {
		return account.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	account = ledgerdomain.Account{
		ID:        genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, code, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		account.ID, account.Code, account.Name, account.CreatedAt,
	).Error; err != nil {
		return 0, err
	}

	// Re-read in case a concurrent writer won the insert.
	if err := tx.WithContext(ctx).Where("code = ?", code).First(&account).Error; err != nil {
		return 0, err
	}
	return account.ID, nil
}
