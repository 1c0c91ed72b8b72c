// Package domain contains the double-entry ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryDirection represents debit or credit postings.
type EntryDirection string

const (
	DirectionDebit  EntryDirection = "debit"
	DirectionCredit EntryDirection = "credit"
)

const (
	SourceTypeInvoice    = "invoice"
	SourceTypeAdjustment = "adjustment"
)

const (
	AccountCodeAccountsReceivable = "accounts_receivable"
	AccountCodeRevenue            = "revenue"
)

// Account defines a chart-of-accounts entry.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Code      string       `gorm:"type:text;not null;uniqueIndex"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "ledger_accounts" }

// Entry captures the immutable header for a financial event.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	SourceType string       `gorm:"type:text;not null;index"`
	SourceID   snowflake.ID `gorm:"not null;index"`
	Currency   string       `gorm:"type:text;not null"`
	OccurredAt time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }

// EntryLine is a double-entry posting line.
type EntryLine struct {
	ID            snowflake.ID   `gorm:"primaryKey"`
	LedgerEntryID snowflake.ID   `gorm:"not null;index"`
	AccountID     snowflake.ID   `gorm:"not null;index"`
	Direction     EntryDirection `gorm:"type:text;not null"`
	Amount        int64          `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EntryLine) TableName() string { return "ledger_entry_lines" }
