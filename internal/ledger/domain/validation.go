package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ValidateEntry checks an entry header and its posting lines. Debits and
// credits must balance exactly and every amount must be positive.
func ValidateEntry(sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []EntryLine) error {
	if strings.TrimSpace(sourceType) == "" {
		return ErrInvalidSourceType
	}
	if sourceID == 0 {
		return ErrInvalidSourceID
	}
	if strings.TrimSpace(currency) == "" {
		return ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return ErrInvalidOccurredAt
	}
	if len(lines) == 0 {
		return ErrInvalidEntryLines
	}

	var debits, credits int64
	for _, line := range lines {
		if line.AccountID == 0 {
			return ErrInvalidAccount
		}
		if line.Amount <= 0 {
			return ErrInvalidLineAmount
		}
		switch line.Direction {
		case DirectionDebit:
			debits += line.Amount
		case DirectionCredit:
			credits += line.Amount
		default:
			return ErrInvalidLineDirection
		}
	}
	if debits != credits {
		return ErrUnbalancedEntry
	}
	return nil
}
