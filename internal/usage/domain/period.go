package domain

import (
	"fmt"
	"regexp"
	"time"
)

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Period identifies one calendar billing month. Periods are derived from the
// YYYY-MM form and never stored.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod validates and parses a YYYY-MM period string.
func ParsePeriod(value string) (Period, error) {
	match := periodPattern.FindStringSubmatch(value)
	if match == nil {
		return Period{}, ErrInvalidPeriod
	}
	var year, month int
	fmt.Sscanf(match[1], "%d", &year)
	fmt.Sscanf(match[2], "%d", &month)
	if month < 1 || month > 12 || year < 1970 {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the period containing the given instant in loc.
func PeriodOf(at time.Time, loc *time.Location) Period {
	local := at.In(loc)
	return Period{Year: local.Year(), Month: local.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Bounds returns the half-open [start, end) window covering the month in loc.
// The exclusive end is the first instant of the following month, which admits
// every instant up to and including the last instant of the period.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Start returns the first instant of the period in loc. Price lookups use
// this instant, so price changes never retroactively alter a closed period.
func (p Period) Start(loc *time.Location) time.Time {
	start, _ := p.Bounds(loc)
	return start
}

// Previous returns the preceding calendar month.
func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// ClosedAt reports whether the period lies strictly before the month
// containing now, i.e. whether it is eligible for final invoicing.
func (p Period) ClosedAt(now time.Time, loc *time.Location) bool {
	current := PeriodOf(now, loc)
	if p.Year != current.Year {
		return p.Year < current.Year
	}
	return p.Month < current.Month
}
