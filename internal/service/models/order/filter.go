package order

import (
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
)

// Filter narrows order listings.
type Filter struct {
	CustomerID string
	Status     Status
	StartDate  *time.Time
	EndDate    *time.Time
}

// ParseFilter builds a filter from the raw status and date bounds both APIs
// accept. Empty values leave that bound open.
func ParseFilter(status, startDate, endDate string) (Filter, error) {
	var f Filter
	if status != "" {
		s, err := ParseStatus(status)
		if err != nil {
			return Filter{}, errs.Validation("invalid status %q", status)
		}
		f.Status = s
	}

	var err error
	if f.StartDate, err = parseDate("startDate", startDate, false); err != nil {
		return Filter{}, err
	}
	if f.EndDate, err = parseDate("endDate", endDate, true); err != nil {
		return Filter{}, err
	}

	return f, nil
}

// parseDate accepts an RFC 3339 timestamp or a calendar date. With endOfDay a
// bare date covers the whole day.
func parseDate(name, value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, errs.Validation("%s must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return &t, nil
}

// Matches reports whether o satisfies the filter.
func (f Filter) Matches(o Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.StartDate != nil && o.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && o.CreatedAt.After(*f.EndDate) {
		return false
	}

	return true
}
