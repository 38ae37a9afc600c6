package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"kassa/internal/core"
)

// amountString tolerates both quoted and bare JSON numbers, so clients can
// send "120.50" or 120.50 interchangeably.
type amountString string

func (a *amountString) UnmarshalJSON(b []byte) error {
	*a = amountString(strings.Trim(string(b), `"`))
	return nil
}

// parseDate accepts a plain calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseEndDate is parseDate for range upper bounds. A plain calendar date is
// extended to the end of that day, so entries with a time of day on the end
// date still fall inside the inclusive range.
func parseEndDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseFilter builds the filter criteria from the listing query parameters.
// The owner is attached later from the authenticated request.
func parseFilter(r *http.Request) (core.FilterCriteria, error) {
	q := r.URL.Query()
	var c core.FilterCriteria

	if v := q.Get("type"); v != "" {
		t := core.EntryType(v)
		if !t.Valid() {
			return c, core.ErrInvalidType
		}
		c.Type = t
	}
	if v := q.Get("startDate"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			return c, core.ErrInvalidDate
		}
		c.From = from
	}
	if v := q.Get("endDate"); v != "" {
		to, err := parseEndDate(v)
		if err != nil {
			return c, core.ErrInvalidDate
		}
		c.To = to
	}
	c.Search = q.Get("search")
	c.CategoryIDs = splitList(q.Get("category"))
	c.AccountIDs = splitList(q.Get("account"))
	return c, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePagination(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	return page, limit
}

// parseRange reads the summary date range. When neither bound is given the
// range defaults to the current calendar month.
func parseRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("startDate"); v != "" {
		if from, err = parseDate(v); err != nil {
			return from, to, core.ErrInvalidDate
		}
	}
	if v := q.Get("endDate"); v != "" {
		if to, err = parseEndDate(v); err != nil {
			return from, to, core.ErrInvalidDate
		}
	}
	if from.IsZero() && to.IsZero() {
		now := time.Now()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		to = from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	return from, to, nil
}
