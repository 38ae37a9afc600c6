package core

import (
	"sort"
	"strings"
	"time"
)

// FilterCriteria is the single filter specification shared by the paginated
// listing and the aggregation over the same set. OwnerID is always set by the
// service from the authenticated caller, never from request input.
type FilterCriteria struct {
	OwnerID     string
	Type        EntryType // empty = both types
	From        time.Time // zero = unbounded; inclusive
	To          time.Time // zero = unbounded; inclusive
	Search      string    // case-insensitive substring of Description
	CategoryIDs []string
	AccountIDs  []string
}

// WithOwner returns a copy of the criteria bound to the given owner.
func (c FilterCriteria) WithOwner(ownerID string) FilterCriteria {
	c.OwnerID = ownerID
	return c
}

// Matches reports whether the entry satisfies every restriction in the
// criteria. A single-element ID set and a multi-element set use the same
// membership semantics.
func (c FilterCriteria) Matches(e Entry) bool {
	if e.OwnerID != c.OwnerID {
		return false
	}
	if c.Type != "" && e.Type != c.Type {
		return false
	}
	if !c.From.IsZero() && e.Date.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && e.Date.After(c.To) {
		return false
	}
	if c.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(c.Search)) {
		return false
	}
	if len(c.CategoryIDs) > 0 && !contains(c.CategoryIDs, e.CategoryID) {
		return false
	}
	if len(c.AccountIDs) > 0 && !contains(c.AccountIDs, e.AccountID) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// SortEntriesForListing orders entries by date descending, then createdAt
// descending, then id descending. The id tiebreak keeps pagination stable when
// two entries share both timestamps.
func SortEntriesForListing(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// PageInfo describes one page of a filtered listing.
type PageInfo struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// Paginate slices a fully sorted entry set into the requested page and
// reports the pagination envelope. Page and limit are normalized to sane
// values first.
func Paginate(entries []Entry, page, limit int) ([]Entry, PageInfo) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := len(entries)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return entries[start:end], PageInfo{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
