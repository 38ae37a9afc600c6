package ledger

import (
	"context"
	"errors"
	"fmt"

	"kassa/internal/core"
	"kassa/internal/storage"
)

const categoriesCacheKey = "all"

// Categories returns the shared category directory. The directory changes
// only at seed time, so reads come from a short-lived cache.
func (s *Service) Categories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := s.cats.Get(categoriesCacheKey); ok {
		return cats, nil
	}
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cats.Set(categoriesCacheKey, cats)
	return cats, nil
}

// CategoriesByType returns the directory entries of one entry type.
func (s *Service) CategoriesByType(ctx context.Context, t core.EntryType) ([]core.Category, error) {
	if !t.Valid() {
		return nil, core.ErrInvalidType
	}
	all, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Category
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

// Category returns one directory record.
func (s *Service) Category(ctx context.Context, id string) (*core.Category, error) {
	all, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	// The cache may trail a fresh seed; fall through to the store once.
	c, err := s.repo.Category(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.ErrCategoryMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", id, err)
	}
	return c, nil
}

// categoryLookup builds the directory resolver the aggregation uses to
// decorate breakdown rows.
func (s *Service) categoryLookup(ctx context.Context) (core.CategoryLookup, error) {
	all, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]core.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	return func(id string) (core.Category, bool) {
		c, ok := byID[id]
		return c, ok
	}, nil
}

// InvalidateCategoryCache drops the cached directory, used after seeding.
func (s *Service) InvalidateCategoryCache() {
	s.cats.Purge()
}
