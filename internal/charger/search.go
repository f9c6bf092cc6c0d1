package charger

import (
	"cmp"
	"slices"

	"topcharger/pkg/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows a search. Nil fields match everything.
type Filter struct {
	Owner      *domain.IdentityHash
	Supply     *Supply
	Status     *Status
	MinPowerKW uint16
}

func (f Filter) matches(c *Charger) bool {
	if f.Owner != nil && c.Key.Owner != *f.Owner {
		return false
	}
	if f.Supply != nil && c.Supply != *f.Supply {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	return c.PowerKW >= f.MinPowerKW
}

// Page selects a 1-based page. Out-of-range values are clamped.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// SearchResult is one page of chargers, newest first.
type SearchResult struct {
	Items    []*Charger `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int        `json:"total"`
}

func paginate(all []*Charger, filter Filter, page Page) SearchResult {
	page = page.normalize()
	matched := make([]*Charger, 0, len(all))
	for _, c := range all {
		if filter.matches(c) {
			matched = append(matched, c)
		}
	}
	slices.SortStableFunc(matched, func(a, b *Charger) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Key.Owner.String(), b.Key.Owner.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.ID, b.Key.ID)
	})

	result := SearchResult{Page: page.Page, PageSize: page.PageSize, Total: len(matched), Items: []*Charger{}}
	pages := (len(matched) + page.PageSize - 1) / page.PageSize
	if page.Page > pages {
		return result
	}
	start := (page.Page - 1) * page.PageSize
	end := min(start+page.PageSize, len(matched))
	result.Items = matched[start:end]
	return result
}
