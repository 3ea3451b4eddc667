package domain

import "strconv"

// Service is one catalog entry. The catalog backend uses object ids.
type Service struct {
	ID          ID     `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Price       Amount `json:"price"`
}

// DefaultPageSize is the page size used when a filter leaves Limit unset.
const DefaultPageSize = 9

// ServiceFilter selects a catalog page.
type ServiceFilter struct {
	Category string
	Industry string
	Page     int
	Limit    int
}

// Normalized fills in defaults so equal filters produce equal cache keys.
func (f ServiceFilter) Normalized() ServiceFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	return f
}

// Segments returns the filter as ordered key segments.
func (f ServiceFilter) Segments() []string {
	f = f.Normalized()
	return []string{
		"category=" + f.Category,
		"industry=" + f.Industry,
		"page=" + strconv.Itoa(f.Page),
		"limit=" + strconv.Itoa(f.Limit),
	}
}

// ServicePage is one page of the catalog.
type ServicePage struct {
	Items      []Service `json:"data"`
	Page       int       `json:"page,omitempty"`
	TotalPages int       `json:"totalPages"`
}
