package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/domain"
)

// Catalog is the public service catalog.
type Catalog struct {
	client *connection.Client
}

// NewCatalog binds the catalog endpoints to client.
func NewCatalog(client *connection.Client) *Catalog {
	return &Catalog{client: client}
}

// Services returns one filtered page.
func (c *Catalog) Services(ctx context.Context, filter domain.ServiceFilter) (*domain.ServicePage, error) {
	filter = filter.Normalized()

	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Industry != "" {
		q.Set("industry", filter.Industry)
	}
	q.Set("page", strconv.Itoa(filter.Page))
	q.Set("limit", strconv.Itoa(filter.Limit))

	resp, err := c.client.Do(ctx, &connection.Request{Method: http.MethodGet, Path: PathServices, Query: q})
	if err != nil {
		return nil, err
	}
	var out domain.ServicePage
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.Page == 0 {
		out.Page = filter.Page
	}
	return &out, nil
}

// Service returns one catalog entry.
func (c *Catalog) Service(ctx context.Context, id string) (*domain.Service, error) {
	resp, err := c.client.Get(ctx, itemPath(PathServices, id))
	if err != nil {
		return nil, err
	}
	var out domain.Service
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
