package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/aquasafe/aquasafe/pkg/models"
)

// PaginationInfo describes the page returned by ListSamples
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// SampleList is one page of samples
type SampleList struct {
	Samples    []models.WaterSample `json:"samples"`
	Pagination PaginationInfo       `json:"pagination"`
}

// ListOptions are the query parameters of GET /api/v1/samples.
// Zero values are omitted.
type ListOptions struct {
	Filter     models.SampleFilter
	Pagination models.Pagination
}

// Values encodes the options as a query string
func (o ListOptions) Values() url.Values {
	q := filterValues(o.Filter)
	p := o.Pagination
	if p.Page != 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize != 0 {
		q.Set("limit", strconv.Itoa(p.PageSize))
	}
	if p.SortField != "" {
		q.Set("sortBy", p.SortField)
	}
	if p.SortDirection != "" {
		q.Set("sortOrder", string(p.SortDirection))
	}
	return q
}

func filterValues(f models.SampleFilter) url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Location != "" {
		q.Set("location", f.Location)
	}
	if f.DateFrom != nil {
		q.Set("dateFrom", f.DateFrom.Format(models.DateLayout))
	}
	if f.DateTo != nil {
		q.Set("dateTo", f.DateTo.Format(models.DateLayout))
	}
	if f.HMPIMin != nil {
		q.Set("hmpiMin", strconv.FormatFloat(*f.HMPIMin, 'f', -1, 64))
	}
	if f.HMPIMax != nil {
		q.Set("hmpiMax", strconv.FormatFloat(*f.HMPIMax, 'f', -1, 64))
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// ListSamples retrieves one page of samples
func (c *Client) ListSamples(ctx context.Context, opts ListOptions) (*SampleList, error) {
	var list SampleList
	if err := c.doRequest(ctx, http.MethodGet, withQuery("/api/v1/samples", opts.Values()), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSample retrieves a single sample
func (c *Client) GetSample(ctx context.Context, id uuid.UUID) (*models.WaterSample, error) {
	var s models.WaterSample
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/samples/"+id.String(), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSample submits a new sample; the server computes its score
func (c *Client) CreateSample(ctx context.Context, in models.SampleInput) (*models.WaterSample, error) {
	var s models.WaterSample
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/samples", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSample applies a partial update
func (c *Client) UpdateSample(ctx context.Context, id uuid.UUID, upd models.SampleUpdate) (*models.WaterSample, error) {
	var s models.WaterSample
	if err := c.doRequest(ctx, http.MethodPut, "/api/v1/samples/"+id.String(), upd, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSample removes a sample
func (c *Client) DeleteSample(ctx context.Context, id uuid.UUID) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/v1/samples/"+id.String(), nil, nil)
}

// Statistics retrieves aggregates over every sample matching filter
func (c *Client) Statistics(ctx context.Context, filter models.SampleFilter) (*models.Statistics, error) {
	var st models.Statistics
	if err := c.doRequest(ctx, http.MethodGet, withQuery("/api/v1/samples/statistics", filterValues(filter)), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
