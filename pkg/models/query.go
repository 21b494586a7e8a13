package models

import (
	"strings"
	"time"
)

const (
	DefaultPage      = 1
	DefaultPageSize  = 20
	MaxPageSize      = 1000
	DefaultSortField = "created_at"

	// DateLayout is the wire format of dateFrom/dateTo query values
	DateLayout = "2006-01-02"
)

// SortDirection is the ordering of a sort key
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortFields lists the sample fields callers may order by
var SortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"sample_date":      true,
	"hmpi_value":       true,
	"location":         true,
	"status":           true,
	"cu_concentration": true,
	"pb_concentration": true,
	"cd_concentration": true,
	"zn_concentration": true,
}

// SampleFilter holds optional criteria, combined with logical AND
type SampleFilter struct {
	Status   Status     `json:"status,omitempty"`
	Location string     `json:"location,omitempty"`
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`
	HMPIMin  *float64   `json:"hmpiMin,omitempty"`
	HMPIMax  *float64   `json:"hmpiMax,omitempty"`
}

// Matches reports whether a sample satisfies every set criterion.
// Stores that cannot push filters down to the engine use this directly.
func (f SampleFilter) Matches(s WaterSample) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Location != "" && !containsFold(s.Location, f.Location) {
		return false
	}
	if f.DateFrom != nil && s.SampleDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && s.SampleDate.After(*f.DateTo) {
		return false
	}
	if f.HMPIMin != nil && s.IndexValue < *f.HMPIMin {
		return false
	}
	if f.HMPIMax != nil && s.IndexValue > *f.HMPIMax {
		return false
	}
	return true
}

// Sort is a single-key ordering
type Sort struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Pagination holds paging and ordering requested by a caller.
// Zero values mean "use the default".
type Pagination struct {
	Page          int           `json:"page"`
	PageSize      int           `json:"limit"`
	SortField     string        `json:"sortBy"`
	SortDirection SortDirection `json:"sortOrder"`
}

// WithDefaults fills unset fields with their defaults
func (p Pagination) WithDefaults() Pagination {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.SortField == "" {
		p.SortField = DefaultSortField
	}
	if p.SortDirection == "" {
		p.SortDirection = SortDesc
	}
	return p
}

// SamplePage is one page of a filtered sample listing
type SamplePage struct {
	Samples    []WaterSample `json:"samples"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// Statistics summarizes a set of samples
type Statistics struct {
	Total    int     `json:"total"`
	Safe     int     `json:"safe"`
	Marginal int     `json:"marginal"`
	High     int     `json:"high"`
	AvgHMPI  float64 `json:"avg_hmpi"`
	AvgCu    float64 `json:"avg_cu"`
	AvgPb    float64 `json:"avg_pb"`
	AvgCd    float64 `json:"avg_cd"`
	AvgZn    float64 `json:"avg_zn"`
}

// StatisticsAccumulator builds Statistics incrementally
type StatisticsAccumulator struct {
	stats   Statistics
	sumHMPI float64
	sumCu   float64
	sumPb   float64
	sumCd   float64
	sumZn   float64
}

// Add folds one sample into the running totals
func (a *StatisticsAccumulator) Add(s WaterSample) {
	a.stats.Total++
	switch s.Status {
	case StatusSafe:
		a.stats.Safe++
	case StatusMarginal:
		a.stats.Marginal++
	case StatusHigh:
		a.stats.High++
	}
	a.sumHMPI += s.IndexValue
	a.sumCu += s.Cu
	a.sumPb += s.Pb
	a.sumCd += s.Cd
	a.sumZn += s.Zn
}

// Result returns the accumulated statistics, zeroed when nothing was added
func (a *StatisticsAccumulator) Result() Statistics {
	out := a.stats
	if out.Total == 0 {
		return Statistics{}
	}
	n := float64(out.Total)
	out.AvgHMPI = a.sumHMPI / n
	out.AvgCu = a.sumCu / n
	out.AvgPb = a.sumPb / n
	out.AvgCd = a.sumCd / n
	out.AvgZn = a.sumZn / n
	return out
}

// ParseDate accepts a DateLayout day or an RFC 3339 timestamp and returns
// the UTC day it falls on.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339, s); rfcErr != nil {
			return time.Time{}, err
		}
	}
	return SampleDay(t), nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
