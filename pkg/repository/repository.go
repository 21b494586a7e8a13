// Package repository manages water samples: it keeps the derived HMPI
// fields consistent with the stored concentrations and serves filtered,
// paginated, role-scoped listings on top of an abstract store.
//
// Updates are read-modify-write without locking. Two concurrent updates of
// the same sample race and the last write wins.
package repository

import (
	"context"
	"maps"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aquasafe/aquasafe/pkg/hmpi"
	"github.com/aquasafe/aquasafe/pkg/models"
)

// statsBatchSize is the page size used when statistics are computed by
// scanning a store that cannot aggregate on its own.
const statsBatchSize = 500

// SampleRepository is the single entry point for sample reads and writes
type SampleRepository struct {
	store  SampleStore
	policy AccessPolicy
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a SampleRepository
type Option func(*SampleRepository)

// WithLogger sets the logger used for write events
func WithLogger(logger *zap.Logger) Option {
	return func(r *SampleRepository) {
		r.logger = logger
	}
}

// WithClock overrides the time source used for createdAt/updatedAt
func WithClock(now func() time.Time) Option {
	return func(r *SampleRepository) {
		r.now = now
	}
}

// New creates a repository over store, applying policy to listings
func New(store SampleStore, policy AccessPolicy, opts ...Option) *SampleRepository {
	r := &SampleRepository{
		store:  store,
		policy: policy,
		logger: zap.L(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create scores and persists a new sample collected by collectorID
func (r *SampleRepository) Create(ctx context.Context, in models.SampleInput, collectorID uuid.UUID) (*models.WaterSample, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	metals := models.MetalConcentrations{Cu: *in.Cu, Pb: *in.Pb, Cd: *in.Cd, Zn: *in.Zn}
	index, status := hmpi.Score(metals)
	if err := validateIndex(index); err != nil {
		return nil, err
	}
	now := r.timestamp()

	sample := models.WaterSample{
		ID:                  uuid.New(),
		Location:            strings.TrimSpace(in.Location),
		Latitude:            *in.Latitude,
		Longitude:           *in.Longitude,
		SampleDate:          models.SampleDay(*in.SampleDate),
		CollectedBy:         collectorID,
		MetalConcentrations: metals,
		IndexValue:          index,
		Status:              status,
		Notes:               strings.TrimSpace(in.Notes),
		ExtendedParameters:  maps.Clone(in.ExtendedParameters),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := r.store.InsertOne(ctx, &sample); err != nil {
		return nil, storageErr("insert", err)
	}

	r.logger.Debug("sample created",
		zap.String("id", sample.ID.String()),
		zap.Float64("hmpi", sample.IndexValue),
		zap.String("status", string(sample.Status)),
	)

	return &sample, nil
}

// Update merges a partial payload into an existing sample. The index and
// status are recomputed only when a concentration is part of the payload,
// using the merged concentrations.
func (r *SampleRepository) Update(ctx context.Context, id uuid.UUID, upd models.SampleUpdate) (*models.WaterSample, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	existing, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("find", err)
	}
	if existing == nil {
		return nil, &NotFoundError{ID: id}
	}

	merged := existing.Clone()
	if upd.Location != nil {
		merged.Location = strings.TrimSpace(*upd.Location)
	}
	if upd.Latitude != nil {
		merged.Latitude = *upd.Latitude
	}
	if upd.Longitude != nil {
		merged.Longitude = *upd.Longitude
	}
	if upd.SampleDate != nil {
		merged.SampleDate = models.SampleDay(*upd.SampleDate)
	}
	if upd.Notes != nil {
		merged.Notes = strings.TrimSpace(*upd.Notes)
	}
	if upd.ExtendedParameters != nil {
		merged.ExtendedParameters = maps.Clone(upd.ExtendedParameters)
	}
	if upd.TouchesConcentrations() {
		merged.MetalConcentrations = upd.MergeConcentrations(existing.MetalConcentrations)
		merged.IndexValue, merged.Status = hmpi.Score(merged.MetalConcentrations)
		if err := validateIndex(merged.IndexValue); err != nil {
			return nil, err
		}
	}
	merged.UpdatedAt = r.timestamp()

	found, err := r.store.UpdateByID(ctx, &merged)
	if err != nil {
		return nil, storageErr("update", err)
	}
	if !found {
		return nil, &NotFoundError{ID: id}
	}

	r.logger.Debug("sample updated",
		zap.String("id", id.String()),
		zap.Bool("rescored", upd.TouchesConcentrations()),
		zap.String("status", string(merged.Status)),
	)

	return &merged, nil
}

// Delete hard-deletes a sample. Deleting an unknown id returns false.
func (r *SampleRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := r.store.DeleteByID(ctx, id)
	if err != nil {
		return false, storageErr("delete", err)
	}
	if deleted {
		r.logger.Debug("sample deleted", zap.String("id", id.String()))
	}
	return deleted, nil
}

// FindByID returns the sample or nil when it does not exist
func (r *SampleRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.WaterSample, error) {
	sample, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("find", err)
	}
	return sample, nil
}

// FindAll returns one page of samples matching filter. The role cap only
// shrinks the page; Total always counts every matching sample.
func (r *SampleRepository) FindAll(ctx context.Context, filter models.SampleFilter, p models.Pagination, role models.Role) (*models.SamplePage, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	p = p.WithDefaults()
	if err := validatePagination(p); err != nil {
		return nil, err
	}

	size := r.policy.EffectivePageSize(role, p.PageSize)
	if p.Page-1 > math.MaxInt/size {
		return nil, invalid("page", "must be at most %d", math.MaxInt/size+1)
	}
	skip := (p.Page - 1) * size
	sort := models.Sort{Field: p.SortField, Direction: p.SortDirection}

	var (
		samples []models.WaterSample
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		samples, err = r.store.FindMany(gctx, filter, sort, skip, size)
		return storageErr("find many", err)
	})
	g.Go(func() error {
		var err error
		total, err = r.store.Count(gctx, filter)
		return storageErr("count", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if samples == nil {
		samples = []models.WaterSample{}
	}

	return &models.SamplePage{
		Samples:    samples,
		Total:      total,
		Page:       p.Page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}, nil
}

// Statistics summarizes every sample matching filter. The page cap does not
// apply to aggregates, so every role sees the same figures.
func (r *SampleRepository) Statistics(ctx context.Context, filter models.SampleFilter, role models.Role) (*models.Statistics, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	r.logger.Debug("computing statistics", zap.String("role", string(role)))

	if s, ok := r.store.(Summarizer); ok {
		stats, err := s.Summarize(ctx, filter)
		if err != nil {
			return nil, storageErr("summarize", err)
		}
		return &stats, nil
	}

	var acc models.StatisticsAccumulator
	sort := models.Sort{Field: "created_at", Direction: models.SortAsc}
	for skip := 0; ; skip += statsBatchSize {
		batch, err := r.store.FindMany(ctx, filter, sort, skip, statsBatchSize)
		if err != nil {
			return nil, storageErr("find many", err)
		}
		for _, s := range batch {
			acc.Add(s)
		}
		if len(batch) < statsBatchSize {
			break
		}
	}

	stats := acc.Result()
	return &stats, nil
}

// timestamp is truncated to microseconds so every backing round-trips it
func (r *SampleRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

func validateInput(in models.SampleInput) error {
	if strings.TrimSpace(in.Location) == "" {
		return invalid("location", "is required")
	}
	if in.Latitude == nil {
		return invalid("latitude", "is required")
	}
	if in.Longitude == nil {
		return invalid("longitude", "is required")
	}
	if in.SampleDate == nil || in.SampleDate.IsZero() {
		return invalid("sample_date", "is required")
	}
	metals := []struct {
		field string
		value *float64
	}{
		{"cu_concentration", in.Cu},
		{"pb_concentration", in.Pb},
		{"cd_concentration", in.Cd},
		{"zn_concentration", in.Zn},
	}
	for _, m := range metals {
		if m.value == nil {
			return invalid(m.field, "is required")
		}
	}
	return validateRanges(in.Latitude, in.Longitude, in.Cu, in.Pb, in.Cd, in.Zn)
}

func validateUpdate(upd models.SampleUpdate) error {
	if upd.Location != nil && strings.TrimSpace(*upd.Location) == "" {
		return invalid("location", "must not be empty")
	}
	if upd.SampleDate != nil && upd.SampleDate.IsZero() {
		return invalid("sample_date", "must be a valid date")
	}
	return validateRanges(upd.Latitude, upd.Longitude, upd.Cu, upd.Pb, upd.Cd, upd.Zn)
}

func validateRanges(lat, lng, cu, pb, cd, zn *float64) error {
	if lat != nil && (math.IsNaN(*lat) || *lat < -90 || *lat > 90) {
		return invalid("latitude", "must be between -90 and 90")
	}
	if lng != nil && (math.IsNaN(*lng) || *lng < -180 || *lng > 180) {
		return invalid("longitude", "must be between -180 and 180")
	}
	metals := []struct {
		field string
		value *float64
	}{
		{"cu_concentration", cu},
		{"pb_concentration", pb},
		{"cd_concentration", cd},
		{"zn_concentration", zn},
	}
	for _, m := range metals {
		if m.value == nil {
			continue
		}
		v := *m.value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return invalid(m.field, "must be a non-negative number")
		}
	}
	return nil
}

// validateIndex rejects concentrations whose weighted sum overflows float64
func validateIndex(index float64) error {
	if math.IsInf(index, 0) || math.IsNaN(index) {
		return invalid("hmpi_value", "concentrations are too large to score")
	}
	return nil
}

func validateFilter(f models.SampleFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return invalid("status", "unknown status %q", f.Status)
	}
	if f.HMPIMin != nil && math.IsNaN(*f.HMPIMin) {
		return invalid("hmpiMin", "must be a number")
	}
	if f.HMPIMax != nil && math.IsNaN(*f.HMPIMax) {
		return invalid("hmpiMax", "must be a number")
	}
	if f.HMPIMin != nil && f.HMPIMax != nil && *f.HMPIMin > *f.HMPIMax {
		return invalid("hmpiMin", "must not exceed hmpiMax")
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return invalid("dateFrom", "must not be after dateTo")
	}
	return nil
}

func validatePagination(p models.Pagination) error {
	if p.Page < 1 {
		return invalid("page", "must be greater than 0")
	}
	if p.PageSize < 1 || p.PageSize > models.MaxPageSize {
		return invalid("limit", "must be between 1 and %d", models.MaxPageSize)
	}
	if !models.SortFields[p.SortField] {
		return invalid("sortBy", "unsupported sort field %q", p.SortField)
	}
	if p.SortDirection != models.SortAsc && p.SortDirection != models.SortDesc {
		return invalid("sortOrder", "must be asc or desc")
	}
	return nil
}
