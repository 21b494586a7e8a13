package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/aquasafe/aquasafe/pkg/database"
	"github.com/aquasafe/aquasafe/pkg/models"
	"github.com/aquasafe/aquasafe/pkg/repository"
	"github.com/aquasafe/aquasafe/pkg/validation"
)

// PaginationInfo describes the returned page
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// SampleListResponse is the data of GET /api/v1/samples
type SampleListResponse struct {
	Samples    []models.WaterSample `json:"samples"`
	Pagination PaginationInfo       `json:"pagination"`
}

// listSamplesHandler returns one page of samples
// Query params:
//   - page, limit: 1-based page and requested size (the role cap may shrink it)
//   - sortBy, sortOrder: any sortable field, asc or desc (default created_at desc)
//   - status: safe, marginal or high
//   - location: case-insensitive substring
//   - dateFrom, dateTo: inclusive sample date bounds (YYYY-MM-DD)
//   - hmpiMin, hmpiMax: inclusive index bounds
func (rm *RouteManager) listSamplesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := parseSampleFilter(q)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}
	pagination, err := parsePagination(q)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	user := GetUserFromContext(r.Context())
	page, err := rm.repo.FindAll(r.Context(), filter, pagination, user.Role)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}
	if err := rm.attachCollectors(r.Context(), page.Samples); err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, "Samples retrieved", SampleListResponse{
		Samples: page.Samples,
		Pagination: PaginationInfo{
			Page:       page.Page,
			Limit:      page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

func (rm *RouteManager) sampleStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSampleFilter(r.URL.Query())
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	user := GetUserFromContext(r.Context())
	stats, err := rm.repo.Statistics(r.Context(), filter, user.Role)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, "Statistics retrieved", stats)
}

func (rm *RouteManager) getSampleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}

	sample, err := rm.repo.FindByID(r.Context(), id)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}
	if sample == nil {
		rm.respondRepoError(w, r, &repository.NotFoundError{ID: id})
		return
	}
	found := []models.WaterSample{*sample}
	if err := rm.attachCollectors(r.Context(), found); err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, "", found[0])
}

func (rm *RouteManager) createSampleHandler(w http.ResponseWriter, r *http.Request) {
	var in models.SampleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Struct(in); err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	user := GetUserFromContext(r.Context())
	sample, err := rm.repo.Create(r.Context(), in, user.ID)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}
	rm.metrics.ObserveScored(sample.Status)

	respondOK(w, http.StatusCreated, "Sample created", sample)
}

func (rm *RouteManager) updateSampleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}

	var upd models.SampleUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Struct(upd); err != nil {
		rm.respondRepoError(w, r, err)
		return
	}

	sample, err := rm.repo.Update(r.Context(), id, upd)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}
	if upd.TouchesConcentrations() {
		rm.metrics.ObserveScored(sample.Status)
	}

	respondOK(w, http.StatusOK, "Sample updated", sample)
}

func (rm *RouteManager) deleteSampleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}

	deleted, err := rm.repo.Delete(r.Context(), id)
	if err != nil {
		rm.respondRepoError(w, r, err)
		return
	}
	if !deleted {
		rm.respondRepoError(w, r, &repository.NotFoundError{ID: id})
		return
	}

	respondOK(w, http.StatusOK, "Sample deleted", nil)
}

// attachCollectors resolves each sample's collector name. Collectors that no
// longer exist are left unset.
func (rm *RouteManager) attachCollectors(ctx context.Context, samples []models.WaterSample) error {
	seen := make(map[uuid.UUID]*models.Collector)
	for i := range samples {
		id := samples[i].CollectedBy
		c, ok := seen[id]
		if !ok {
			user, err := rm.store.GetUserByID(ctx, id)
			switch {
			case errors.Is(err, database.ErrUserNotFound):
			case err != nil:
				return err
			default:
				c = &models.Collector{ID: user.ID, Username: user.Username, Name: user.Name}
			}
			seen[id] = c
		}
		if c != nil {
			cp := *c
			samples[i].Collector = &cp
		}
	}
	return nil
}

func sampleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sample ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseSampleFilter reads the optional filter criteria. Malformed values
// are rejected rather than ignored.
func parseSampleFilter(q url.Values) (models.SampleFilter, error) {
	var f models.SampleFilter

	f.Status = models.Status(strings.TrimSpace(q.Get("status")))
	f.Location = strings.TrimSpace(q.Get("location"))

	for _, d := range []struct {
		key string
		dst **time.Time
	}{
		{"dateFrom", &f.DateFrom},
		{"dateTo", &f.DateTo},
	} {
		v := q.Get(d.key)
		if v == "" {
			continue
		}
		t, err := models.ParseDate(v)
		if err != nil {
			return f, &repository.ValidationError{Field: d.key, Message: "must be a date (YYYY-MM-DD)"}
		}
		*d.dst = &t
	}

	for _, n := range []struct {
		key string
		dst **float64
	}{
		{"hmpiMin", &f.HMPIMin},
		{"hmpiMax", &f.HMPIMax},
	} {
		v := q.Get(n.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return f, &repository.ValidationError{Field: n.key, Message: "must be a number"}
		}
		*n.dst = &x
	}

	return f, nil
}

// parsePagination reads page, limit and ordering. Missing values are left
// zero so the repository applies its defaults.
func parsePagination(q url.Values) (models.Pagination, error) {
	var p models.Pagination

	for _, n := range []struct {
		key string
		dst *int
	}{
		{"page", &p.Page},
		{"limit", &p.PageSize},
	} {
		v := q.Get(n.key)
		if v == "" {
			continue
		}
		x, err := strconv.Atoi(v)
		if err != nil {
			return p, &repository.ValidationError{Field: n.key, Message: "must be an integer"}
		}
		*n.dst = x
	}

	p.SortField = q.Get("sortBy")
	p.SortDirection = models.SortDirection(strings.ToLower(q.Get("sortOrder")))
	return p, nil
}
