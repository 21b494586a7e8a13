package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/aquasafe/aquasafe/pkg/models"
)

const sampleColumns = `id, location, latitude, longitude, sample_date, collected_by,
	cu_concentration, pb_concentration, cd_concentration, zn_concentration,
	hmpi_value, status, notes, additional_data, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (*models.WaterSample, error) {
	var (
		s     models.WaterSample
		extra string
	)
	err := row.Scan(
		&s.ID,
		&s.Location,
		&s.Latitude,
		&s.Longitude,
		&s.SampleDate,
		&s.CollectedBy,
		&s.Cu,
		&s.Pb,
		&s.Cd,
		&s.Zn,
		&s.IndexValue,
		&s.Status,
		&s.Notes,
		&extra,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if extra != "" {
		if err := json.Unmarshal([]byte(extra), &s.ExtendedParameters); err != nil {
			return nil, eris.Wrapf(err, "decode additional_data of sample %s", s.ID)
		}
	}
	if len(s.ExtendedParameters) == 0 {
		s.ExtendedParameters = nil
	}
	s.SampleDate = models.SampleDay(s.SampleDate)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()

	return &s, nil
}

func encodeExtended(params map[string]float64) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// whereClause renders filter as a WHERE clause, or "" when nothing is set
func whereClause(f models.SampleFilter, args *argList) string {
	var conds []string
	if f.Status != "" {
		conds = append(conds, "status = "+args.add(string(f.Status)))
	}
	if f.Location != "" {
		conds = append(conds, "LOWER(location) LIKE "+args.add(containsPattern(f.Location))+` ESCAPE '\'`)
	}
	if f.DateFrom != nil {
		conds = append(conds, "sample_date >= "+args.add(utcMicro(*f.DateFrom)))
	}
	if f.DateTo != nil {
		conds = append(conds, "sample_date <= "+args.add(utcMicro(*f.DateTo)))
	}
	if f.HMPIMin != nil {
		conds = append(conds, "hmpi_value >= "+args.add(*f.HMPIMin))
	}
	if f.HMPIMax != nil {
		conds = append(conds, "hmpi_value <= "+args.add(*f.HMPIMax))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func orderClause(s models.Sort) (string, error) {
	if !models.SortFields[s.Field] {
		return "", eris.Errorf("unsupported sort field %q", s.Field)
	}
	dir := "DESC"
	if s.Direction == models.SortAsc {
		dir = "ASC"
	}
	return " ORDER BY " + s.Field + " " + dir + ", id " + dir, nil
}

// InsertOne stores a new sample
func (s *SQLStore) InsertOne(ctx context.Context, sample *models.WaterSample) error {
	extra, err := encodeExtended(sample.ExtendedParameters)
	if err != nil {
		return eris.Wrapf(err, "%s: encode additional_data", s.dialect)
	}

	args := &argList{dialect: s.dialect}
	marks := []string{
		args.add(sample.ID),
		args.add(sample.Location),
		args.add(sample.Latitude),
		args.add(sample.Longitude),
		args.add(models.SampleDay(sample.SampleDate)),
		args.add(sample.CollectedBy),
		args.add(sample.Cu),
		args.add(sample.Pb),
		args.add(sample.Cd),
		args.add(sample.Zn),
		args.add(sample.IndexValue),
		args.add(string(sample.Status)),
		args.add(sample.Notes),
		args.add(extra),
		args.add(utcMicro(sample.CreatedAt)),
		args.add(utcMicro(sample.UpdatedAt)),
	}
	query := "INSERT INTO water_samples (" + sampleColumns + ") VALUES (" + strings.Join(marks, ", ") + ")"

	if _, err := s.db.ExecContext(ctx, query, args.values...); err != nil {
		return eris.Wrapf(err, "%s: insert sample %s", s.dialect, sample.ID)
	}
	return nil
}

// FindByID returns nil, nil when the sample does not exist
func (s *SQLStore) FindByID(ctx context.Context, id uuid.UUID) (*models.WaterSample, error) {
	args := &argList{dialect: s.dialect}
	query := "SELECT " + sampleColumns + " FROM water_samples WHERE id = " + args.add(id)

	sample, err := scanSample(s.db.QueryRowContext(ctx, query, args.values...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: get sample %s", s.dialect, id)
	}
	return sample, nil
}

// FindMany returns matching samples in sort order, paged by skip and limit
func (s *SQLStore) FindMany(ctx context.Context, filter models.SampleFilter, sort models.Sort, skip, limit int) ([]models.WaterSample, error) {
	order, err := orderClause(sort)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: find samples", s.dialect)
	}

	args := &argList{dialect: s.dialect}
	query := "SELECT " + sampleColumns + " FROM water_samples" +
		whereClause(filter, args) + order + s.dialect.limitOffset(args, skip, limit)

	rows, err := s.db.QueryContext(ctx, query, args.values...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: find samples", s.dialect)
	}
	defer rows.Close()

	var samples []models.WaterSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: scan sample", s.dialect)
		}
		samples = append(samples, *sample)
	}
	return samples, eris.Wrapf(rows.Err(), "%s: iterate samples", s.dialect)
}

// Count returns the number of samples matching filter
func (s *SQLStore) Count(ctx context.Context, filter models.SampleFilter) (int, error) {
	args := &argList{dialect: s.dialect}
	query := "SELECT COUNT(*) FROM water_samples" + whereClause(filter, args)

	var n int
	if err := s.db.QueryRowContext(ctx, query, args.values...).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "%s: count samples", s.dialect)
	}
	return n, nil
}

// UpdateByID overwrites every mutable column of the sample
func (s *SQLStore) UpdateByID(ctx context.Context, sample *models.WaterSample) (bool, error) {
	extra, err := encodeExtended(sample.ExtendedParameters)
	if err != nil {
		return false, eris.Wrapf(err, "%s: encode additional_data", s.dialect)
	}

	args := &argList{dialect: s.dialect}
	sets := []string{
		"location = " + args.add(sample.Location),
		"latitude = " + args.add(sample.Latitude),
		"longitude = " + args.add(sample.Longitude),
		"sample_date = " + args.add(models.SampleDay(sample.SampleDate)),
		"cu_concentration = " + args.add(sample.Cu),
		"pb_concentration = " + args.add(sample.Pb),
		"cd_concentration = " + args.add(sample.Cd),
		"zn_concentration = " + args.add(sample.Zn),
		"hmpi_value = " + args.add(sample.IndexValue),
		"status = " + args.add(string(sample.Status)),
		"notes = " + args.add(sample.Notes),
		"additional_data = " + args.add(extra),
		"updated_at = " + args.add(utcMicro(sample.UpdatedAt)),
	}
	query := "UPDATE water_samples SET " + strings.Join(sets, ", ") + " WHERE id = " + args.add(sample.ID)

	res, err := s.db.ExecContext(ctx, query, args.values...)
	if err != nil {
		return false, eris.Wrapf(err, "%s: update sample %s", s.dialect, sample.ID)
	}
	return affected(res)
}

// DeleteByID removes a sample; false when it was already gone
func (s *SQLStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := &argList{dialect: s.dialect}
	res, err := s.db.ExecContext(ctx, "DELETE FROM water_samples WHERE id = "+args.add(id), args.values...)
	if err != nil {
		return false, eris.Wrapf(err, "%s: delete sample %s", s.dialect, id)
	}
	return affected(res)
}

// Summarize aggregates statistics in a single query
func (s *SQLStore) Summarize(ctx context.Context, filter models.SampleFilter) (models.Statistics, error) {
	args := &argList{dialect: s.dialect}
	query := `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN status = 'safe' THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN status = 'marginal' THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN status = 'high' THEN 1 ELSE 0 END), 0),
               COALESCE(AVG(hmpi_value), 0),
               COALESCE(AVG(cu_concentration), 0),
               COALESCE(AVG(pb_concentration), 0),
               COALESCE(AVG(cd_concentration), 0),
               COALESCE(AVG(zn_concentration), 0)
        FROM water_samples` + whereClause(filter, args)

	var st models.Statistics
	err := s.db.QueryRowContext(ctx, query, args.values...).Scan(
		&st.Total,
		&st.Safe,
		&st.Marginal,
		&st.High,
		&st.AvgHMPI,
		&st.AvgCu,
		&st.AvgPb,
		&st.AvgCd,
		&st.AvgZn,
	)
	if err != nil {
		return models.Statistics{}, eris.Wrapf(err, "%s: summarize samples", s.dialect)
	}
	return st, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "rows affected")
	}
	return n > 0, nil
}
