package ingest

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aquasafe/aquasafe/pkg/models"
	"github.com/aquasafe/aquasafe/pkg/repository"
)

// DefaultLimit caps how many rows a single import creates
const DefaultLimit = 100

// SampleCreator is the part of the repository an import needs
type SampleCreator interface {
	Create(ctx context.Context, in models.SampleInput, collectorID uuid.UUID) (*models.WaterSample, error)
}

// Result summarizes an import run
type Result struct {
	Imported int                   `json:"imported"`
	ByStatus map[models.Status]int `json:"by_status"`
	Skipped  []RowError            `json:"skipped,omitempty"`
}

// Importer feeds parsed survey rows into a repository
type Importer struct {
	repo   SampleCreator
	logger *zap.Logger
}

// NewImporter creates an importer writing through repo
func NewImporter(repo SampleCreator, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.L()
	}
	return &Importer{repo: repo, logger: logger}
}

// Import parses r and creates up to limit samples attributed to collector.
// A limit <= 0 imports every row. Rows the repository rejects as invalid
// are skipped; any other error stops the import and is returned together
// with the partial result.
func (im *Importer) Import(ctx context.Context, r io.Reader, collector uuid.UUID, limit int) (*Result, error) {
	records, skipped, err := Parse(r)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ByStatus: make(map[models.Status]int),
		Skipped:  skipped,
	}

	for _, rec := range records {
		if limit > 0 && res.Imported >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "ingest: canceled")
		}

		sample, err := im.repo.Create(ctx, rec.Input(), collector)
		if repository.IsValidation(err) {
			res.Skipped = append(res.Skipped, RowError{Line: rec.Line, Reason: err.Error()})
			im.logger.Debug("skipping invalid row", zap.Int("line", rec.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return res, eris.Wrapf(err, "ingest: line %d", rec.Line)
		}

		res.Imported++
		res.ByStatus[sample.Status]++
	}

	im.logger.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("rows", len(records)),
	)

	return res, nil
}
