package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/aquasafe/aquasafe/pkg/models"
)

// SampleStore is the persistence surface the repository needs.
// Implementations must honor ctx cancellation and must not retry.
type SampleStore interface {
	InsertOne(ctx context.Context, sample *models.WaterSample) error
	// FindByID returns nil, nil when no sample has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*models.WaterSample, error)
	// FindMany orders by sort (ties broken by id), then skips and limits.
	// A limit <= 0 returns every remaining match.
	FindMany(ctx context.Context, filter models.SampleFilter, sort models.Sort, skip, limit int) ([]models.WaterSample, error)
	Count(ctx context.Context, filter models.SampleFilter) (int, error)
	// UpdateByID replaces the stored sample; false when the id is gone.
	UpdateByID(ctx context.Context, sample *models.WaterSample) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// Summarizer is implemented by stores that can aggregate statistics natively
type Summarizer interface {
	Summarize(ctx context.Context, filter models.SampleFilter) (models.Statistics, error)
}
