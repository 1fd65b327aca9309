package service

import (
	"context"

	"go.uber.org/zap"

	"rectmon/internal/cache"
	"rectmon/internal/models"
	"rectmon/internal/repository"
)

// ReadingsService exposes the read-only query surface over the store. All
// operations are pure reads; ingestion is the bus consumer's job alone.
type ReadingsService struct {
	repo   *repository.ReadingRepository
	latest *cache.LatestStore
	logger *zap.Logger
}

// NewReadingsService returns service instance. latest may be nil when the
// cache is not configured.
func NewReadingsService(repo *repository.ReadingRepository, latest *cache.LatestStore, logger *zap.Logger) *ReadingsService {
	return &ReadingsService{
		repo:   repo,
		latest: latest,
		logger: logger,
	}
}

// Latest returns the most recent stored reading.
func (s *ReadingsService) Latest(ctx context.Context) (*models.ReadingRecord, error) {
	return s.repo.Latest(ctx)
}

// LatestN returns up to limit readings, most recent first.
func (s *ReadingsService) LatestN(ctx context.Context, limit int) ([]models.ReadingRecord, error) {
	return s.repo.LatestN(ctx, limit)
}

// Stats returns aggregate statistics over the full history.
func (s *ReadingsService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.Aggregate(ctx)
}

// Dashboard returns the latest reading projected into the frontend shape.
func (s *ReadingsService) Dashboard(ctx context.Context) (*models.DashboardView, error) {
	rec, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	view := rec.Dashboard()
	return &view, nil
}

// Chart returns up to limit readings as ascending-time chart series.
func (s *ReadingsService) Chart(ctx context.Context, limit int) (*models.ChartSeries, error) {
	readings, err := s.repo.ChartRange(ctx, limit)
	if err != nil {
		return nil, err
	}

	n := len(readings)
	series := &models.ChartSeries{
		Timestamps:  make([]int64, n),
		VdcOutput:   make([]float64, n),
		LoadCurrent: make([]float64, n),
		Temperature: make([]float64, n),
		Humidity:    make([]float64, n),
	}
	// Store order is most-recent-first; charts want ascending time.
	for i, rec := range readings {
		j := n - 1 - i
		series.Timestamps[j] = rec.Timestamp
		series.VdcOutput[j] = rec.VdcOutput
		series.LoadCurrent[j] = rec.LoadCurrent
		series.Temperature[j] = rec.Temperature
		series.Humidity[j] = rec.Humidity
	}
	return series, nil
}

// LatestSummary returns the live-ticker projection of the newest reading,
// served from the cache when possible.
func (s *ReadingsService) LatestSummary(ctx context.Context) (*models.ReadingSummary, error) {
	if s.latest != nil {
		if summary, err := s.latest.Get(ctx); err == nil {
			return summary, nil
		}
	}

	rec, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	summary := rec.Summary()
	return &summary, nil
}
