package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yachaerang/pricebatch/pkg/batch"
	"github.com/yachaerang/pricebatch/pkg/observability"
	"github.com/yachaerang/pricebatch/pkg/period"
	"github.com/yachaerang/pricebatch/pkg/storage"
)

// Store is the slice of the persistence layer rollups need.
type Store interface {
	AggregateWindow(ctx context.Context, start, end time.Time) ([]storage.WindowStats, error)
	BoundaryWindow(ctx context.Context, start, end time.Time) (map[string]storage.BoundaryPrices, error)
	UpsertWeeklyPrices(ctx context.Context, rows []storage.WeeklyPrice) error
	UpsertMonthlyPrices(ctx context.Context, rows []storage.MonthlyPrice) error
	UpsertYearlyPrices(ctx context.Context, rows []storage.YearlyPrice) error
}

// Result reports what one rollup run wrote.
type Result struct {
	Period   string `json:"period"`
	Products int    `json:"products"`
}

// Service computes and persists the period aggregates.
type Service struct {
	log   logrus.FieldLogger
	cfg   *Config
	store Store
}

// NewService creates the rollup service.
func NewService(log logrus.FieldLogger, cfg *Config, store Store) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rollup configuration: %w", err)
	}

	return &Service{
		log:   log.WithField("service", "rollup"),
		cfg:   cfg,
		store: store,
	}, nil
}

// RollupWeek recomputes the aggregate rows for one ISO week, including
// the change between the week's first and last priced day. Re-running
// replaces previously computed values.
func (s *Service) RollupWeek(ctx context.Context, year, week int) (Result, error) {
	key := period.Week{Year: year, Week: week}.Key()

	window, err := period.WeekWindow(year, week)
	if err != nil {
		return Result{Period: key}, err
	}

	stats, err := s.store.AggregateWindow(ctx, window.Start, window.End)
	if err != nil {
		return Result{Period: key}, err
	}

	boundaries, err := s.store.BoundaryWindow(ctx, window.Start, window.End)
	if err != nil {
		return Result{Period: key}, err
	}

	rows := make([]storage.WeeklyPrice, 0, len(stats))
	for _, stat := range stats {
		row := storage.WeeklyPrice{
			ProductCode: stat.ProductCode,
			PriceYear:   year,
			WeekNumber:  week,
			StartDate:   window.Start,
			EndDate:     window.End,
			AvgPrice:    stat.AvgPrice,
			MinPrice:    stat.MinPrice,
			MaxPrice:    stat.MaxPrice,
			PriceCount:  stat.PriceCount,
		}

		if boundary, ok := boundaries[stat.ProductCode]; ok {
			row.PriceChange, row.PriceChangeRate = storage.ChangeFrom(boundary.StartPrice, boundary.EndPrice)
		}

		rows = append(rows, row)
	}

	if err := upsertChunked(ctx, s, "weekly", key, rows, s.store.UpsertWeeklyPrices); err != nil {
		return Result{Period: key}, err
	}

	observability.RollupRowsTotal.WithLabelValues("weekly").Add(float64(len(rows)))
	s.log.WithFields(logrus.Fields{"period": key, "products": len(rows)}).Info("Computed weekly rollup")

	return Result{Period: key, Products: len(rows)}, nil
}

// RollupMonth recomputes the aggregate rows for one calendar month,
// including the change between the month's first and last priced day.
func (s *Service) RollupMonth(ctx context.Context, year, month int) (Result, error) {
	key := period.Month{Year: year, Month: month}.Key()

	window, err := period.MonthWindow(year, month)
	if err != nil {
		return Result{Period: key}, err
	}

	stats, err := s.store.AggregateWindow(ctx, window.Start, window.End)
	if err != nil {
		return Result{Period: key}, err
	}

	boundaries, err := s.store.BoundaryWindow(ctx, window.Start, window.End)
	if err != nil {
		return Result{Period: key}, err
	}

	rows := make([]storage.MonthlyPrice, 0, len(stats))
	for _, stat := range stats {
		row := storage.MonthlyPrice{
			ProductCode: stat.ProductCode,
			PriceYear:   year,
			PriceMonth:  month,
			AvgPrice:    stat.AvgPrice,
			MinPrice:    stat.MinPrice,
			MaxPrice:    stat.MaxPrice,
			PriceCount:  stat.PriceCount,
		}

		if boundary, ok := boundaries[stat.ProductCode]; ok {
			row.PriceChange, row.PriceChangeRate = storage.ChangeFrom(boundary.StartPrice, boundary.EndPrice)
		}

		rows = append(rows, row)
	}

	if err := upsertChunked(ctx, s, "monthly", key, rows, s.store.UpsertMonthlyPrices); err != nil {
		return Result{Period: key}, err
	}

	observability.RollupRowsTotal.WithLabelValues("monthly").Add(float64(len(rows)))
	s.log.WithFields(logrus.Fields{"period": key, "products": len(rows)}).Info("Computed monthly rollup")

	return Result{Period: key, Products: len(rows)}, nil
}

// RollupYear recomputes the aggregate rows for one calendar year,
// including the start/end price change analytics.
func (s *Service) RollupYear(ctx context.Context, year int) (Result, error) {
	key := fmt.Sprintf("%d", year)
	window := period.YearWindow(year)

	stats, err := s.store.AggregateWindow(ctx, window.Start, window.End)
	if err != nil {
		return Result{Period: key}, err
	}

	boundaries, err := s.store.BoundaryWindow(ctx, window.Start, window.End)
	if err != nil {
		return Result{Period: key}, err
	}

	rows := make([]storage.YearlyPrice, 0, len(stats))
	for _, stat := range stats {
		row := storage.YearlyPrice{
			ProductCode: stat.ProductCode,
			PriceYear:   year,
			AvgPrice:    stat.AvgPrice,
			MinPrice:    stat.MinPrice,
			MaxPrice:    stat.MaxPrice,
			PriceCount:  stat.PriceCount,
		}

		if boundary, ok := boundaries[stat.ProductCode]; ok {
			row.StartPrice = boundary.StartPrice
			row.EndPrice = boundary.EndPrice
			row.PriceChange, row.PriceChangeRate = storage.ChangeFrom(boundary.StartPrice, boundary.EndPrice)
		}

		rows = append(rows, row)
	}

	if err := upsertChunked(ctx, s, "yearly", key, rows, s.store.UpsertYearlyPrices); err != nil {
		return Result{Period: key}, err
	}

	observability.RollupRowsTotal.WithLabelValues("yearly").Add(float64(len(rows)))
	s.log.WithFields(logrus.Fields{"period": key, "products": len(rows)}).Info("Computed yearly rollup")

	return Result{Period: key, Products: len(rows)}, nil
}

// upsertChunked writes rollup rows through the chunked processor so
// transient database failures get the same retry treatment as ingestion
// writes. Rollup rows carry no skip budget: any lost row fails the run.
func upsertChunked[T any](ctx context.Context, s *Service, step, key string, rows []T, write func(context.Context, []T) error) error {
	if len(rows) == 0 {
		return nil
	}

	identity := func(_ context.Context, row T) (T, bool, error) {
		return row, true, nil
	}

	processor := batch.NewProcessor(s.log, step, s.cfg.ChunkSize, identity, batch.SinkFunc[T](write), batch.FaultPolicy{
		SkipLimit:    0,
		RetryLimit:   s.cfg.WriteRetries,
		Retryable:    storage.IsTransient,
		RetryBackoff: s.cfg.WriteBackoff,
	})

	if _, err := processor.Run(ctx, batch.Slice(rows)); err != nil {
		return fmt.Errorf("rollup upsert for %s failed: %w", key, err)
	}

	return nil
}
