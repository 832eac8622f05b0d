package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yachaerang/pricebatch/pkg/batch"
	"github.com/yachaerang/pricebatch/pkg/kamis"
	"github.com/yachaerang/pricebatch/pkg/observability"
	"github.com/yachaerang/pricebatch/pkg/period"
	"github.com/yachaerang/pricebatch/pkg/storage"
)

// Fetcher pulls raw price items for one date and category.
type Fetcher interface {
	FetchDailyPrices(ctx context.Context, date time.Time, categoryCode string) ([]kamis.PriceItem, error)
}

// Store is the slice of the persistence layer ingestion needs.
type Store interface {
	LoadCatalog(ctx context.Context) (map[string]storage.Product, error)
	ExistingDailyCodes(ctx context.Context, date time.Time) (map[string]struct{}, error)
	LatestPricesBefore(ctx context.Context, date time.Time) (map[string]int64, error)
	InsertDailyPrices(ctx context.Context, rows []storage.DailyPrice) error
}

// DayResult reports what one day of ingestion did.
type DayResult struct {
	Date       time.Time `json:"date"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Duplicates int       `json:"duplicates"`
	Unresolved int       `json:"unresolved"`
	Unpriced   int       `json:"unpriced"`
	Skipped    int       `json:"skipped"`
}

// Service ingests daily prices for single days and backfill ranges.
type Service struct {
	log     logrus.FieldLogger
	cfg     *Config
	fetcher Fetcher
	store   Store
}

// NewService creates the ingestion service.
func NewService(log logrus.FieldLogger, cfg *Config, fetcher Fetcher, store Store) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingest configuration: %w", err)
	}

	return &Service{
		log:     log.WithField("service", "ingest"),
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
	}, nil
}

// IngestDay runs one day with the large single-day chunk size.
func (s *Service) IngestDay(ctx context.Context, date time.Time) (DayResult, error) {
	return s.run(ctx, date, s.cfg.SingleDayChunkSize)
}

// IngestDayInRange runs one day of a backfill range with the smaller
// chunk size used when many days run concurrently.
func (s *Service) IngestDayInRange(ctx context.Context, date time.Time) (DayResult, error) {
	return s.run(ctx, date, s.cfg.RangeChunkSize)
}

func (s *Service) run(ctx context.Context, date time.Time, chunkSize int) (DayResult, error) {
	date = period.Day(date)
	result := DayResult{Date: date}

	catalog, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return result, err
	}

	existing, err := s.store.ExistingDailyCodes(ctx, date)
	if err != nil {
		return result, err
	}

	// Most recent prior price per product, for the day-over-day change.
	prior, err := s.store.LatestPricesBefore(ctx, date)
	if err != nil {
		return result, err
	}

	items, err := s.fetchAll(ctx, date)
	if err != nil {
		return result, err
	}

	// Codes written during this run; catches duplicates across categories.
	seen := make(map[string]struct{}, len(items))

	transform := func(_ context.Context, item kamis.PriceItem) (storage.DailyPrice, bool, error) {
		price, priced := item.Price()
		if !priced {
			result.Unpriced++
			observability.RecordsTotal.WithLabelValues("unpriced").Inc()

			return storage.DailyPrice{}, false, nil
		}

		product, ok := catalog[storage.ProductResolveKey(item.ItemCode, item.KindCode, item.RankCode)]
		if !ok {
			result.Unresolved++
			observability.RecordsTotal.WithLabelValues("unresolved").Inc()
			s.log.WithFields(logrus.Fields{
				"item_code": item.ItemCode,
				"kind_code": item.KindCode,
				"rank_code": item.RankCode,
				"item_name": item.ItemName,
			}).Warn("No catalog entry for item, skipping")

			return storage.DailyPrice{}, false, nil
		}

		if _, dup := existing[product.ProductCode]; dup {
			result.Duplicates++
			observability.RecordsTotal.WithLabelValues("duplicate").Inc()

			return storage.DailyPrice{}, false, nil
		}

		if _, dup := seen[product.ProductCode]; dup {
			result.Duplicates++
			observability.RecordsTotal.WithLabelValues("duplicate").Inc()

			return storage.DailyPrice{}, false, nil
		}

		seen[product.ProductCode] = struct{}{}

		// First-ever observations have no base price and carry zero change.
		change, rate := storage.ChangeFrom(prior[product.ProductCode], price)

		return storage.DailyPrice{
			ProductCode:     product.ProductCode,
			PriceDate:       date,
			Price:           price,
			PriceChange:     change,
			PriceChangeRate: rate,
		}, true, nil
	}

	sink := batch.SinkFunc[storage.DailyPrice](func(ctx context.Context, rows []storage.DailyPrice) error {
		return s.store.InsertDailyPrices(ctx, rows)
	})

	processor := batch.NewProcessor(s.log, "daily", chunkSize, transform, sink, batch.FaultPolicy{
		SkipLimit:    s.cfg.SkipLimit,
		RetryLimit:   s.cfg.WriteRetries,
		Retryable:    storage.IsTransient,
		RetryBackoff: s.cfg.WriteBackoff,
	})

	summary, err := processor.Run(ctx, batch.Slice(items))

	result.Fetched = summary.Read
	result.Inserted = summary.Written
	result.Skipped = summary.Skipped

	observability.RecordsTotal.WithLabelValues("inserted").Add(float64(summary.Written))
	observability.RecordsTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))

	if err != nil {
		return result, fmt.Errorf("ingestion for %s failed: %w", date.Format(time.DateOnly), err)
	}

	s.log.WithFields(logrus.Fields{
		"date":       date.Format(time.DateOnly),
		"fetched":    result.Fetched,
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
		"unresolved": result.Unresolved,
		"unpriced":   result.Unpriced,
		"skipped":    result.Skipped,
	}).Info("Ingested daily prices")

	return result, nil
}

// fetchAll walks the category codes in their fixed order and collects
// every raw item for the date. A category that the upstream reports
// empty contributes nothing; a malformed response fails the day.
func (s *Service) fetchAll(ctx context.Context, date time.Time) ([]kamis.PriceItem, error) {
	var items []kamis.PriceItem

	for _, category := range kamis.Categories {
		fetched, err := s.fetchCategory(ctx, date, category)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}

		items = append(items, fetched...)
	}

	return items, nil
}

func (s *Service) fetchCategory(ctx context.Context, date time.Time, category string) ([]kamis.PriceItem, error) {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.FetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.FetchBackoff):
			}

			s.log.WithFields(logrus.Fields{
				"category": category,
				"attempt":  attempt + 1,
			}).Warn("Retrying upstream fetch")
		}

		started := time.Now()
		items, err := s.fetcher.FetchDailyPrices(ctx, date, category)
		observability.FetchDuration.WithLabelValues(category).Observe(time.Since(started).Seconds())

		if err == nil {
			status := "success"
			if len(items) == 0 {
				status = "empty"
			}

			observability.FetchesTotal.WithLabelValues(category, status).Inc()

			return items, nil
		}

		observability.FetchesTotal.WithLabelValues(category, "error").Inc()

		if !kamis.IsTransient(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("upstream fetch exhausted %d retries: %w", s.cfg.FetchRetries, lastErr)
}
