package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yachaerang/pricebatch/internal/testutil"
	"github.com/yachaerang/pricebatch/pkg/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_SeedAndLoadCatalog(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	products := []storage.Product{
		{ProductCode: "P-0001", Name: "배추", ItemCode: "211", KindCode: "00", RankCode: "04", Unit: "1kg"},
		{ProductCode: "P-0002", Name: "무", ItemCode: "231", KindCode: "00", RankCode: "04", Unit: "1kg"},
	}

	require.NoError(t, store.SeedProducts(ctx, products))

	// Seeding again must be a no-op, not a constraint violation.
	require.NoError(t, store.SeedProducts(ctx, products))

	catalog, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	cabbage, ok := catalog[storage.ProductResolveKey("211", "00", "04")]
	require.True(t, ok)
	assert.Equal(t, "P-0001", cabbage.ProductCode)
	assert.Equal(t, "배추", cabbage.Name)
}

func TestStore_InsertDailyPricesIgnoresDuplicates(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()
	date := day(2025, 10, 1)

	rows := []storage.DailyPrice{
		{ProductCode: "P-0001", PriceDate: date, Price: 3200},
		{ProductCode: "P-0002", PriceDate: date, Price: 1800},
	}

	require.NoError(t, store.InsertDailyPrices(ctx, rows))

	// Re-running the same day must not duplicate rows or overwrite prices.
	rerun := []storage.DailyPrice{
		{ProductCode: "P-0001", PriceDate: date, Price: 9999},
		{ProductCode: "P-0003", PriceDate: date, Price: 500},
	}
	require.NoError(t, store.InsertDailyPrices(ctx, rerun))

	count, err := store.CountDailyPrices(ctx, date, date)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	stats, err := store.AggregateWindow(ctx, date, date)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "P-0001", stats[0].ProductCode)
	assert.Equal(t, int64(3200), stats[0].MinPrice, "first write wins")
}

func TestStore_ExistingDailyCodes(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDailyPrices(ctx, []storage.DailyPrice{
		{ProductCode: "P-0001", PriceDate: day(2025, 10, 1), Price: 3200},
		{ProductCode: "P-0002", PriceDate: day(2025, 10, 2), Price: 1800},
	}))

	existing, err := store.ExistingDailyCodes(ctx, day(2025, 10, 1))
	require.NoError(t, err)

	assert.Contains(t, existing, "P-0001")
	assert.NotContains(t, existing, "P-0002", "other dates do not leak in")
}

func TestStore_AggregateWindow(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDailyPrices(ctx, []storage.DailyPrice{
		{ProductCode: "P-0001", PriceDate: day(2025, 6, 2), Price: 100},
		{ProductCode: "P-0001", PriceDate: day(2025, 6, 3), Price: 200},
		{ProductCode: "P-0001", PriceDate: day(2025, 6, 4), Price: 300},
		{ProductCode: "P-0002", PriceDate: day(2025, 6, 2), Price: 50},
		// Outside the window, must not contribute.
		{ProductCode: "P-0001", PriceDate: day(2025, 6, 9), Price: 9000},
	}))

	stats, err := store.AggregateWindow(ctx, day(2025, 6, 2), day(2025, 6, 8))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "P-0001", stats[0].ProductCode)
	assert.InDelta(t, 200.0, stats[0].AvgPrice, 0.0001)
	assert.Equal(t, int64(100), stats[0].MinPrice)
	assert.Equal(t, int64(300), stats[0].MaxPrice)
	assert.Equal(t, 3, stats[0].PriceCount)

	assert.Equal(t, "P-0002", stats[1].ProductCode)
	assert.Equal(t, 1, stats[1].PriceCount)
}

func TestStore_AggregateWindowEmpty(t *testing.T) {
	store := testutil.NewSQLiteStore(t)

	stats, err := store.AggregateWindow(context.Background(), day(2025, 1, 1), day(2025, 1, 7))
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestStore_BoundaryWindow(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDailyPrices(ctx, []storage.DailyPrice{
		{ProductCode: "P-0001", PriceDate: day(2025, 1, 2), Price: 100},
		{ProductCode: "P-0001", PriceDate: day(2025, 7, 15), Price: 170},
		{ProductCode: "P-0001", PriceDate: day(2025, 12, 30), Price: 120},
		// Single observation: start and end collapse to the same day.
		{ProductCode: "P-0002", PriceDate: day(2025, 3, 1), Price: 55},
		// Outside the window.
		{ProductCode: "P-0001", PriceDate: day(2024, 12, 31), Price: 1},
	}))

	boundaries, err := store.BoundaryWindow(ctx, day(2025, 1, 1), day(2025, 12, 31))
	require.NoError(t, err)
	require.Len(t, boundaries, 2)

	assert.Equal(t, int64(100), boundaries["P-0001"].StartPrice)
	assert.Equal(t, int64(120), boundaries["P-0001"].EndPrice)
	assert.Equal(t, int64(55), boundaries["P-0002"].StartPrice)
	assert.Equal(t, int64(55), boundaries["P-0002"].EndPrice)
}

func TestStore_LatestPricesBefore(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDailyPrices(ctx, []storage.DailyPrice{
		// P-0001: the newest prior observation wins, gaps included.
		{ProductCode: "P-0001", PriceDate: day(2025, 9, 20), Price: 100},
		{ProductCode: "P-0001", PriceDate: day(2025, 9, 30), Price: 3000},
		// P-0002: only a same-day row, which must not count as prior.
		{ProductCode: "P-0002", PriceDate: day(2025, 10, 1), Price: 55},
		// P-0003: only a later row.
		{ProductCode: "P-0003", PriceDate: day(2025, 10, 5), Price: 70},
	}))

	latest, err := store.LatestPricesBefore(ctx, day(2025, 10, 1))
	require.NoError(t, err)

	require.Len(t, latest, 1)
	assert.Equal(t, int64(3000), latest["P-0001"])
}

func TestStore_ChangeFrom(t *testing.T) {
	tests := []struct {
		name       string
		basePrice  int64
		price      int64
		wantChange int64
		wantRate   float64
	}{
		{name: "increase", basePrice: 100, price: 120, wantChange: 20, wantRate: 20},
		{name: "decrease", basePrice: 200, price: 150, wantChange: -50, wantRate: -25},
		{name: "repeating decimal rounds to four places", basePrice: 6, price: 7, wantChange: 1, wantRate: 16.6667},
		{name: "zero base yields zero", basePrice: 0, price: 80, wantChange: 0, wantRate: 0},
		{name: "negative base yields zero", basePrice: -5, price: 80, wantChange: 0, wantRate: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, rate := storage.ChangeFrom(tt.basePrice, tt.price)
			assert.Equal(t, tt.wantChange, change)
			assert.InDelta(t, tt.wantRate, rate, 0.00001)
		})
	}
}

func TestStore_UpsertWeeklyPricesIdempotent(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	first := []storage.WeeklyPrice{{
		ProductCode:     "P-0001",
		PriceYear:       2025,
		WeekNumber:      23,
		StartDate:       day(2025, 6, 2),
		EndDate:         day(2025, 6, 8),
		AvgPrice:        200,
		MinPrice:        100,
		MaxPrice:        300,
		PriceCount:      3,
		PriceChange:     200,
		PriceChangeRate: 200,
	}}
	require.NoError(t, store.UpsertWeeklyPrices(ctx, first))

	// A re-run with more source data replaces the computed values.
	second := []storage.WeeklyPrice{{
		ProductCode:     "P-0001",
		PriceYear:       2025,
		WeekNumber:      23,
		StartDate:       day(2025, 6, 2),
		EndDate:         day(2025, 6, 8),
		AvgPrice:        220,
		MinPrice:        100,
		MaxPrice:        400,
		PriceCount:      5,
		PriceChange:     300,
		PriceChangeRate: 300,
	}}
	require.NoError(t, store.UpsertWeeklyPrices(ctx, second))

	rows, err := store.WeeklyPricesFor(ctx, 2025, 23)
	require.NoError(t, err)
	require.Len(t, rows, 1, "rerun must not duplicate the period row")

	assert.InDelta(t, 220.0, rows[0].AvgPrice, 0.0001)
	assert.Equal(t, int64(400), rows[0].MaxPrice)
	assert.Equal(t, 5, rows[0].PriceCount)
	assert.Equal(t, int64(300), rows[0].PriceChange)
	assert.InDelta(t, 300.0, rows[0].PriceChangeRate, 0.0001)
}

func TestStore_UpsertMonthlyPricesIdempotent(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	row := storage.MonthlyPrice{
		ProductCode:     "P-0001",
		PriceYear:       2025,
		PriceMonth:      7,
		AvgPrice:        150,
		MinPrice:        100,
		MaxPrice:        200,
		PriceCount:      20,
		PriceChange:     60,
		PriceChangeRate: 50,
	}
	require.NoError(t, store.UpsertMonthlyPrices(ctx, []storage.MonthlyPrice{row}))

	row.AvgPrice = 160
	row.PriceCount = 22
	row.PriceChange = 80
	row.PriceChangeRate = 66.6667
	require.NoError(t, store.UpsertMonthlyPrices(ctx, []storage.MonthlyPrice{row}))

	rows, err := store.MonthlyPricesFor(ctx, 2025, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 160.0, rows[0].AvgPrice, 0.0001)
	assert.Equal(t, 22, rows[0].PriceCount)
	assert.Equal(t, int64(80), rows[0].PriceChange)
	assert.InDelta(t, 66.6667, rows[0].PriceChangeRate, 0.0001)
}

func TestStore_UpsertYearlyPricesIdempotent(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	row := storage.YearlyPrice{
		ProductCode:     "P-0001",
		PriceYear:       2024,
		AvgPrice:        110,
		MinPrice:        90,
		MaxPrice:        130,
		PriceCount:      240,
		StartPrice:      100,
		EndPrice:        120,
		PriceChange:     20,
		PriceChangeRate: 20,
	}
	require.NoError(t, store.UpsertYearlyPrices(ctx, []storage.YearlyPrice{row}))

	row.EndPrice = 125
	row.PriceChange = 25
	row.PriceChangeRate = 25
	require.NoError(t, store.UpsertYearlyPrices(ctx, []storage.YearlyPrice{row}))

	rows, err := store.YearlyPricesFor(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(125), rows[0].EndPrice)
	assert.Equal(t, int64(25), rows[0].PriceChange)
	assert.InDelta(t, 25.0, rows[0].PriceChangeRate, 0.0001)
}

func TestStore_ConfigValidate(t *testing.T) {
	cfg := &storage.Config{}
	assert.ErrorIs(t, cfg.Validate(), storage.ErrDSNRequired)

	cfg.DSN = "user:pass@tcp(localhost:3306)/prices?parseTime=true"
	assert.NoError(t, cfg.Validate())
}
