package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store provides the persistence operations the pipeline needs.
type Store struct {
	log logrus.FieldLogger
	db  *gorm.DB
}

// NewStore opens a MySQL-backed store.
func NewStore(log logrus.FieldLogger, cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewStoreWithDB(log, db), nil
}

// NewStoreWithDB wraps an existing gorm handle. Used by tests to run the
// store against in-memory SQLite.
func NewStoreWithDB(log logrus.FieldLogger, db *gorm.DB) *Store {
	return &Store{
		log: log.WithField("service", "storage"),
		db:  db,
	}
}

// Migrate creates or updates the five price tables.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&Product{},
		&DailyPrice{},
		&WeeklyPrice{},
		&MonthlyPrice{},
		&YearlyPrice{},
	)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// LoadCatalog returns the whole product catalog keyed by the
// (itemCode, kindCode, rankCode) resolve key.
func (s *Store) LoadCatalog(ctx context.Context) (map[string]Product, error) {
	var products []Product
	if err := s.db.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load product catalog: %w", err)
	}

	catalog := make(map[string]Product, len(products))
	for _, p := range products {
		catalog[p.ResolveKey()] = p
	}

	return catalog, nil
}

// SeedProducts inserts catalog rows, ignoring ones that already exist.
func (s *Store) SeedProducts(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&products).Error
}

// ExistingDailyCodes returns the product codes that already have a price
// row for the given date.
func (s *Store) ExistingDailyCodes(ctx context.Context, date time.Time) (map[string]struct{}, error) {
	var codes []string

	err := s.db.WithContext(ctx).
		Model(&DailyPrice{}).
		Where("price_date = ?", dateOnly(date)).
		Pluck("product_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load existing daily keys: %w", err)
	}

	existing := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		existing[code] = struct{}{}
	}

	return existing, nil
}

// InsertDailyPrices writes one chunk of daily rows in a single
// transaction. The (product_code, price_date) unique constraint is the
// last line of defense against concurrent duplicate writes; conflicts
// are ignored so a lost race is not an error.
func (s *Store) InsertDailyPrices(ctx context.Context, rows []DailyPrice) error {
	if len(rows) == 0 {
		return nil
	}

	for i := range rows {
		rows[i].PriceDate = dateOnly(rows[i].PriceDate)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}, {Name: "price_date"}},
			DoNothing: true,
		}).Create(&rows).Error
	})
}

// LatestPricesBefore returns, per product, the price on the most recent
// priced day strictly before the given date. Products with no prior
// observation are absent from the map.
func (s *Store) LatestPricesBefore(ctx context.Context, date time.Time) (map[string]int64, error) {
	var rows []struct {
		ProductCode string
		Price       int64
	}

	query := `
		SELECT d.product_code, d.price
		FROM daily_prices d
		WHERE d.price_date = (
			SELECT MAX(x.price_date) FROM daily_prices x
			WHERE x.product_code = d.product_code AND x.price_date < ?
		)`

	if err := s.db.WithContext(ctx).Raw(query, dateOnly(date)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest prior prices: %w", err)
	}

	latest := make(map[string]int64, len(rows))
	for _, row := range rows {
		latest[row.ProductCode] = row.Price
	}

	return latest, nil
}

// CountDailyPrices returns the number of daily rows inside the window.
func (s *Store) CountDailyPrices(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64

	err := s.db.WithContext(ctx).
		Model(&DailyPrice{}).
		Where("price_date BETWEEN ? AND ?", dateOnly(start), dateOnly(end)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count daily prices: %w", err)
	}

	return count, nil
}

// AggregateWindow computes per-product avg/min/max/count over the
// inclusive date window. Products without priced days in the window do
// not appear.
func (s *Store) AggregateWindow(ctx context.Context, start, end time.Time) ([]WindowStats, error) {
	var stats []WindowStats

	err := s.db.WithContext(ctx).
		Model(&DailyPrice{}).
		Select("product_code, AVG(price) AS avg_price, MIN(price) AS min_price, MAX(price) AS max_price, COUNT(*) AS price_count").
		Where("price_date BETWEEN ? AND ?", dateOnly(start), dateOnly(end)).
		Group("product_code").
		Order("product_code").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate window: %w", err)
	}

	return stats, nil
}

// BoundaryWindow returns, per product, the price on the earliest and the
// latest priced day inside the window.
func (s *Store) BoundaryWindow(ctx context.Context, start, end time.Time) (map[string]BoundaryPrices, error) {
	var rows []BoundaryPrices

	query := `
		SELECT f.product_code, f.price AS start_price, l.price AS end_price
		FROM daily_prices f
		JOIN daily_prices l ON l.product_code = f.product_code
		WHERE f.price_date = (
			SELECT MIN(x.price_date) FROM daily_prices x
			WHERE x.product_code = f.product_code AND x.price_date BETWEEN ? AND ?
		)
		AND l.price_date = (
			SELECT MAX(y.price_date) FROM daily_prices y
			WHERE y.product_code = f.product_code AND y.price_date BETWEEN ? AND ?
		)`

	startDay, endDay := dateOnly(start), dateOnly(end)

	err := s.db.WithContext(ctx).
		Raw(query, startDay, endDay, startDay, endDay).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load boundary prices: %w", err)
	}

	boundaries := make(map[string]BoundaryPrices, len(rows))
	for _, row := range rows {
		boundaries[row.ProductCode] = row
	}

	return boundaries, nil
}

// UpsertWeeklyPrices writes one chunk of weekly rollup rows, replacing
// the computed values on re-runs.
func (s *Store) UpsertWeeklyPrices(ctx context.Context, rows []WeeklyPrice) error {
	if len(rows) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}, {Name: "price_year"}, {Name: "week_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_date", "end_date", "avg_price", "min_price", "max_price", "price_count", "price_change", "price_change_rate", "updated_at"}),
		}).Create(&rows).Error
	})
}

// UpsertMonthlyPrices writes one chunk of monthly rollup rows.
func (s *Store) UpsertMonthlyPrices(ctx context.Context, rows []MonthlyPrice) error {
	if len(rows) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}, {Name: "price_year"}, {Name: "price_month"}},
			DoUpdates: clause.AssignmentColumns([]string{"avg_price", "min_price", "max_price", "price_count", "price_change", "price_change_rate", "updated_at"}),
		}).Create(&rows).Error
	})
}

// UpsertYearlyPrices writes one chunk of yearly rollup rows.
func (s *Store) UpsertYearlyPrices(ctx context.Context, rows []YearlyPrice) error {
	if len(rows) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}, {Name: "price_year"}},
			DoUpdates: clause.AssignmentColumns([]string{"avg_price", "min_price", "max_price", "price_count", "start_price", "end_price", "price_change", "price_change_rate", "updated_at"}),
		}).Create(&rows).Error
	})
}

// DailyPricesFor returns the stored daily rows for one date.
func (s *Store) DailyPricesFor(ctx context.Context, date time.Time) ([]DailyPrice, error) {
	var rows []DailyPrice

	err := s.db.WithContext(ctx).
		Where("price_date = ?", dateOnly(date)).
		Order("product_code").
		Find(&rows).Error

	return rows, err
}

// WeeklyPricesFor returns the stored weekly rows for one period key.
func (s *Store) WeeklyPricesFor(ctx context.Context, year, week int) ([]WeeklyPrice, error) {
	var rows []WeeklyPrice

	err := s.db.WithContext(ctx).
		Where("price_year = ? AND week_number = ?", year, week).
		Order("product_code").
		Find(&rows).Error

	return rows, err
}

// MonthlyPricesFor returns the stored monthly rows for one period key.
func (s *Store) MonthlyPricesFor(ctx context.Context, year, month int) ([]MonthlyPrice, error) {
	var rows []MonthlyPrice

	err := s.db.WithContext(ctx).
		Where("price_year = ? AND price_month = ?", year, month).
		Order("product_code").
		Find(&rows).Error

	return rows, err
}

// YearlyPricesFor returns the stored yearly rows for one period key.
func (s *Store) YearlyPricesFor(ctx context.Context, year int) ([]YearlyPrice, error) {
	var rows []YearlyPrice

	err := s.db.WithContext(ctx).
		Where("price_year = ?", year).
		Order("product_code").
		Find(&rows).Error

	return rows, err
}

// IsTransient reports whether a database error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "try again") ||
		strings.Contains(msg, "timeout")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
