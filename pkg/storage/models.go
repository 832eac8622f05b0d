package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a canonical catalog entry. Ingestion resolves against the
// catalog and never creates rows; the catalog is curated elsewhere.
type Product struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	ProductCode string    `gorm:"size:32;uniqueIndex;not null" json:"product_code"`
	Name        string    `gorm:"size:128" json:"name"`
	ItemName    string    `gorm:"size:64" json:"item_name"`
	ItemCode    string    `gorm:"size:16;index:idx_products_resolve,priority:1;not null" json:"item_code"`
	KindName    string    `gorm:"size:64" json:"kind_name"`
	KindCode    string    `gorm:"size:16;index:idx_products_resolve,priority:2;not null" json:"kind_code"`
	RankName    string    `gorm:"size:32" json:"rank_name"`
	RankCode    string    `gorm:"size:16;index:idx_products_resolve,priority:3;not null" json:"rank_code"`
	Unit        string    `gorm:"size:32" json:"unit"`
	Origin      string    `gorm:"size:64" json:"origin"`
	ImageURL    string    `gorm:"size:512" json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResolveKey is the identity ingestion resolves raw items by.
func (p Product) ResolveKey() string {
	return ProductResolveKey(p.ItemCode, p.KindCode, p.RankCode)
}

// ProductResolveKey builds the (itemCode, kindCode, rankCode) lookup key.
func ProductResolveKey(itemCode, kindCode, rankCode string) string {
	return fmt.Sprintf("%s:%s:%s", itemCode, kindCode, rankCode)
}

// DailyPrice is one observed wholesale price for a product on a date,
// with the change against the most recent prior observation. Append-only;
// re-ingesting a date skips keys that already exist.
type DailyPrice struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	ProductCode     string    `gorm:"size:32;uniqueIndex:idx_daily_product_date,priority:1;not null" json:"product_code"`
	PriceDate       time.Time `gorm:"type:date;uniqueIndex:idx_daily_product_date,priority:2;not null" json:"price_date"`
	Price           int64     `gorm:"not null" json:"price"`
	PriceChange     int64     `gorm:"not null" json:"price_change"`
	PriceChangeRate float64   `gorm:"type:decimal(10,4);not null" json:"price_change_rate"`
	CreatedAt       time.Time `json:"created_at"`
}

// WeeklyPrice is the rollup of one product over one ISO week, including
// the change between the week's first and last priced day.
type WeeklyPrice struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	ProductCode     string    `gorm:"size:32;uniqueIndex:idx_weekly_key,priority:1;not null" json:"product_code"`
	PriceYear       int       `gorm:"uniqueIndex:idx_weekly_key,priority:2;not null" json:"price_year"`
	WeekNumber      int       `gorm:"uniqueIndex:idx_weekly_key,priority:3;not null" json:"week_number"`
	StartDate       time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate         time.Time `gorm:"type:date;not null" json:"end_date"`
	AvgPrice        float64   `gorm:"not null" json:"avg_price"`
	MinPrice        int64     `gorm:"not null" json:"min_price"`
	MaxPrice        int64     `gorm:"not null" json:"max_price"`
	PriceCount      int       `gorm:"not null" json:"price_count"`
	PriceChange     int64     `gorm:"not null" json:"price_change"`
	PriceChangeRate float64   `gorm:"type:decimal(10,4);not null" json:"price_change_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MonthlyPrice is the rollup of one product over one calendar month,
// including the change between the month's first and last priced day.
type MonthlyPrice struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	ProductCode     string    `gorm:"size:32;uniqueIndex:idx_monthly_key,priority:1;not null" json:"product_code"`
	PriceYear       int       `gorm:"uniqueIndex:idx_monthly_key,priority:2;not null" json:"price_year"`
	PriceMonth      int       `gorm:"uniqueIndex:idx_monthly_key,priority:3;not null" json:"price_month"`
	AvgPrice        float64   `gorm:"not null" json:"avg_price"`
	MinPrice        int64     `gorm:"not null" json:"min_price"`
	MaxPrice        int64     `gorm:"not null" json:"max_price"`
	PriceCount      int       `gorm:"not null" json:"price_count"`
	PriceChange     int64     `gorm:"not null" json:"price_change"`
	PriceChangeRate float64   `gorm:"type:decimal(10,4);not null" json:"price_change_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// YearlyPrice is the rollup of one product over one calendar year,
// including year-over-year change analytics.
type YearlyPrice struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	ProductCode     string    `gorm:"size:32;uniqueIndex:idx_yearly_key,priority:1;not null" json:"product_code"`
	PriceYear       int       `gorm:"uniqueIndex:idx_yearly_key,priority:2;not null" json:"price_year"`
	AvgPrice        float64   `gorm:"not null" json:"avg_price"`
	MinPrice        int64     `gorm:"not null" json:"min_price"`
	MaxPrice        int64     `gorm:"not null" json:"max_price"`
	PriceCount      int       `gorm:"not null" json:"price_count"`
	StartPrice      int64     `gorm:"not null" json:"start_price"`
	EndPrice        int64     `gorm:"not null" json:"end_price"`
	PriceChange     int64     `gorm:"not null" json:"price_change"`
	PriceChangeRate float64   `gorm:"type:decimal(10,4);not null" json:"price_change_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// WindowStats is the per-product aggregate over a date window.
type WindowStats struct {
	ProductCode string  `json:"product_code"`
	AvgPrice    float64 `json:"avg_price"`
	MinPrice    int64   `json:"min_price"`
	MaxPrice    int64   `json:"max_price"`
	PriceCount  int     `json:"price_count"`
}

// BoundaryPrices carries the prices on the earliest and latest priced
// days of a window for one product.
type BoundaryPrices struct {
	ProductCode string `json:"product_code"`
	StartPrice  int64  `json:"start_price"`
	EndPrice    int64  `json:"end_price"`
}

// ChangeFrom computes the absolute and percentage change from a base
// price. The rate is rounded half-up to four decimals; a missing or
// non-positive base yields zero change, not a division error.
func ChangeFrom(basePrice, price int64) (change int64, rate float64) {
	if basePrice <= 0 {
		return 0, 0
	}

	change = price - basePrice

	rate, _ = decimal.NewFromInt(change).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(basePrice), 4).
		Float64()

	return change, rate
}
