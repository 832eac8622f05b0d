package kamis

import (
	"strconv"
	"strings"
)

// Category codes accepted by the daily price endpoint, in the order the
// ingestion pipeline walks them.
const (
	CategoryGrains    = "100"
	CategoryVegetable = "200"
	CategorySpecialty = "300"
	CategoryFruit     = "400"
	CategoryLivestock = "500"
	CategoryFishery   = "600"
)

// Categories is the fixed ordered set of category codes to ingest.
//
//nolint:gochecknoglobals // fixed catalog constant
var Categories = []string{
	CategoryGrains,
	CategoryVegetable,
	CategorySpecialty,
	CategoryFruit,
	CategoryLivestock,
	CategoryFishery,
}

const (
	errorCodeSuccess = "000"
	noDataSentinel   = "001"
)

// PriceItem is one raw price observation from the daily price endpoint.
type PriceItem struct {
	ItemName string `json:"item_name"`
	ItemCode string `json:"item_code"`
	KindName string `json:"kind_name"`
	KindCode string `json:"kind_code"`
	RankName string `json:"rank"`
	RankCode string `json:"rank_code"`
	Unit     string `json:"unit"`
	// DPR1 is the target-day price as formatted by KAMIS, e.g. "1,234".
	// A dash means the item was not priced that day.
	DPR1 string `json:"dpr1"`
}

// Price parses the target-day price. ok is false when the item carries
// no price for the day.
func (i PriceItem) Price() (price int64, ok bool) {
	raw := strings.TrimSpace(i.DPR1)
	if raw == "" || raw == "-" {
		return 0, false
	}

	parsed, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, false
	}

	return parsed, true
}

// envelope is the KAMIS response wrapper. The data field is either an
// object with error_code and items, or the bare ["001"] no-data sentinel,
// so it is decoded in two passes.
type envelope struct {
	ErrorCode string      `json:"error_code"`
	Item      []PriceItem `json:"item"`
}
