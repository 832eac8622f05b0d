package ingest

import (
	"errors"
	"time"

	"github.com/yachaerang/pricebatch/pkg/period"
)

var (
	// ErrInvalidRange is returned when a range start falls after its end
	ErrInvalidRange = errors.New("range start date is after end date")
)

// Partition is one day of work inside a date-range run.
type Partition struct {
	Index int
	Date  time.Time
}

// PartitionRange splits the inclusive [start, end] date range into
// one partition per calendar day, ordered ascending.
func PartitionRange(start, end time.Time) ([]Partition, error) {
	startDay, endDay := period.Day(start), period.Day(end)

	if startDay.After(endDay) {
		return nil, ErrInvalidRange
	}

	days := int(endDay.Sub(startDay).Hours()/24) + 1

	partitions := make([]Partition, 0, days)
	for i := 0; i < days; i++ {
		partitions = append(partitions, Partition{
			Index: i,
			Date:  startDay.AddDate(0, 0, i),
		})
	}

	return partitions, nil
}
