package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionRange(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		wantDays  int
		wantErr   error
		wantFirst time.Time
		wantLast  time.Time
	}{
		{
			name:      "single day",
			start:     time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			end:       time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			wantDays:  1,
			wantFirst: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			wantLast:  time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "inclusive multi-day range",
			start:     time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC),
			end:       time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC),
			wantDays:  5,
			wantFirst: time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC),
			wantLast:  time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "crosses month boundary",
			start:     time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC),
			end:       time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
			wantDays:  4,
			wantFirst: time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC),
			wantLast:  time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "time of day is ignored",
			start:     time.Date(2025, 10, 1, 23, 59, 0, 0, time.UTC),
			end:       time.Date(2025, 10, 2, 0, 1, 0, 0, time.UTC),
			wantDays:  2,
			wantFirst: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			wantLast:  time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "start after end",
			start:   time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			wantErr: ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partitions, err := PartitionRange(tt.start, tt.end)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			require.Len(t, partitions, tt.wantDays)

			assert.Equal(t, tt.wantFirst, partitions[0].Date)
			assert.Equal(t, tt.wantLast, partitions[len(partitions)-1].Date)

			for i, p := range partitions {
				assert.Equal(t, i, p.Index)
			}
		})
	}
}
