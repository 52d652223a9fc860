package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDaily(t *testing.T) {
	records := []CanonicalRecord{
		{SourceID: "chat", OwnerID: "1", Date: "2025-10-03", TokensTotal: 30, MessageCount: 1},
		{SourceID: "chat", OwnerID: "2", Date: "2025-10-01", TokensTotal: 10, MessageCount: 2},
		{SourceID: "code", OwnerID: "1", Date: "2025-10-01", TokensTotal: 10, MessageCount: 1},
		{SourceID: "code", OwnerID: "1", Date: "2025-10-02", TokensTotal: 40, MessageCount: 1},
		// No extractable date: dropped from the series.
		{SourceID: "api", OwnerID: "3", TokensTotal: 500, MessageCount: 1},
	}

	points := BuildDaily(records)
	require.Len(t, points, 3)

	assert.Equal(t, "2025-10-01", points[0].Date)
	assert.Equal(t, int64(20), points[0].TokensTotal)
	assert.Equal(t, 2, points[0].ActiveOwners)
	assert.Equal(t, int64(0), points[0].Delta)
	assert.Equal(t, float64(0), points[0].DeltaPercent)
	assert.Equal(t, int64(20), points[0].Cumulative)

	assert.Equal(t, "2025-10-02", points[1].Date)
	assert.Equal(t, int64(20), points[1].Delta)
	assert.Equal(t, float64(100), points[1].DeltaPercent)
	assert.Equal(t, int64(60), points[1].Cumulative)

	assert.Equal(t, "2025-10-03", points[2].Date)
	assert.Equal(t, int64(-10), points[2].Delta)
	assert.Equal(t, float64(-25), points[2].DeltaPercent)
	assert.Equal(t, int64(90), points[2].Cumulative)
}

func TestApplyDeltasZeroPrior(t *testing.T) {
	points := []TrendPoint{
		{Date: "2025-01", TokensTotal: 0},
		{Date: "2025-02", TokensTotal: 100},
	}
	applyDeltas(points)

	assert.Equal(t, int64(100), points[1].Delta)
	// A zero prior period never reports percentage growth.
	assert.Equal(t, float64(0), points[1].DeltaPercent)
	assert.Equal(t, int64(100), points[1].Cumulative)
}

func TestTrailingMonths(t *testing.T) {
	now := time.Date(2025, time.October, 31, 23, 0, 0, 0, time.UTC)

	assert.Equal(t,
		[]string{"2025-08", "2025-09", "2025-10"},
		trailingMonths(now, 3))

	// Month-end anchor never rolls over short months.
	assert.Equal(t,
		[]string{"2025-02", "2025-03"},
		trailingMonths(time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC), 2))

	// Crossing a year boundary.
	assert.Equal(t,
		[]string{"2024-11", "2024-12", "2025-01"},
		trailingMonths(time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), 3))

	assert.Equal(t, []string{"2025-10"}, trailingMonths(now, 0))
}
