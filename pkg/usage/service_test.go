package usage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tally/pkg/directory"
	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
)

func testRegistry(t *testing.T) *sources.Registry {
	t.Helper()
	registry, err := sources.NewRegistry([]sources.Descriptor{
		chatDescriptor(),
		{
			ID:              "code",
			PrimaryLocation: "code-usage",
			PrimaryLayout:   sources.KeyLayout{OwnerField: "userId", DimensionField: "model"},
		},
	})
	require.NoError(t, err)
	return registry
}

func testService(t *testing.T, scanner scan.ItemScanner, dir *stubDirectory) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		Registry:  testRegistry(t),
		Scanner:   scanner,
		Directory: dir,
		Logger:    observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
}

func TestOverviewPartialFailure(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("chat-usage", []scan.Item{
		{"pk": "user#1", "sk": "engine#pro#2025-10", "inputTokens": "60", "outputTokens": "40"},
	})
	scanner.Fail("code-usage", errors.New("throughput exceeded"))

	dir := newStubDirectory(activeIdentity("1", "ada@example.com"))
	svc := testService(t, scanner, dir)

	report, err := svc.Overview(context.Background(), AllSources(), Unbounded())
	require.NoError(t, err)

	assert.Equal(t, int64(100), report.Totals.TokensTotal)
	assert.Equal(t, int64(1), report.Totals.MessageCount)

	require.Len(t, report.Sources, 3)
	byLocation := make(map[string]SourceStatus)
	for _, status := range report.Sources {
		byLocation[status.Location] = status
	}
	assert.False(t, byLocation["chat-usage"].Failed)
	assert.Equal(t, 1, byLocation["chat-usage"].Records)
	assert.True(t, byLocation["code-usage"].Failed)
	assert.Contains(t, byLocation["code-usage"].Error, "throughput exceeded")
	assert.True(t, byLocation["chat-usage-ja"].Alt)
}

func TestOverviewUnknownSource(t *testing.T) {
	svc := testService(t, scan.NewMemoryScanner(), newStubDirectory())

	_, err := svc.Overview(context.Background(), SingleSource("nope"), Unbounded())
	require.Error(t, err)
	assert.ErrorIs(t, err, sources.ErrUnknownSource)
}

func TestOverviewAltOnlyWithoutAlt(t *testing.T) {
	svc := testService(t, scan.NewMemoryScanner(), newStubDirectory())

	_, err := svc.Overview(context.Background(), Scope{SourceID: "code", AltOnly: true}, Unbounded())
	require.Error(t, err)
	assert.ErrorIs(t, err, sources.ErrUnknownSource)
}

func TestGatherCountsUnattributable(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("code-usage", []scan.Item{
		{"userId": "1", "model": "fast", "totalTokens": "10"},
		{"model": "fast", "totalTokens": "5"},
	})

	svc := testService(t, scanner, newStubDirectory())

	report, err := svc.Overview(context.Background(), SingleSource("code"), Unbounded())
	require.NoError(t, err)

	// Unattributable usage still counts toward totals.
	assert.Equal(t, int64(15), report.Totals.TokensTotal)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, 2, report.Sources[0].Records)
	assert.Equal(t, 1, report.Sources[0].Dropped)
}

func TestMonthFilterPushdown(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("chat-usage", []scan.Item{
		{"pk": "user#1", "sk": "engine#pro#2025-10", "totalTokens": "10"},
		{"pk": "user#1", "sk": "engine#pro#2025-09", "totalTokens": "99"},
	})
	// Alt edition uses its own layout for the pushdown attribute.
	scanner.Seed("chat-usage-ja", []scan.Item{
		{"userKey": "user#2", "usageKey": "engine#pro#2025-10", "totalTokens": "7"},
		{"userKey": "user#2", "usageKey": "engine#pro#2025-08", "totalTokens": "50"},
	})

	svc := testService(t, scanner, newStubDirectory())

	tf, err := Month("2025-10")
	require.NoError(t, err)

	report, err := svc.Overview(context.Background(), SingleSource("chat"), tf)
	require.NoError(t, err)
	assert.Equal(t, int64(17), report.Totals.TokensTotal)
	assert.Equal(t, int64(2), report.Totals.RecordCount)
}

func TestRangeFilterPostFilters(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("code-usage", []scan.Item{
		{"userId": "1", "model": "fast", "createdAt": "2025-10-01T10:00:00Z", "totalTokens": "10"},
		{"userId": "1", "model": "fast", "createdAt": "2025-10-05T10:00:00Z", "totalTokens": "20"},
		{"userId": "1", "model": "fast", "createdAt": "2025-11-01T10:00:00Z", "totalTokens": "40"},
		// No extractable date: excluded by a bounded range.
		{"userId": "1", "model": "fast", "totalTokens": "80"},
	})

	svc := testService(t, scanner, newStubDirectory())

	tf, err := Range("2025-10-01", "2025-10-31")
	require.NoError(t, err)

	report, err := svc.Overview(context.Background(), SingleSource("code"), tf)
	require.NoError(t, err)
	assert.Equal(t, int64(30), report.Totals.TokensTotal)
	assert.Equal(t, int64(2), report.Totals.RecordCount)
}

func TestUsersReconciles(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("chat-usage", []scan.Item{
		{"pk": "user#1", "sk": "engine#pro#2025-10", "inputTokens": "60", "outputTokens": "40"},
	})
	scanner.Fail("code-usage", errors.New("table offline"))
	dir := newStubDirectory()
	dir.failWith = errors.New("directory offline")

	svc := testService(t, scanner, dir)

	report, err := svc.Users(context.Background(), AllSources(), Unbounded())
	require.NoError(t, err)

	// Scan and lookup failures both degrade instead of aborting.
	require.Len(t, report.Users, 1)
	assert.Equal(t, "1", report.Users[0].Email)
	assert.Equal(t, int64(100), report.Users[0].TokensTotal)
	assert.Equal(t, int64(1), report.Users[0].MessageCount)

	var failed int
	for _, status := range report.Sources {
		if status.Failed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestTopOwners(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("code-usage", []scan.Item{
		{"userId": "1", "model": "fast", "totalTokens": "10"},
		{"userId": "2", "model": "fast", "totalTokens": "50"},
		{"userId": "3", "model": "fast", "totalTokens": "30"},
	})
	dir := newStubDirectory(
		activeIdentity("2", "grace@example.com"),
		activeIdentity("3", "ada@example.com"),
	)
	svc := testService(t, scanner, dir)

	report, err := svc.TopOwners(context.Background(), SingleSource("code"), Unbounded(), MeasureTokens, 2)
	require.NoError(t, err)

	require.Len(t, report.Owners, 2)
	assert.Equal(t, "grace@example.com", report.Owners[0].Email)
	assert.Equal(t, int64(50), report.Owners[0].Value)
	assert.Equal(t, "ada@example.com", report.Owners[1].Email)

	// Only the surviving rows are looked up.
	assert.Equal(t, 2, dir.lookupCount())
}

func TestDailyTrend(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("code-usage", []scan.Item{
		{"userId": "1", "model": "fast", "createdAt": "2025-10-02", "totalTokens": "20"},
		{"userId": "1", "model": "fast", "createdAt": "2025-10-01", "totalTokens": "10"},
	})
	svc := testService(t, scanner, newStubDirectory())

	report, err := svc.DailyTrend(context.Background(), SingleSource("code"), Unbounded())
	require.NoError(t, err)
	require.Len(t, report.Points, 2)
	assert.Equal(t, "2025-10-01", report.Points[0].Date)
	assert.Equal(t, int64(30), report.Points[1].Cumulative)
}

func TestMonthlyTrend(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("chat-usage", []scan.Item{
		{"pk": "user#1", "sk": "engine#pro#2025-09", "totalTokens": "100"},
		{"pk": "user#1", "sk": "engine#pro#2025-10", "totalTokens": "150"},
		{"pk": "user#2", "sk": "engine#pro#2025-10", "totalTokens": "50"},
	})
	svc := testService(t, scanner, newStubDirectory())
	svc.now = func() time.Time {
		return time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)
	}

	report, err := svc.MonthlyTrend(context.Background(), SingleSource("chat"), 3)
	require.NoError(t, err)
	require.Len(t, report.Points, 3)

	assert.Equal(t, "2025-08", report.Points[0].Date)
	assert.Equal(t, int64(0), report.Points[0].TokensTotal)

	assert.Equal(t, "2025-09", report.Points[1].Date)
	assert.Equal(t, int64(100), report.Points[1].TokensTotal)
	// Zero prior month reports no percentage growth.
	assert.Equal(t, float64(0), report.Points[1].DeltaPercent)

	assert.Equal(t, "2025-10", report.Points[2].Date)
	assert.Equal(t, int64(200), report.Points[2].TokensTotal)
	assert.Equal(t, int64(100), report.Points[2].Delta)
	assert.Equal(t, float64(100), report.Points[2].DeltaPercent)
	assert.Equal(t, 2, report.Points[2].ActiveOwners)
	assert.Equal(t, int64(300), report.Points[2].Cumulative)
}

func TestSignupTrend(t *testing.T) {
	created := func(value string) *time.Time {
		ts, err := time.Parse(time.RFC3339, value)
		require.NoError(t, err)
		return &ts
	}

	dir := newStubDirectory(
		directory.Identity{OwnerID: "1", Email: "a@example.com", CreatedAt: created("2025-09-03T00:00:00Z")},
		directory.Identity{OwnerID: "2", Email: "b@example.com", CreatedAt: created("2025-09-20T00:00:00Z")},
		directory.Identity{OwnerID: "3", Email: "c@example.com", CreatedAt: created("2025-10-01T00:00:00Z")},
		directory.Identity{OwnerID: "4", Email: "d@example.com"},
	)
	svc := testService(t, scan.NewMemoryScanner(), dir)
	svc.now = func() time.Time {
		return time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)
	}

	points, err := svc.SignupTrend(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "2025-08", points[0].Month)
	assert.Equal(t, 0, points[0].Signups)
	assert.Equal(t, "2025-09", points[1].Month)
	assert.Equal(t, 2, points[1].Signups)
	assert.Equal(t, "2025-10", points[2].Month)
	assert.Equal(t, 1, points[2].Signups)
	assert.Equal(t, 3, points[2].Cumulative)
}

func TestBreakdown(t *testing.T) {
	scanner := scan.NewMemoryScanner()
	scanner.Seed("chat-usage", []scan.Item{
		{"pk": "user#1", "sk": "engine#pro#2025-10", "totalTokens": "10"},
		{"pk": "user#2", "sk": "engine#lite#2025-10", "totalTokens": "20"},
	})
	svc := testService(t, scanner, newStubDirectory())

	report, err := svc.Breakdown(context.Background(), SingleSource("chat"), Unbounded(), GroupBy{Source: true, Dimension: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"dimension", "source"}, report.GroupedBy)
	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "pro", report.Buckets[0].Key.Dimension)
	assert.Equal(t, "lite", report.Buckets[1].Key.Dimension)
}

func TestSourcesCatalog(t *testing.T) {
	svc := testService(t, scan.NewMemoryScanner(), newStubDirectory())

	catalog := svc.Sources()
	require.Len(t, catalog, 2)
	assert.Equal(t, "chat", catalog[0].ID)
	assert.Equal(t, "code", catalog[1].ID)
}

func TestTimeFilterValidation(t *testing.T) {
	_, err := Month("2025-13-01")
	assert.Error(t, err)
	_, err = Month("202510")
	assert.Error(t, err)

	_, err = Range("2025-10-01", "2025-09-01")
	assert.Error(t, err)
	_, err = Range("2025-10", "2025-11-01")
	assert.Error(t, err)

	tf, err := Range("2025-10-01", "2025-10-01")
	require.NoError(t, err)
	assert.True(t, tf.includes("2025-10-01"))
	assert.False(t, tf.includes("2025-10-02"))
	assert.False(t, tf.includes(""))

	assert.True(t, Unbounded().IsUnbounded())
	assert.Equal(t, "unbounded", Unbounded().String())
}
