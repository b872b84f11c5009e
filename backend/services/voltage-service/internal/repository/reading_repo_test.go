package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltwatch/backend/services/voltage-service/internal/models"
	"voltwatch/backend/services/voltage-service/internal/repository"
)

func TestReadingInsertAssignsIncreasingIDs(t *testing.T) {
	repo := repository.NewReadingRepository(setupTestDB(t))
	now := time.Now().UTC()

	first := seedReading(t, repo, "D1", 24.3, now)
	second := seedReading(t, repo, "D1", 24.7, now)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, second.CreatedAt.IsZero())
}

func TestReadingInsertKeepsOptionalFieldsUnset(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReadingRepository(setupTestDB(t))

	withZero := models.Reading{DeviceID: "D1", Voltage: 12, MinVoltage: float(0), Timestamp: time.Now().UTC()}
	require.NoError(t, repo.Insert(ctx, &withZero))

	readings, err := repo.Query(ctx, models.ReadingFilter{DeviceID: "D1"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	require.NotNil(t, readings[0].MinVoltage)
	assert.Equal(t, 0.0, *readings[0].MinVoltage)
	assert.Nil(t, readings[0].MaxVoltage)
	assert.Nil(t, readings[0].AvgVoltage)
}

func TestReadingQueryNewestFirstWithTiesByInsertion(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReadingRepository(setupTestDB(t))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	older := seedReading(t, repo, "D1", 20, base.Add(-time.Minute))
	tieA := seedReading(t, repo, "D1", 21, base)
	tieB := seedReading(t, repo, "D1", 22, base)
	seedReading(t, repo, "D2", 30, base.Add(time.Minute))

	readings, err := repo.Query(ctx, models.ReadingFilter{DeviceID: "D1"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, []int64{tieB.ID, tieA.ID, older.ID}, []int64{readings[0].ID, readings[1].ID, readings[2].ID})
	assert.True(t, readings[2].Timestamp.Equal(base.Add(-time.Minute)))

	all, err := repo.Query(ctx, models.ReadingFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "D2", all[0].DeviceID)

	since, err := repo.Query(ctx, models.ReadingFilter{DeviceID: "D1", Since: base}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

func TestReadingPagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReadingRepository(setupTestDB(t))
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 120; i++ {
		seedReading(t, repo, "D1", float64(i), base.Add(time.Duration(i)*time.Second))
	}
	seedReading(t, repo, "OTHER", 1, base)

	filter := models.ReadingFilter{DeviceID: "D1"}
	total, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(120), total)

	seen := make(map[int64]struct{})
	for page, want := range []int{50, 50, 20} {
		readings, err := repo.Query(ctx, filter, 50, page*50)
		require.NoError(t, err)
		require.Len(t, readings, want)
		for _, r := range readings {
			_, dup := seen[r.ID]
			require.False(t, dup, "reading %d returned twice", r.ID)
			seen[r.ID] = struct{}{}
		}
	}
	assert.Len(t, seen, 120)
}

func TestReadingAggregate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReadingRepository(setupTestDB(t))
	now := time.Now().UTC()

	empty, err := repo.Aggregate(ctx, models.ReadingFilter{DeviceID: "D1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Count)
	assert.Nil(t, empty.Min)
	assert.Nil(t, empty.Max)
	assert.Nil(t, empty.Avg)
	assert.Nil(t, empty.FirstReading)

	seedReading(t, repo, "D1", 24.3, now.Add(-30*time.Minute))
	seedReading(t, repo, "D1", 24.7, now.Add(-10*time.Minute))
	seedReading(t, repo, "D1", 99, now.Add(-2*time.Hour))
	seedReading(t, repo, "D2", 1, now)

	stats, err := repo.Aggregate(ctx, models.ReadingFilter{DeviceID: "D1", Since: now.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	require.NotNil(t, stats.Min)
	assert.InDelta(t, 24.3, *stats.Min, 1e-9)
	assert.InDelta(t, 24.7, *stats.Max, 1e-9)
	assert.InDelta(t, 24.5, *stats.Avg, 1e-9)
	require.NotNil(t, stats.FirstReading)
	assert.WithinDuration(t, now.Add(-30*time.Minute), *stats.FirstReading, time.Millisecond)
	assert.WithinDuration(t, now.Add(-10*time.Minute), *stats.LastReading, time.Millisecond)

	allDevices, err := repo.Aggregate(ctx, models.ReadingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), allDevices.Count)
}
