package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/models"
)

func TestSubmitReadingAssignsIncreasingIDsAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.ingest.SubmitReading(ctx, ReadingInput{DeviceID: "D1", Voltage: volts(24.3)})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.ingest.SubmitReading(ctx, ReadingInput{DeviceID: "D1", Voltage: volts(24.7)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, f.clock.Now(), second.Timestamp)

	require.Equal(t, 2, f.broadcaster.count())
	event := f.broadcaster.events[1]
	assert.Equal(t, models.EventVoltageUpdate, event.Type)
	assert.Equal(t, int64(2), event.ID)
	assert.Equal(t, "D1", event.DeviceID)
	assert.Equal(t, 24.7, event.Voltage)
	assert.Nil(t, event.MinVoltage)
}

func TestSubmitReadingKeepsDeviceTimestamp(t *testing.T) {
	f := newFixture(t)
	deviceTime := time.Date(2024, 5, 31, 23, 0, 0, 0, time.FixedZone("CET", 3600))

	r, err := f.ingest.SubmitReading(context.Background(), ReadingInput{
		DeviceID:   "D1",
		Voltage:    volts(12),
		MinVoltage: volts(0),
		Timestamp:  &deviceTime,
	})
	require.NoError(t, err)
	assert.True(t, r.Timestamp.Equal(deviceTime))
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Equal(t, f.clock.Now(), r.CreatedAt)
	require.NotNil(t, r.MinVoltage)
	assert.Equal(t, 0.0, *r.MinVoltage)
}

func TestSubmitReadingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]ReadingInput{
		"missing voltage":   {DeviceID: "D1"},
		"missing device":    {Voltage: volts(1)},
		"blank device":      {DeviceID: "   ", Voltage: volts(1)},
		"non finite values": {DeviceID: "D1", Voltage: volts(1), AvgVoltage: volts(posInf())},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ingest.SubmitReading(ctx, input)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	total, err := f.readings.Count(ctx, models.ReadingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, 0, f.broadcaster.count())
}

func TestSubmitReadingStorageFailureDoesNotBroadcast(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	svc := NewIngestionService(failingReadingStore{}, nil, broadcaster, nil, zap.NewNop())

	_, err := svc.SubmitReading(context.Background(), ReadingInput{DeviceID: "D1", Voltage: volts(3)})
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 0, broadcaster.count())
}

func TestStartSessionDefaultsAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.ingest.StartSession(ctx, StartSessionInput{SessionID: "S1", DeviceID: "D1"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultOperator, session.Operator)
	assert.Equal(t, f.clock.Now(), session.StartTime)
	assert.True(t, session.Open())

	cached, err := f.cache.Get(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, "S1", cached.SessionID)

	f.clock.Advance(time.Minute)
	_, err = f.ingest.StartSession(ctx, StartSessionInput{SessionID: "S1", DeviceID: "D2", Operator: "mallory"})
	require.ErrorIs(t, err, ErrDuplicateSession)
	require.ErrorIs(t, err, ErrConflict)

	stored, err := f.sessions.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "D1", stored.DeviceID)
	assert.Equal(t, models.DefaultOperator, stored.Operator)
	assert.True(t, stored.StartTime.Equal(session.StartTime))
}

func TestStartSessionValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingest.StartSession(context.Background(), StartSessionInput{SessionID: "S1"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.ingest.StartSession(context.Background(), StartSessionInput{DeviceID: "D1"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestStartSessionSurvivesCacheFailure(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")

	_, err := f.ingest.StartSession(context.Background(), StartSessionInput{SessionID: "S1", DeviceID: "D1"})
	require.NoError(t, err)
}

func TestEndSessionComputesStatsOverSessionSpan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.SubmitReading(ctx, ReadingInput{DeviceID: "D1", Voltage: volts(50)})
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	_, err = f.ingest.StartSession(ctx, StartSessionInput{SessionID: "S1", DeviceID: "D1", Operator: "alice"})
	require.NoError(t, err)

	for _, v := range []float64{20, 22, 30} {
		f.clock.Advance(time.Second)
		_, err := f.ingest.SubmitReading(ctx, ReadingInput{DeviceID: "D1", Voltage: volts(v)})
		require.NoError(t, err)
	}
	_, err = f.ingest.SubmitReading(ctx, ReadingInput{DeviceID: "D2", Voltage: volts(99)})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	session, result, err := f.ingest.EndSession(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Count)
	assert.Equal(t, 20.0, *result.Min)
	assert.Equal(t, 30.0, *result.Max)
	assert.InDelta(t, 24.0, *result.Avg, 1e-9)
	require.NotNil(t, session.EndTime)
	assert.Equal(t, f.clock.Now(), *session.EndTime)
	assert.Equal(t, int64(63), *session.Duration)

	_, err = f.cache.Get(ctx, "D1")
	require.Error(t, err, "cache entry should be evicted")

	_, _, err = f.ingest.EndSession(ctx, "S1")
	require.ErrorIs(t, err, ErrSessionAlreadyClosed)

	stored, err := f.sessions.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, *stored.MinVoltage)
	assert.Equal(t, 30.0, *stored.MaxVoltage)
}

func TestEndSessionWithoutReadings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.StartSession(ctx, StartSessionInput{SessionID: "S1", DeviceID: "D1"})
	require.NoError(t, err)

	_, result, err := f.ingest.EndSession(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Count)
	assert.Nil(t, result.Min)
	assert.Nil(t, result.Max)
	assert.Nil(t, result.Avg)
}

func TestEndSessionErrors(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.ingest.EndSession(context.Background(), " ")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = f.ingest.EndSession(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}
