package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	libdb "voltwatch/backend/libs/db"
	"voltwatch/backend/services/voltage-service/internal/config"
	servicedb "voltwatch/backend/services/voltage-service/internal/db"
	"voltwatch/backend/services/voltage-service/internal/models"
	redisstore "voltwatch/backend/services/voltage-service/internal/redis"
	"voltwatch/backend/services/voltage-service/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := libdb.NewSQLiteDB(context.Background(), filepath.Join(t.TempDir(), "voltage.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := servicedb.Migrate(context.Background(), sqlDB, config.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return sqlDB
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.VoltageUpdate
}

func (f *fakeBroadcaster) Broadcast(event models.VoltageUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]redisstore.OpenSession
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]redisstore.OpenSession)}
}

func (f *fakeCache) Save(_ context.Context, s redisstore.OpenSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries[s.DeviceID] = s
	return nil
}

func (f *fakeCache) Get(_ context.Context, deviceID string) (*redisstore.OpenSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.entries[deviceID]
	if !ok {
		return nil, redisstore.ErrCacheMiss
	}
	return &s, nil
}

func (f *fakeCache) Delete(_ context.Context, deviceID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if s, ok := f.entries[deviceID]; ok && s.SessionID == sessionID {
		delete(f.entries, deviceID)
	}
	return nil
}

type failingReadingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingReadingStore) Insert(context.Context, *models.Reading) error { return errDiskFull }

func (failingReadingStore) Query(context.Context, models.ReadingFilter, int, int) ([]models.Reading, error) {
	return nil, errDiskFull
}

func (failingReadingStore) Count(context.Context, models.ReadingFilter) (int64, error) {
	return 0, errDiskFull
}

type fixture struct {
	db          *sql.DB
	readings    *repository.ReadingRepository
	sessions    *repository.SessionRepository
	broadcaster *fakeBroadcaster
	cache       *fakeCache
	clock       *testClock
	ingest      *IngestionService
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB := setupTestDB(t)
	f := &fixture{
		db:          sqlDB,
		readings:    repository.NewReadingRepository(sqlDB),
		sessions:    repository.NewSessionRepository(sqlDB),
		broadcaster: &fakeBroadcaster{},
		cache:       newFakeCache(),
		clock:       &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.ingest = NewIngestionService(f.readings, f.sessions, f.broadcaster, f.cache, zap.NewNop()).WithClock(f.clock.Now)
	return f
}

func volts(v float64) *float64 { return &v }
