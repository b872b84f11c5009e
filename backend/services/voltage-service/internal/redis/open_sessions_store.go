package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxDeleteAttempts = 3

// ErrCacheMiss is returned when no open session is cached for a device.
var ErrCacheMiss = errors.New("open session not cached")

// OpenSession is the cached view of a running welding session.
type OpenSession struct {
	SessionID string    `json:"sessionId"`
	DeviceID  string    `json:"deviceId"`
	Operator  string    `json:"operator"`
	StartTime time.Time `json:"startTime"`
}

// Store caches the open session of each device.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(deviceID string) string {
	return fmt.Sprintf("sessions:open:%s", deviceID)
}

// Save caches session as the device's open session.
func (s *Store) Save(ctx context.Context, session OpenSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.DeviceID), data, s.ttl).Err()
}

// Get returns the cached open session for device.
func (s *Store) Get(ctx context.Context, deviceID string) (*OpenSession, error) {
	result, err := s.client.Get(ctx, s.key(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var session OpenSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete drops the cache entry if it still points at sessionID. A newer session
// started on the same device keeps its entry. The compare and delete run under
// WATCH, so a concurrent Save makes the transaction fail and is retried.
func (s *Store) Delete(ctx context.Context, deviceID, sessionID string) error {
	key := s.key(deviceID)
	guarded := func(tx *redis.Tx) error {
		result, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var cached OpenSession
		if err := json.Unmarshal([]byte(result), &cached); err != nil {
			return err
		}
		if cached.SessionID != sessionID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxDeleteAttempts; attempt++ {
		err := s.client.Watch(ctx, guarded, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("delete open session %s: %w", deviceID, redis.TxFailedErr)
}
