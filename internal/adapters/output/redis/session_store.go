package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure RedisSessionStore implements the output ports
var _ output.SessionStore = (*RedisSessionStore)(nil)
var _ output.RateCounter = (*RedisSessionStore)(nil)

const (
	sessionKeyPrefix = "session:"
	counterKeyPrefix = "counter:"
)

// incrementScript bumps a counter and starts its window on first use
var incrementScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisSessionStore struct - Output adapter storing sessions as JSON with optimistic locking
type RedisSessionStore struct {
	client goredis.UniversalClient
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(client goredis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// NewRedisClient connects to Redis using the given address and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logrus.Infof("Connected to redis at %s (db %d)", addr, db)
	return client, nil
}

// Get returns the session or domain.ErrSessionNotFound. Expiry is enforced by the key TTL.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

// Put writes the session under WATCH so the version check and SET commit together.
func (s *RedisSessionStore) Put(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	key := s.key(session.ID)

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		var stored int64
		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			var current domain.Session
			if err := json.Unmarshal(val, &current); err != nil {
				return fmt.Errorf("failed to decode session %s: %w", session.ID, err)
			}
			stored = current.Version
		}

		if stored != session.Version {
			return fmt.Errorf("%w: session %s at version %d, write based on %d", domain.ErrVersionConflict, session.ID, stored, session.Version)
		}

		next := *session
		next.Version++
		newVal, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("%w: session %s modified concurrently", domain.ErrVersionConflict, session.ID)
	}
	if err != nil {
		return err
	}

	session.Version++
	return nil
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Ping checks the connection
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Increment bumps a fixed-window counter
func (s *RedisSessionStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := incrementScript.Run(ctx, s.client, []string{counterKeyPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisSessionStore) key(id string) string {
	return sessionKeyPrefix + id
}
