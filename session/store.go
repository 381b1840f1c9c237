package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the flow engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrFlowNotFound is returned when no flow record exists for the given id.
var ErrFlowNotFound = errors.New("flow not found")

// Store is a Redis-backed flow store that handles persistence, expiration,
// and the webview-to-flow index.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
}

// NewStore creates a flow [Store] backed by the given Redis client. prefix
// sets the Redis key namespace; sliding controls whether reads renew the TTL.
func NewStore(redis redis.UniversalClient, prefix string, sliding bool) *Store {
	return &Store{
		redis:   redis,
		prefix:  prefix,
		sliding: sliding,
	}
}

func (s *Store) key(workspaceID, flowID string) string {
	return s.prefix + ":" + workspaceID + ":" + flowID
}

func (s *Store) webviewKey(workspaceID, connectWebviewID string) string {
	return s.prefix + ":wv:" + workspaceID + ":" + connectWebviewID
}

// Save persists a [Flow] to Redis with the given TTL and updates the
// webview index so the flow can be found again by its webview id.
func (s *Store) Save(ctx context.Context, f *Flow, ttl time.Duration) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}

	flowKey := s.key(f.WorkspaceID, f.FlowID)
	webviewKey := s.webviewKey(f.WorkspaceID, f.ConnectWebviewID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, flowKey, data, ttl)
		pipe.Set(ctx, webviewKey, f.FlowID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves a flow by workspace and flow id. When the store is in
// sliding mode the record's TTL is renewed to the given ttl.
func (s *Store) Get(ctx context.Context, workspaceID, flowID string, ttl time.Duration) (*Flow, error) {
	key := s.key(workspaceID, flowID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrFlowNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	f, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if s.sliding && ttl > 0 {
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if err := s.redis.Expire(ctx, s.webviewKey(workspaceID, f.ConnectWebviewID), ttl).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return f, nil
}

// GetByWebview resolves the flow currently bound to a connect webview.
func (s *Store) GetByWebview(ctx context.Context, workspaceID, connectWebviewID string, ttl time.Duration) (*Flow, error) {
	flowID, err := s.redis.Get(ctx, s.webviewKey(workspaceID, connectWebviewID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrFlowNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.Get(ctx, workspaceID, flowID, ttl)
}

// Delete removes a flow and its webview index entry. Deleting a flow that
// does not exist is not an error.
func (s *Store) Delete(ctx context.Context, workspaceID, flowID string) error {
	key := s.key(workspaceID, flowID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := []string{key}
	if f, decErr := Decode(data); decErr == nil {
		keys = append(keys, s.webviewKey(workspaceID, f.ConnectWebviewID))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
