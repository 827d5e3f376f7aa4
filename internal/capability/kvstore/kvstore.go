// Package kvstore exposes Redis-backed key/value operations as a workflow
// capability. Client connections are borrowed from the shared resource pool,
// one per configured address, so repeated steps reuse a single connection
// and idle clients age out through the pool sweep
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/pool"
	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Options configures the Redis backend for the kvstore capability
	Options struct {
		Addr     string
		Password string
		DB       int
	}

	store struct {
		pool *pool.Pool[any]
		opts Options
	}
)

const (
	poolKeyPrefix = "kvstore:"
	pingTimeout   = 3 * time.Second
)

var ErrConnect = errors.New("cannot connect to kvstore")

// NewCapability exposes Redis key/value operations as the "kvstore"
// capability. Values are stored as JSON text; reads restore native forms
func NewCapability(p *pool.Pool[any], opts Options) *capability.Map {
	s := &store{
		pool: p,
		opts: opts,
	}
	return capability.NewMap("kvstore", map[string]capability.Func{
		"get":  s.get,
		"set":  s.set,
		"del":  s.del,
		"keys": s.keys,
	})
}

func (s *store) client() (*redis.Client, error) {
	v, err := s.pool.Get(poolKeyPrefix+s.opts.Addr, s.connect)
	if err != nil {
		return nil, err
	}
	return v.(*redis.Client), nil
}

// connect runs under the pool lock on a miss. The ping bounds how long a
// dead backend can stall construction
func (s *store) connect() (any, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     s.opts.Addr,
		Password: s.opts.Password,
		DB:       s.opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return client, nil
}

func (s *store) get(ctx context.Context, payload api.Args) (api.Args, error) {
	key := payload.GetString("key", "")
	if key == "" {
		return api.Args{"error": "key is required"}, nil
	}

	client, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return api.Args{"found": false, "value": nil}, nil
	}
	if err != nil {
		return nil, err
	}
	return api.Args{"found": true, "value": decodeValue(raw)}, nil
}

func (s *store) set(ctx context.Context, payload api.Args) (api.Args, error) {
	key := payload.GetString("key", "")
	if key == "" {
		return api.Args{"error": "key is required"}, nil
	}
	value, ok := payload["value"]
	if !ok {
		return api.Args{"error": "value is required"}, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return api.Args{
			"error": fmt.Sprintf("value not serializable: %v", err),
		}, nil
	}

	client, err := s.client()
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(payload.GetInt64("ttl", 0)) * time.Second
	if err := client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return nil, err
	}
	return api.Args{"key": key, "stored": true}, nil
}

func (s *store) del(ctx context.Context, payload api.Args) (api.Args, error) {
	key := payload.GetString("key", "")
	if key == "" {
		return api.Args{"error": "key is required"}, nil
	}

	client, err := s.client()
	if err != nil {
		return nil, err
	}

	n, err := client.Del(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return api.Args{"deleted": n}, nil
}

func (s *store) keys(ctx context.Context, payload api.Args) (api.Args, error) {
	pattern := payload.GetString("pattern", "*")

	client, err := s.client()
	if err != nil {
		return nil, err
	}

	list, err := client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(list)

	keys := make([]any, len(list))
	for i, k := range list {
		keys[i] = k
	}
	return api.Args{"keys": keys, "count": len(keys)}, nil
}

// decodeValue restores a stored value: JSON text parses back to its native
// form, anything else stays a raw string
func decodeValue(raw string) any {
	if gjson.Valid(raw) {
		return gjson.Parse(raw).Value()
	}
	return raw
}
