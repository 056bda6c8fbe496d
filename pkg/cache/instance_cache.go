package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// InstanceCacheTTL bounds how long an instance that stopped reporting stays
	// in the read model.
	InstanceCacheTTL = 24 * time.Hour

	instanceKeyPrefix = "instance:"
	instanceIndexKey  = "instances"
)

// CachedInstance is the latest known lifecycle state of one service instance.
type CachedInstance struct {
	ServiceID   string
	ServiceName string
	State       string
	LastError   string
	UpdatedAt   time.Time
}

// putInstance writes the hash only when the incoming update is not older than
// the stored one, so redelivered or reordered events cannot roll state back.
//
// KEYS[1] instance hash, KEYS[2] index zset
// ARGV: updated_at (unix micros), service_id, service_name, state, last_error,
// updated_at (RFC3339Nano), ttl seconds
var putInstance = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'updated_at_us')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1],
  'service_id', ARGV[2],
  'service_name', ARGV[3],
  'state', ARGV[4],
  'last_error', ARGV[5],
  'updated_at', ARGV[6],
  'updated_at_us', ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[7])
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// InstanceCache is the Redis read model of the instance fleet.
// Key format: "instance:{serviceId}" (hash), indexed by the "instances" zset
// scored by last update.
type InstanceCache struct {
	client *RedisClient
}

// NewInstanceCache creates an InstanceCache backed by the given RedisClient.
func NewInstanceCache(r *RedisClient) *InstanceCache {
	return &InstanceCache{client: r}
}

// Put records inst unless a newer update is already stored. It reports
// whether the entry was written.
func (c *InstanceCache) Put(ctx context.Context, inst *CachedInstance) (bool, error) {
	micros := inst.UpdatedAt.UTC().UnixMicro()
	res, err := putInstance.Run(ctx, c.client.Client(),
		[]string{c.key(inst.ServiceID), instanceIndexKey},
		micros,
		inst.ServiceID,
		inst.ServiceName,
		inst.State,
		inst.LastError,
		inst.UpdatedAt.UTC().Format(time.RFC3339Nano),
		int(InstanceCacheTTL.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("cache put instance: %w", err)
	}
	return res == 1, nil
}

// Get returns one instance. Returns redis.Nil when it is unknown or expired.
func (c *InstanceCache) Get(ctx context.Context, serviceID string) (*CachedInstance, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(serviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get instance: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}
	return parseInstance(vals)
}

// List returns instances ordered by most recent update, plus the total count.
// Index entries whose hash has expired are dropped on the way.
func (c *InstanceCache) List(ctx context.Context, offset, limit int) ([]*CachedInstance, int, error) {
	rdb := c.client.Client()
	total, err := rdb.ZCard(ctx, instanceIndexKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("cache count instances: %w", err)
	}
	if total == 0 {
		return nil, 0, redis.Nil
	}

	ids, err := rdb.ZRevRange(ctx, instanceIndexKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("cache list instances: %w", err)
	}

	pipe := rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, c.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("cache load instances: %w", err)
	}

	out := make([]*CachedInstance, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		inst, err := parseInstance(vals)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inst)
	}
	if len(stale) > 0 {
		_ = rdb.ZRem(ctx, instanceIndexKey, stale...).Err()
		total -= int64(len(stale))
	}
	return out, int(total), nil
}

func (c *InstanceCache) key(serviceID string) string {
	return instanceKeyPrefix + serviceID
}

func parseInstance(vals map[string]string) (*CachedInstance, error) {
	updatedAt, err := time.Parse(time.RFC3339Nano, vals["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse updated_at: %w", err)
	}
	return &CachedInstance{
		ServiceID:   vals["service_id"],
		ServiceName: vals["service_name"],
		State:       vals["state"],
		LastError:   vals["last_error"],
		UpdatedAt:   updatedAt,
	}, nil
}
