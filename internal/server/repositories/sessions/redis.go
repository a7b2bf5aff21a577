package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "ems:session:"
	userKeyPrefix    = "ems:user:"
	activeKeySuffix  = ":active"
)

func sessionKey(id string) string    { return sessionKeyPrefix + id }
func activeKey(userID string) string { return userKeyPrefix + userID + activeKeySuffix }

// activateScript stores the new session hash and repoints the user's
// active pointer at it. A superseded session keeps its hash (so its tokens
// resolve to "revoked" rather than "unknown") and gets ended_at.
const activateScript = `
local prev = redis.call("GET", KEYS[2])
if prev and prev ~= ARGV[1] then
  local prev_key = ARGV[3] .. prev
  if redis.call("EXISTS", prev_key) == 1 then
    redis.call("HSET", prev_key, "ended_at", ARGV[4])
  end
end
redis.call("HSET", KEYS[1], unpack(ARGV, 5))
redis.call("PEXPIRE", KEYS[1], ARGV[2])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
return prev or ""
`

var activateLua = redis.NewScript(activateScript)

// getScript returns {active, user_id, access_hash, refresh_hash,
// device_type, issued_at, ended_at}; active is 1 iff the user's pointer
// names this session.
const getScript = `
local v = redis.call("HMGET", KEYS[1], "user_id", "access_hash", "refresh_hash", "device_type", "issued_at", "ended_at")
if not v[1] then
  return false
end
local active = 0
if redis.call("GET", ARGV[1] .. v[1] .. ARGV[3]) == ARGV[2] then
  active = 1
end
return {active, v[1], v[2], v[3], v[4], v[5], v[6]}
`

var getLua = redis.NewScript(getScript)

const updateAccessScript = `
local uid = redis.call("HGET", KEYS[1], "user_id")
if not uid then
  return 0
end
if redis.call("GET", ARGV[1] .. uid .. ARGV[4]) ~= ARGV[2] then
  return 0
end
redis.call("HSET", KEYS[1], "access_hash", ARGV[3])
return 1
`

var updateAccessLua = redis.NewScript(updateAccessScript)

// RedisStore keeps sessions in Redis. A session is active iff
// ems:user:<uid>:active holds its ID, so switching the pointer is the whole
// of "deactivate the old, activate the new".
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisStore returns a store whose keys expire after ttl, which should
// be at least the refresh token lifetime.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Activate makes s the only active session of its user.
func (r *RedisStore) Activate(ctx context.Context, s *models.Session) error {
	keys := []string{sessionKey(s.ID), activeKey(s.UserID)}
	args := []any{
		s.ID,
		r.ttl.Milliseconds(),
		sessionKeyPrefix,
		strconv.FormatInt(s.IssuedAt.UnixNano(), 10),
		"user_id", s.UserID,
		"access_hash", s.AccessTokenHash,
		"refresh_hash", s.RefreshTokenHash,
		"device_type", s.DeviceType,
		"issued_at", strconv.FormatInt(s.IssuedAt.UnixNano(), 10),
	}

	if err := activateLua.Run(ctx, r.rdb, keys, args...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Get returns the session with IsActive resolved against the user's
// pointer, or common.ErrorNotFound.
func (r *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	res, err := getLua.Run(ctx, r.rdb, []string{sessionKey(id)}, userKeyPrefix, id, activeKeySuffix).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(res) != 7 {
		return nil, fmt.Errorf("redis error: unexpected reply length %d", len(res))
	}

	s := &models.Session{
		ID:               id,
		IsActive:         res[0] == int64(1),
		UserID:           str(res[1]),
		AccessTokenHash:  str(res[2]),
		RefreshTokenHash: str(res[3]),
		DeviceType:       str(res[4]),
	}
	if ns, err := strconv.ParseInt(str(res[5]), 10, 64); err == nil {
		s.IssuedAt = time.Unix(0, ns).UTC()
	}
	if ns, err := strconv.ParseInt(str(res[6]), 10, 64); err == nil {
		ended := time.Unix(0, ns).UTC()
		s.EndedAt = &ended
	}

	return s, nil
}

// UpdateAccessHash swaps the access fingerprint of an active session.
func (r *RedisStore) UpdateAccessHash(ctx context.Context, id string, accessTokenHash string) error {
	n, err := updateAccessLua.Run(ctx, r.rdb, []string{sessionKey(id)},
		userKeyPrefix, id, accessTokenHash, activeKeySuffix).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeactivateUser clears the user's active pointer and stamps ended_at on
// the session it named. Calling it with no active session is a no-op.
func (r *RedisStore) DeactivateUser(ctx context.Context, userID string, at time.Time) error {
	const maxRetries = 4
	pointer := activeKey(userID)

	for i := 0; i < maxRetries; i++ {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			sid, err := tx.Get(ctx, pointer).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}

			exists, err := tx.Exists(ctx, sessionKey(sid)).Result()
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, pointer)
				if exists == 1 {
					pipe.HSet(ctx, sessionKey(sid), "ended_at", strconv.FormatInt(at.UnixNano(), 10))
				}
				return nil
			})
			return err
		}, pointer)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		return nil
	}

	return fmt.Errorf("redis error: deactivate %s: too much contention", userID)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
