package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-content-auth/internal/application"
)

// RevocationStore keeps spent refresh families and identity cut-offs in Redis.
// Every key carries a PX expiry equal to the guarded token's lifetime, so Prune has nothing to do.
type RevocationStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRevocationStore(rdb *redis.Client, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &RevocationStore{rdb: rdb, prefix: prefix}
}

func (s *RevocationStore) spentKey(identityID, familyID string) string {
	return s.prefix + ":spent:" + identityID + ":" + familyID
}

func (s *RevocationStore) cutoffKey(identityID string) string {
	return s.prefix + ":cutoff:" + identityID
}

// SET NX, or the reason already stored when the key exists
var markSpentScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
  return ""
end
return redis.call("GET", KEYS[1])
`)

// MarkSpent is a single script call, so only one concurrent caller sees true.
func (s *RevocationStore) MarkSpent(ctx context.Context, identityID, familyID string, reason application.SpendReason, expiresAt time.Time) (bool, application.SpendReason, error) {
	prev, err := markSpentScript.Run(ctx, s.rdb, []string{s.spentKey(identityID, familyID)},
		string(reason), ttlUntil(expiresAt).Milliseconds()).Text()
	if err != nil {
		return false, "", err
	}
	if prev == "" {
		return true, reason, nil
	}
	return false, application.SpendReason(prev), nil
}

func (s *RevocationStore) IsSpent(ctx context.Context, identityID, familyID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.spentKey(identityID, familyID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// keep the later cut-off when two revocations race; values are unix millis so Lua numbers stay exact
var setMaxScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

func (s *RevocationStore) RevokeIdentity(ctx context.Context, identityID string, at, expiresAt time.Time) error {
	ttl := ttlUntil(expiresAt)
	return setMaxScript.Run(ctx, s.rdb, []string{s.cutoffKey(identityID)},
		strconv.FormatInt(at.UnixMilli(), 10), ttl.Milliseconds()).Err()
}

func (s *RevocationStore) RevokedBefore(ctx context.Context, identityID string) (time.Time, bool, error) {
	v, err := s.rdb.Get(ctx, s.cutoffKey(identityID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *RevocationStore) Prune(context.Context, time.Time) (int, error) { return 0, nil }

func ttlUntil(t time.Time) time.Duration {
	d := time.Until(t)
	if d < time.Second {
		return time.Second
	}
	return d
}

var _ application.RevocationStore = (*RevocationStore)(nil)
