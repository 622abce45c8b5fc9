package lib

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

const idempotencyPrefix = "idempotency:"

// IdempotencyKeySeen reports whether key was marked within its ttl. Without a
// redis connection nothing is ever seen and callers fall back on database checks.
func IdempotencyKeySeen(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	n, err := rdb.Exists(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkIdempotencyKey records key as handled. Call it only once the work it guards
// has committed, so a crash in between leaves the key unset and the retry applies.
func MarkIdempotencyKey(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, idempotencyPrefix+key, "1", ttl).Err()
}

var ErrLockHeld = errors.New("lock is held by another instance")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker lets only one API instance run a scheduled job at a time.
type RedisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	newToken func() string
}

func NewRedisLocker(c *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: c, ttl: ttl, newToken: uuid.NewString}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	token := l.newToken()
	lockKey := "lock:" + key
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &redisLock{client: l.client, key: lockKey, token: token}, nil
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
