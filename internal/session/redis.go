package session

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog/log"
)

const redisKeyPrefix = "chaptersplit:session:"

// RedisStore persists sessions in Redis with a TTL, surviving restarts and
// shared across replicas.
type RedisStore struct {
    client *redis.Client
    ttl    time.Duration
}

func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
    opts, err := redis.ParseURL(url)
    if err != nil {
        return nil, fmt.Errorf("parse redis url: %w", err)
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil, fmt.Errorf("redis ping: %w", err)
    }

    log.Info().Str("addr", opts.Addr).Dur("ttl", ttl).Msg("using Redis session store")
    return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
    s.UpdatedAt = time.Now().UTC()
    data, err := json.Marshal(s)
    if err != nil {
        return fmt.Errorf("marshal session: %w", err)
    }
    if err := r.client.Set(ctx, redisKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
        return fmt.Errorf("store session %s: %w", s.ID, err)
    }
    return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
    data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, fmt.Errorf("fetch session %s: %w", id, err)
    }
    var s Session
    if err := json.Unmarshal(data, &s); err != nil {
        return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
    }
    return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
    if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
        return fmt.Errorf("delete session %s: %w", id, err)
    }
    return nil
}

func (r *RedisStore) Close() error { return r.client.Close() }
