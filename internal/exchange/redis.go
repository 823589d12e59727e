package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/dealwatch/config"
)

const rateKeyPrefix = "exchange_rates:"

// Conn opens and pings a redis client from configuration.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

// Redis caches rate tables in redis so restarts and sibling processes share
// them.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, base string) (*Rates, bool, error) {
	val, err := r.client.Get(ctx, rateKeyPrefix+base).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rates Rates
	if err := json.Unmarshal([]byte(val), &rates); err != nil {
		return nil, false, err
	}
	return &rates, true, nil
}

func (r *Redis) Set(ctx context.Context, base string, rates *Rates, ttl time.Duration) error {
	data, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, rateKeyPrefix+base, data, ttl).Err()
}
